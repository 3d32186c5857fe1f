package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/internal/profile"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/respond"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "therapist",
	Short: "Conversational support assistant backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile, err := profile.New(viper.GetViper())
		if err != nil {
			return err
		}
		instanceProfile.Version = version

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		if !instanceProfile.IsAIEnabled() {
			slog.Warn("no AI API key configured; turns will use fallback replies only")
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			slog.Info("shutting down")
			s.Shutdown(ctx)
			cancel()
		}()

		slog.Info("server started",
			"version", version,
			"addr", instanceProfile.Addr,
			"port", instanceProfile.Port,
			"mode", instanceProfile.Mode,
			"policy_version", respond.PolicyVersion)
		if err := s.Start(ctx); err != nil {
			slog.Error("server stopped", "error", err)
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	flags.String("addr", "", "address of the server")
	flags.Int("port", 8081, "port of the server")
	flags.String("data", "", "data directory")
	flags.String("dsn", "", "database connection string")
	flags.String("driver", "sqlite", "database driver")
	flags.String("secret", "", "access token signing secret")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
