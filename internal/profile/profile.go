package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the server stores its own data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Secret signs access tokens
	Secret string
	// Version is the current version of the server
	Version string

	// AI configuration
	AIAPIKey    string // THERAPIST_AI_API_KEY
	AIBaseURL   string // THERAPIST_AI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel string // THERAPIST_AI_CHAT_MODEL (default: gpt-4o-mini)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a completion backend is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// Validate normalizes the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		p.Data = "."
	}
	absData, err := filepath.Abs(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to resolve data directory")
	}
	if _, err := os.Stat(absData); err != nil {
		return errors.Wrapf(err, "data directory %q is not accessible", absData)
	}
	p.Data = absData

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(p.Data, fmt.Sprintf("therapist_%s.db", p.Mode))
	}
	if p.Secret == "" {
		p.Secret = "therapist"
	}
	return nil
}

// New builds a profile from viper-bound flags and environment variables.
// Environment variables use the THERAPIST_ prefix (e.g. THERAPIST_PORT).
func New(v *viper.Viper) (*Profile, error) {
	v.SetEnvPrefix("therapist")
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("driver", "sqlite")
	v.SetDefault("ai-base-url", "https://api.openai.com/v1")
	v.SetDefault("ai-chat-model", "gpt-4o-mini")

	p := &Profile{
		Mode:        v.GetString("mode"),
		Addr:        v.GetString("addr"),
		Port:        v.GetInt("port"),
		Data:        v.GetString("data"),
		DSN:         v.GetString("dsn"),
		Driver:      v.GetString("driver"),
		Secret:      v.GetString("secret"),
		AIAPIKey:    v.GetString("ai-api-key"),
		AIBaseURL:   v.GetString("ai-base-url"),
		AIChatModel: v.GetString("ai-chat-model"),
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}
