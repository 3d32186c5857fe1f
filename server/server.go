// Package server wires the HTTP shell around the chat pipeline.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/internal/profile"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/ai"
	apiv1 "github.com/Adeyemijoshua/ai-therepist-agent-backend/server/router/api/v1"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/service/chat"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

// Server is the HTTP server hosting the assistant API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer assembles the full service graph.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			return nil
		},
	}))
	e.Use(echomw.CORS())

	provider, err := ai.NewProvider(ai.ConfigFromProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	chatService := chat.NewService(store, provider)
	apiService := apiv1.NewAPIV1Service(profile.Secret, profile, store, chatService)
	apiService.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	return &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}, nil
}

// Start begins serving. It blocks until the listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	return s.echoServer.Start(address)
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		fmt.Printf("failed to shutdown server: %v\n", err)
	}
	if err := s.Store.Close(); err != nil {
		fmt.Printf("failed to close store: %v\n", err)
	}
}
