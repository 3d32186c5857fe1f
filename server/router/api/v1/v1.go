// Package v1 exposes the REST surface over the chat pipeline.
package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/internal/profile"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/auth"
	terrors "github.com/Adeyemijoshua/ai-therepist-agent-backend/server/internal/errors"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/middleware"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/service/chat"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

// userIDContextKey is where the auth middleware stores the caller identity.
const userIDContextKey = "user-id"

type APIV1Service struct {
	Secret      string
	Profile     *profile.Profile
	Store       *store.Store
	ChatService *chat.Service

	limiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, chatService *chat.Service) *APIV1Service {
	return &APIV1Service{
		Secret:      secret,
		Profile:     profile,
		Store:       store,
		ChatService: chatService,
		limiter:     middleware.NewRateLimiter(),
	}
}

// Register mounts all v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/auth/register", s.RegisterUser)
	g.POST("/auth/login", s.Login)

	authed := g.Group("", s.authMiddleware)
	authed.POST("/sessions", s.CreateSession)
	authed.GET("/sessions", s.ListSessions)
	authed.POST("/sessions/:uid/messages", s.SendTurn, s.rateLimitMiddleware)
	authed.GET("/sessions/:uid/history", s.GetHistory)
}

// authMiddleware resolves the bearer token into the caller's user ID.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		userID, err := auth.VerifyAccessToken(token, []byte(s.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

// rateLimitMiddleware applies the per-user token bucket to chat turns.
func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := callerID(c)
		if !s.limiter.Allow(strconv.Itoa(int(userID))) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		}
		return next(c)
	}
}

func callerID(c echo.Context) int32 {
	if v, ok := c.Get(userIDContextKey).(int32); ok {
		return v
	}
	return 0
}

// toHTTPError maps pipeline error codes onto HTTP statuses.
func toHTTPError(err error) error {
	switch terrors.CodeOf(err, terrors.ErrCodeStoreFailure) {
	case terrors.ErrCodeUnauthorized:
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case terrors.ErrCodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case terrors.ErrCodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case terrors.ErrCodeTimeout:
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
