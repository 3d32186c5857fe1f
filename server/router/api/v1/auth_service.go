package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/auth"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

type signRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type signResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int32  `json:"user_id"`
	Nickname    string `json:"nickname"`
}

// RegisterUser creates a new account and returns an access token.
func (s *APIV1Service) RegisterUser(c echo.Context) error {
	req := &signRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	ctx := c.Request().Context()
	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &req.Username})
	if err != nil {
		return toHTTPError(err)
	}
	if existing != nil {
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}
	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     req.Username,
		Nickname:     nickname,
		PasswordHash: hash,
		CreatedTs:    time.Now().Unix(),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return s.issueToken(c, user)
}

// Login verifies credentials and returns an access token.
func (s *APIV1Service) Login(c echo.Context) error {
	req := &signRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{Username: &req.Username})
	if err != nil {
		return toHTTPError(err)
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	return s.issueToken(c, user)
}

func (s *APIV1Service) issueToken(c echo.Context, user *store.User) error {
	expires := time.Now().Add(auth.AccessTokenDuration)
	token, err := auth.GenerateAccessToken(user.Username, user.ID, expires, []byte(s.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, &signResponse{
		AccessToken: token,
		UserID:      user.ID,
		Nickname:    user.Nickname,
	})
}
