package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type sendTurnRequest struct {
	Message string `json:"message"`
}

type createSessionResponse struct {
	SessionUID string `json:"session_uid"`
	Status     string `json:"status"`
	CreatedTs  int64  `json:"created_ts"`
}

// CreateSession creates an empty active session for the caller.
func (s *APIV1Service) CreateSession(c echo.Context) error {
	session, err := s.ChatService.CreateSession(c.Request().Context(), callerID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &createSessionResponse{
		SessionUID: session.UID,
		Status:     string(session.Status),
		CreatedTs:  session.CreatedTs,
	})
}

// SendTurn runs the full turn pipeline for the caller's message.
func (s *APIV1Service) SendTurn(c echo.Context) error {
	req := &sendTurnRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	result, err := s.ChatService.SendTurn(c.Request().Context(), c.Param("uid"), callerID(c), req.Message)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetHistory returns the session's messages and derived summaries.
func (s *APIV1Service) GetHistory(c echo.Context) error {
	history, err := s.ChatService.GetHistory(c.Request().Context(), c.Param("uid"), callerID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, history)
}

// ListSessions returns summaries of the caller's sessions.
func (s *APIV1Service) ListSessions(c echo.Context) error {
	summaries, err := s.ChatService.ListSessions(c.Request().Context(), callerID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, summaries)
}
