package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/support-chat/internal/middleware"
)

// UserHandler tells clients who they are so they can pick the customer or admin view.
type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

type MeResponse struct {
	UserID      string   `json:"userId"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	IsAdmin     bool     `json:"isAdmin"`
}

func (h *UserHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(http.StatusOK, MeResponse{
		UserID:      p.UserID,
		DisplayName: p.Name(),
		Email:       p.Email,
		Roles:       roles,
		IsAdmin:     p.IsAdmin(),
	})
}
