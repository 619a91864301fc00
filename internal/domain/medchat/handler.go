package medchat

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	responder *Responder
}

func NewHandler(responder *Responder) *Handler {
	return &Handler{responder: responder}
}

// RegisterRoutes mounts the chat endpoint. It requires no principal.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/medchat", h.Chat)
}

func (h *Handler) Chat(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.responder.Reply(req))
}
