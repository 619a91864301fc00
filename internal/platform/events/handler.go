package events

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// TopicsFor derives the subscription of a principal: staff see everything,
// patients only their own record.
func TopicsFor(p *auth.Principal) []string {
	switch {
	case p == nil:
		return nil
	case p.IsDerm():
		return []string{StaffTopic}
	case p.Role == model.RolePatient && p.PatientID != "":
		return []string{PatientTopic(p.PatientID)}
	default:
		return nil
	}
}

// WebSocketHandler upgrades GET /api/events and streams events to the client.
type WebSocketHandler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
	logger   zerolog.Logger
}

// NewWebSocketHandler accepts upgrades from the given origins; "*" allows any.
func NewWebSocketHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger.With().Str("component", "events_ws").Logger(),
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (wsh *WebSocketHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/events", wsh.HandleConnect, auth.RequirePrincipal())
}

// HandleConnect registers the client on the topics its principal may see
// and starts the read and write pumps.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	topics := TopicsFor(p)
	if len(topics) == 0 {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		PatientID: p.PatientID,
		TokenID:   p.TokenID,
		Topics:    topics,
		Send:      make(chan []byte, 256),
		conn:      ws,
	}
	wsh.hub.Register(client)
	wsh.logger.Debug().Str("client_id", client.ID).Str("user_id", p.UserID).Strs("topics", topics).Msg("event stream connected")

	go wsh.writePump(client, ws)
	go wsh.readPump(client, ws)
	return nil
}

// readPump discards inbound messages; it only detects the close.
func (wsh *WebSocketHandler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (wsh *WebSocketHandler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, nil)
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
