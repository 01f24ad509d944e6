// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"fanclash-service/internal/pkg/response"
	"fanclash-service/internal/ws"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The mobile client connects from app webviews with no stable origin.
		return true
	},
}

type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// HandleConnection upgrades the request and subscribes the client to status
// updates for one checkout request id.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	checkoutID := c.Query("checkout_request_id")
	if checkoutID == "" {
		response.ValidationError(c, "checkout_request_id is required", nil)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, checkoutID, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
