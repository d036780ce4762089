package socket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatrelay/internal/logger"
	"chatrelay/pkg/logging"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewHandler(hub *Hub, allowedOrigins []string, log logger.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Empty allow-list keeps the demo open to any origin.
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", h.ServeWS)
}

// ServeWS upgrades the request and binds the connection into the hub. The
// handler blocks on the read pump for the connection's lifetime.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Failed to upgrade connection", "error", err)
		return
	}

	client := h.hub.NewClient(conn)
	if err := h.hub.Register(client); err != nil {
		h.logger.WarnwCtx(c.Request.Context(), "Rejecting connection",
			"error", err,
			"connection_id", client.ID,
		)
		conn.Close()
		return
	}

	ctx := logging.WithConnectionID(c.Request.Context(), client.ID.String())

	go client.writePump()
	client.readPump(ctx)
}
