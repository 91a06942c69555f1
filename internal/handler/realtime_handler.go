package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

// RealtimeHandler upgrades authenticated admins to the change feed.
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewRealtimeHandler constructs RealtimeHandler. An empty allowedOrigins
// accepts any origin.
func NewRealtimeHandler(hub *realtime.Hub, allowedOrigins []string, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}
	return &RealtimeHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Connect godoc
// @Summary Admin change feed
// @Description Websocket stream of registration, transfer, verification and expiry events
// @Tags Realtime
// @Security BearerAuth
// @Param access_token query string false "Token when headers cannot be set"
// @Success 101
// @Router /admin/ws [get]
func (h *RealtimeHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Attach(conn, actorFromContext(c))
}
