// ===============================
// FILE: internal/handlers/api/v1/presence/presence_controller.go
// ===============================

package presence

import (
	"encoding/json"
	"net/http"
	"time"

	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// PresenceController handles character session endpoints
type PresenceController struct {
	services        *services.Collection
	logger          *zap.Logger
	responseBuilder *response.Builder
	upgrader        websocket.Upgrader
}

// NewPresenceController creates a new presence controller
func NewPresenceController(sc *services.Collection, logger *zap.Logger, builder *response.Builder) *PresenceController {
	return &PresenceController{
		services:        sc,
		logger:          logger,
		responseBuilder: builder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register handles POST /api/v1/presence
func (c *PresenceController) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", err))
		return
	}

	presence, err := c.services.Presence.Register(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, presence)
}

// Heartbeat handles PUT /api/v1/presence/{charname}/heartbeat
func (c *PresenceController) Heartbeat(w http.ResponseWriter, r *http.Request) {
	presence, err := c.services.Presence.Heartbeat(r.Context(), chi.URLParam(r, "charname"))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, presence)
}

// Deregister handles DELETE /api/v1/presence/{charname}
func (c *PresenceController) Deregister(w http.ResponseWriter, r *http.Request) {
	if err := c.services.Presence.Deregister(r.Context(), chi.URLParam(r, "charname")); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteNoContent(w, r)
}

// Get handles GET /api/v1/presence/{charname}
func (c *PresenceController) Get(w http.ResponseWriter, r *http.Request) {
	presence, err := c.services.Presence.GetByCharname(r.Context(), chi.URLParam(r, "charname"))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, presence)
}

// List handles GET /api/v1/presence
func (c *PresenceController) List(w http.ResponseWriter, r *http.Request) {
	workingDir := r.URL.Query().Get("working_dir")

	var roster *services.ActiveRosterResponse
	var err error
	if workingDir != "" {
		roster, err = c.services.Presence.ListActiveByWorkingDir(r.Context(), workingDir)
	} else {
		roster, err = c.services.Presence.ListActive(r.Context())
	}
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, roster)
}

// Watch handles GET /api/v1/presence/watch, streaming presence events over
// a websocket until the client disconnects.
func (c *PresenceController) Watch(w http.ResponseWriter, r *http.Request) {
	logger := contextutils.GetLogger(r.Context())

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := c.services.Hub().Subscribe()
	defer cancel()

	// Drain client frames so close and pong messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("Watch stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
