package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/middleware"
	"github.com/prepmind/prepmind-backend/internal/service"
	ws "github.com/prepmind/prepmind-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the server-side countdown to exam clients.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// CountdownStream godoc
// WS /ws/v1/exams/:id/stream?token=...
// Pushes a tick every second until the session reaches a terminal state.
func (h *WSHandler) CountdownStream(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	user := service.User{UID: identity.UID, Name: identity.Name, Avatar: identity.Avatar()}
	if _, err := h.sessions.Get(sessionID, user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("uid", identity.UID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Countdown stream connected")

	// Read pump: answers pings and detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Client disconnected")
			return
		case <-ticker.C:
			view, err := h.sessions.Get(sessionID, user)
			if err != nil {
				_ = ws.WriteError(conn, "session gone")
				return
			}

			if view.Status.Terminal() {
				_ = ws.WriteTyped(conn, ws.EndedResponse{
					Event:    ws.EventEnded,
					Status:   string(view.Status),
					ResultID: view.ResultID,
				})
				return
			}

			if err := ws.WriteTyped(conn, ws.TickResponse{
				Event:    ws.EventTick,
				Status:   string(view.Status),
				TimeLeft: view.TimeLeft,
			}); err != nil {
				return
			}
		}
	}
}
