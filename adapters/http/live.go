package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ravindran79-arch/smartbid-compliance/domain/entitlement"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// LiveMessage is one frame of the live usage feed.
type LiveMessage struct {
	Type     string               `json:"type" example:"usage"`
	Usage    usage.Record         `json:"usage"`
	Decision entitlement.Decision `json:"decision"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveUsage streams a user's usage record over a websocket: the current
// snapshot first, then every committed change.
//
//	@Summary		Live usage feed
//	@Description	Websocket. Sends the snapshot, then one message per committed change.
//	@Tags			Usage
//	@Param			userID	path	string	true	"User ID"
//	@Success		101		{object}	LiveMessage	"Switching protocols"
//	@Router			/api/usage/{userID}/live [get]
func (h *Handler) LiveUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	// Subscribe before reading the snapshot so no commit falls in between.
	updates, cancel := h.feed.Subscribe(userID)
	defer cancel()

	snap, err := h.usage.Snapshot(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.With().Str("user_id", userID).Logger()
	log.Debug().Msg("live usage subscriber connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("live usage connection error")
				}
				return
			}
		}
	}()

	send := func(rec usage.Record) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(LiveMessage{
			Type:     "usage",
			Usage:    rec,
			Decision: entitlement.Check(rec, h.usage.Limit()),
		})
	}

	last := snap.Usage
	if err := send(last); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			// Already covered by the snapshot or an earlier message.
			if !rec.Newer(last) {
				continue
			}
			last = rec
			if err := send(rec); err != nil {
				log.Debug().Err(err).Msg("live usage write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Debug().Msg("live usage subscriber disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
