package http

import (
	"log"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler streams live session statistics to instructors over a websocket.
// A snapshot is sent on connect and after every accepted submission.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWatch upgrades the request and pushes statistics snapshots until the
// client disconnects.
func (h *WSHandler) ServeWatch(w http.ResponseWriter, r *http.Request) {
	sessionName := r.PathValue("name")
	if sessionName == "" {
		http.Error(w, "missing session name", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.WatchSession(r.Context(), sessionName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer cancel()

	// Reader goroutine only detects disconnects; the feed is one-way.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.SessionStatistics]{Type: "statistics", Payload: stats}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}

func (h *WSHandler) writeError(w http.ResponseWriter, err error) {
	handler := Handler{service: h.service}
	handler.writeError(w, err)
}
