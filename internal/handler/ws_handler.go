package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"article-reader/internal/config"
	"article-reader/internal/domain"
	"article-reader/internal/service"
)

// WSHandler streams highlight state changes to reader UIs over WebSocket.
type WSHandler struct {
	container *config.Container
	logger    domain.Logger
	hub       *service.StateHub
	upgrader  websocket.Upgrader
}

func NewWSHandler(container *config.Container, logger domain.Logger) *WSHandler {
	allowed := container.Config.GetAllowedOrigins()
	return &WSHandler{
		container: container,
		logger:    logger,
		hub:       container.StateHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowed),
		},
	}
}

// Stream handles GET /ws?article_url=...
//
// The current state is pushed immediately on connect, then every store
// mutation or status change follows as its own JSON message.
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	articleURL := r.URL.Query().Get("article_url")
	if articleURL == "" {
		writeError(w, http.StatusBadRequest, "article_url is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", err, "article_url", articleURL)
		return
	}
	defer conn.Close()

	// Buffered so a slow reader never blocks the publisher; when the
	// buffer fills, intermediate states are dropped and the next state
	// carries the full picture anyway.
	states := make(chan *domain.HighlightState, 16)
	unsubscribe := h.hub.Subscribe(articleURL, func(state *domain.HighlightState) {
		select {
		case states <- state:
		default:
		}
	})
	defer unsubscribe()

	h.logger.Debug("state stream opened", "article_url", articleURL)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debug("state stream closed", "article_url", articleURL)
			return
		case state := <-states:
			if err := conn.WriteJSON(state); err != nil {
				h.logger.Debug("state stream write failed", "article_url", articleURL, "error", err.Error())
				return
			}
		}
	}
}

// originChecker allows the configured origins, or any origin when the
// wildcard is configured.
func originChecker(allowed []string) func(*http.Request) bool {
	anyOrigin := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		if anyOrigin {
			return true
		}
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		if origin == "" {
			return true
		}
		return set[origin]
	}
}
