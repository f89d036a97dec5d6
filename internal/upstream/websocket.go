package upstream

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is the backend's concern
	},
}

// hop-by-hop and handshake headers the dialer manages itself
var websocketHandshakeHeaders = []string{
	"Upgrade",
	"Connection",
	"Sec-Websocket-Key",
	"Sec-Websocket-Version",
	"Sec-Websocket-Extensions",
	"Sec-Websocket-Protocol",
}

// handleWebSocket upgrades the client connection and bridges it to the
// backend.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if h.scheme == "https" {
		scheme = "wss"
	}
	backendURL := fmt.Sprintf("%s://%s%s", scheme, h.addr, r.URL.RequestURI())

	header := make(http.Header)
	copyHeaders(header, r.Header)
	for _, name := range websocketHandshakeHeaders {
		header.Del(name)
	}

	backendConn, resp, err := websocket.DefaultDialer.Dial(backendURL, header)
	if err != nil {
		log.Error().
			Err(err).
			Str("url", backendURL).
			Msg("failed to connect to backend WebSocket")
		status := http.StatusBadGateway
		if resp != nil {
			status = resp.StatusCode
		}
		http.Error(w, "failed to reach backend", status)
		return
	}
	defer backendConn.Close()

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade client connection")
		return
	}
	defer clientConn.Close()

	log.Info().
		Str("host", r.Host).
		Str("path", r.URL.Path).
		Str("backend", backendURL).
		Msg("WebSocket connection established")

	errCh := make(chan error, 2)

	go func() {
		errCh <- copyWebSocket(backendConn, clientConn)
	}()
	go func() {
		errCh <- copyWebSocket(clientConn, backendConn)
	}()

	// One direction closing ends the bridge
	if err := <-errCh; err != nil {
		log.Debug().Err(err).Msg("WebSocket copy ended")
	}
}

// copyWebSocket copies messages from src to dst
func copyWebSocket(dst, src *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return err
		}
	}
}
