package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebSocketConn is the subset of a websocket connection the command layer
// uses. Satisfied by *websocket.Conn, replaceable in tests.
type WebSocketConn interface {
	io.Closer
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: allowLocalOrigin,
}

// allowLocalOrigin accepts same-origin requests plus anything coming from
// loopback or private addresses. The service is meant to run on a trusted
// LAN, not the open internet.
func allowLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Same-origin requests omit the header.
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected websocket origin", "origin", origin, "error", err)
		return false
	}
	host := u.Hostname()

	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}

	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}

	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}

	slog.Warn("rejected websocket origin", "origin", origin, "host", host)
	return false
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection.
func UpgradeConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}
