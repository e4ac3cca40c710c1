package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/server"
	"github.com/asikmydeen/AudioCap/internal/settings"
	"github.com/asikmydeen/AudioCap/internal/trigger"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// statusInterval is how often the session list is pushed to connected clients.
const statusInterval = 3 * time.Second

// Server exposes the capture service over WebSocket and a key-protected REST API.
type Server struct {
	store           *settings.Store
	manager         *recording.Manager
	engine          *trigger.Engine
	devices         recording.DeviceProvider
	commands        *server.CommandHandler
	version         *VersionChecker
	ffmpegAvailable bool

	mu      sync.Mutex
	clients map[chan types.WSEvent]struct{}
}

// NewServer returns a new Server wired to the given service components.
func NewServer(store *settings.Store, manager *recording.Manager, engine *trigger.Engine, devices recording.DeviceProvider, eventLogPath string, ffmpegAvailable bool) *Server {
	return &Server{
		store:           store,
		manager:         manager,
		engine:          engine,
		devices:         devices,
		commands:        server.NewCommandHandler(store, manager, engine, devices, eventLogPath),
		version:         NewVersionChecker(),
		ffmpegAvailable: ffmpegAvailable,
		clients:         make(map[chan types.WSEvent]struct{}),
	}
}

// OnEvent fans a session event out to every connected WebSocket client.
// It never blocks; clients that cannot keep up miss the event.
func (s *Server) OnEvent(name types.EventName, payload types.EventPayload) {
	event := types.WSEvent{Type: "event", Event: name, Payload: payload}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- event:
		default:
			slog.Debug("dropping event for slow WebSocket client", "event", name)
		}
	}
}

// subscribe registers a per-client event channel.
func (s *Server) subscribe() chan types.WSEvent {
	ch := make(chan types.WSEvent, 16)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a per-client event channel.
func (s *Server) unsubscribe(ch chan types.WSEvent) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	events := s.subscribe()
	defer s.unsubscribe(events)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate, events)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop forwards session events and periodic status updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}, events <-chan types.WSEvent) {
	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		case event := <-events:
			if !trySend(event) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	return types.WSStatusResponse{
		Type:            "status",
		FFmpegAvailable: s.ffmpegAvailable,
		Sessions:        s.manager.List(),
		Version:         s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API routes (API key auth)
	mux.HandleFunc("GET /api/devices", s.apiKeyAuth(s.handleAPIDevices))
	mux.HandleFunc("GET /api/recordings", s.apiKeyAuth(s.handleAPIListRecordings))
	mux.HandleFunc("POST /api/recordings", s.apiKeyAuth(s.handleAPIStartRecording))
	mux.HandleFunc("POST /api/recordings/{id}/stop", s.apiKeyAuth(s.handleAPIStopRecording))
	mux.HandleFunc("GET /api/triggers", s.apiKeyAuth(s.handleAPIListTriggers))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.store.Snapshot().Port)
	slog.Info("starting server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
