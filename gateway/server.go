// Package gateway is the websocket edge: it authenticates connections,
// maintains presence, and shuttles frames between clients and the services.
package gateway

import (
	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"chat-gateway/runtime"
	"chat-gateway/services"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

type Server struct {
	log      *slog.Logger
	tokens   auth.TokenManager
	registry *runtime.Registry
	chat     services.IChatService
	calls    services.ICallService
	router   *Router
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, tokens auth.TokenManager, registry *runtime.Registry,
	chat services.IChatService, calls services.ICallService) *Server {
	return &Server{
		log:      log,
		tokens:   tokens,
		registry: registry,
		chat:     chat,
		calls:    calls,
		router:   NewRouter(log, chat, calls),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers connect from anywhere; authorization is the token,
			// not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes exposes the HTTP surface: the websocket endpoint and a liveness
// probe.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ServeWS authenticates and upgrades one connection. A missing or invalid
// token is refused before the upgrade, so unauthenticated peers never hold a
// socket.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.Validate(bearerToken(r))
	if err != nil {
		s.log.Debug("Refused connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	identity := domain.Identity{ID: claims.UserID, Username: claims.Username}
	client := NewClient(s.log, conn, identity)
	s.onConnect(client)

	go client.WritePump()
	client.ReadPump(s.router.Dispatch)

	s.onDisconnect(client)
}

// onConnect makes the new connection the user's current one. Last connect
// wins: a superseded connection is closed, and its later teardown must not
// disturb the new one.
func (s *Server) onConnect(client *Client) {
	identity := client.Identity()

	if previous := s.registry.SetOnline(identity.ID, client); previous != nil {
		if closer, ok := previous.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	// Everyone except the new connection learns the user is reachable.
	for _, sink := range s.registry.AllSinks() {
		if sink.Identity().ID == identity.ID {
			continue
		}
		sink.Deliver(event.UserOnline{UserID: identity.ID, Name: identity.Username})
	}

	joined, err := s.chat.SubscribeAll(identity.ID)
	if err != nil {
		s.log.Error("Failed to restore room subscriptions", "user_id", identity.ID, "error", err)
	}
	s.log.Info("User connected", "user_id", identity.ID, "rooms", joined,
		"online", s.registry.OnlineCount())
}

// onDisconnect tears presence down only when this connection is still the
// current one; a superseded connection closing must stay silent. Live calls
// cannot outlive their participant.
func (s *Server) onDisconnect(client *Client) {
	identity := client.Identity()

	if !s.registry.ClearIfCurrent(identity.ID, client) {
		s.log.Debug("Stale connection closed", "user_id", identity.ID)
		return
	}

	s.calls.HangupAll(identity.ID)
	for _, sink := range s.registry.AllSinks() {
		sink.Deliver(event.UserOffline{UserID: identity.ID})
	}
	s.log.Info("User disconnected", "user_id", identity.ID, "online", s.registry.OnlineCount())
}

// bearerToken extracts the credential from the query string or the
// Authorization header, in that order. Browsers cannot set headers on a
// websocket handshake, so the query form is the common path.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}
	return ""
}
