// Gateway API implementation
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"Kasumi/server/internal/pkg/encryption"
	"Kasumi/server/internal/pkg/encryption/modes"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/protocol"
	"Kasumi/server/internal/services/auth"
	"Kasumi/server/internal/services/cipher"
)

// OperationLister reads back the audit trail of a client
type OperationLister interface {
	ListOperations(ctx context.Context, clientID int64, limit int) ([]protocol.Operation, error)
}

// Server represents the API gateway
type Server struct {
	addr       string
	authSvc    *auth.Service
	cipherSvc  *cipher.Service
	fieldStore galois.ParameterStore
	operations OperationLister
	log        *logrus.Entry

	mu         deadlock.RWMutex
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// Option configures optional gateway dependencies
type Option func(*Server)

// WithFieldStore lets /api/field serve degrees other than the active one
func WithFieldStore(store galois.ParameterStore) Option {
	return func(s *Server) { s.fieldStore = store }
}

// WithOperations enables /api/operations
func WithOperations(lister OperationLister) Option {
	return func(s *Server) { s.operations = lister }
}

type contextKey int

const claimsKey contextKey = iota

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the token from "Bearer <token>" format
func extractToken(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// New creates a new gateway server
func New(addr string, authSvc *auth.Service, cipherSvc *cipher.Service, opts ...Option) *Server {
	server := &Server{
		addr:       addr,
		authSvc:    authSvc,
		cipherSvc:  cipherSvc,
		log:        helpers.NewLogger("Gateway"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(server)
	}

	cipherSvc.SetBroadcastHandler(server.Broadcast)

	return server
}

// Handler builds the router with every route and the CORS middleware
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// Root endpoint - return OK for health checks
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Kasumi API Server"))
	}).Methods("GET", "OPTIONS")

	// Public endpoints
	router.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/modes", s.handleListModes).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/field/{degree:[0-9]+}", s.handleGetField).Methods("GET", "OPTIONS")

	// Cipher endpoints need a bearer token
	router.Handle("/api/cipher/encrypt", s.requireAuth(s.handleEncrypt)).Methods("POST", "OPTIONS")
	router.Handle("/api/cipher/decrypt", s.requireAuth(s.handleDecrypt)).Methods("POST", "OPTIONS")
	router.Handle("/api/cipher/selftest", s.requireAuth(s.handleSelfTest)).Methods("POST", "OPTIONS")
	router.Handle("/api/operations", s.requireAuth(s.handleListOperations)).Methods("GET", "OPTIONS")

	// WebSocket endpoint
	router.HandleFunc("/ws", s.handleWebSocket)

	return corsMiddleware(router)
}

// Start runs the hub and serves HTTP until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.runHub(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Gateway server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requireAuth validates the bearer token and stores the claims in the request context
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r.Header.Get("Authorization"))
		if token == "" {
			http.Error(w, "Missing authorization token", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// Errors caused by the caller's input
var badRequestErrors = []error{
	modes.ErrUnknownMode,
	modes.ErrMissingTag,
	modes.ErrMessageTooLong,
	encryption.ErrInvalidKeySize,
	encryption.ErrInvalidIV,
	encryption.ErrInvalidHex,
	cipher.ErrMissingIV,
	helpers.ErrEmptyMode,
	helpers.ErrEmptyKey,
	helpers.ErrTextTooLong,
	helpers.ErrInvalidName,
	helpers.ErrSecretTooShort,
	galois.ErrUnsupportedDegree,
}

func statusFor(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Broadcast queues an event for connected WebSocket clients
func (s *Server) Broadcast(msg interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	select {
	case s.broadcast <- msg:
		if wsEvent, ok := msg.(*protocol.WebSocketEvent); ok {
			s.log.Debugf("Broadcast queued: type=%s, clientID=%d", wsEvent.Type, wsEvent.ClientID)
		}
	case <-ctx.Done():
		s.log.Error("Broadcast timeout - channel may be full")
	}
}
