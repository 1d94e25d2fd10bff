package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

// Enqueuer accepts events into the processing queue without blocking.
type Enqueuer interface {
	Enqueue(env *seatalk.Envelope) bool
}

// Server is the webhook ingress: it answers the platform's verification
// challenge inline and hands every other event to the queue. The platform
// always gets a 200 once an event parses; queueing is not processing, and a
// dropped event is reported in the body, never as an error page.
type Server struct {
	queue Enqueuer
	http  *http.Server
}

// NewServer creates the ingress server on host:port.
func NewServer(host string, port int, queue Enqueuer) *Server {
	s := &Server{queue: queue}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/seatalk/callback", s.handleCallback)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown; it blocks.
func (s *Server) Start() error {
	log.Printf("Gateway listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env seatalk.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	if env.EventType == seatalk.EventVerification {
		if challenge, ok := env.Event["seatalk_challenge"].(string); ok && challenge != "" {
			writeJSON(w, http.StatusOK, map[string]any{"seatalk_challenge": challenge})
			return
		}
	}

	// Trace id for drop logs when the platform sent none.
	if env.EventID == "" {
		env.EventID = uuid.NewString()
	}

	queued := s.queue.Enqueue(&env)
	if !queued {
		log.Printf("Callback accepted but dropped from queue. event_id=%s", env.EventID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "queued": queued})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
