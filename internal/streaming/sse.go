// Package streaming implements the server-to-client push channel: a
// long-lived text/event-stream response carrying named JSON events, with
// heartbeats to keep intermediaries from dropping an idle-looking connection.
package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const heartbeatInterval = 15 * time.Second

// Event names carried on the stream.
const (
	EventOverviewToken    = "overview-token"
	EventOverviewComplete = "overview-complete"
	EventMatchingStart    = "matching-start"
	EventMatchingProgress = "matching-progress"
	EventMatchScore       = "match-score"
	EventMatchError       = "match-error"
	EventMatchingComplete = "matching-complete"
	EventError            = "error"
)

// Stream is a single-consumer SSE connection. Once the consumer disconnects,
// every send becomes a silent no-op; Close is idempotent and always leaves
// the connection explicitly terminated.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	active  bool
	closed  chan struct{}
	log     *logrus.Logger
}

func New(w http.ResponseWriter, r *http.Request, log *logrus.Logger) *Stream {
	return newStream(w, r.Context().Done(), log, heartbeatInterval)
}

func newStream(w http.ResponseWriter, clientGone <-chan struct{}, log *logrus.Logger, heartbeat time.Duration) *Stream {
	if log == nil {
		log = logrus.New()
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &Stream{
		w:      w,
		active: true,
		closed: make(chan struct{}),
		log:    log,
	}
	s.flusher, _ = w.(http.Flusher)

	go s.watch(clientGone, heartbeat)
	return s
}

func (s *Stream) watch(clientGone <-chan struct{}, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			s.markInactive()
			return
		case <-s.closed:
			return
		case <-ticker.C:
			s.SendComment("heartbeat")
		}
	}
}

func (s *Stream) markInactive() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// SendEvent writes one named event. Returns false when the consumer is gone
// so producers can stop early.
func (s *Stream) SendEvent(event string, data any) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.WithError(err).WithField("event", event).Warn("failed to marshal SSE payload")
		return s.IsActive()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.active = false
		return false
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return true
}

// SendComment writes a comment line (used for heartbeats); comment lines are
// ignored by SSE consumers but keep the connection visibly alive.
func (s *Stream) SendComment(comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		s.active = false
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *Stream) SendError(message string) {
	s.SendEvent(EventError, map[string]string{"message": message})
}

// Close terminates the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.closed)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *Stream) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
