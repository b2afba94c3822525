package consultation

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
	"golang.org/x/time/rate"
)

var (
	// ErrSessionNotFound is returned for unknown or purged sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoContext is returned when a session has no document loaded
	ErrNoContext = errors.New("session has no consultation context")
	// ErrStaleContext is returned when a turn targets a context that has since been replaced
	ErrStaleContext = errors.New("consultation context was replaced")
	// ErrRateLimited is returned when a session asks questions too quickly
	ErrRateLimited = errors.New("question rate limit exceeded")
)

// Session is one clinician's working state: the active context and the chat
// transcript about it. Replacing the context clears the transcript.
type Session struct {
	id        string
	createdAt time.Time
	limiter   *rate.Limiter

	mu         sync.RWMutex
	context    *models.ConsultationContext
	generation uint64
	history    []models.ChatTurn
	lastActive time.Time
}

func newSession(id string, questionsPerMin float64, now time.Time) *Session {
	limit := rate.Inf
	burst := 0
	if questionsPerMin > 0 {
		limit = rate.Limit(questionsPerMin / 60)
		burst = int(questionsPerMin)
		if burst < 1 {
			burst = 1
		}
	}
	return &Session{
		id:         id,
		createdAt:  now,
		limiter:    rate.NewLimiter(limit, burst),
		lastActive: now,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Context returns the active context and its generation
func (s *Session) Context() (*models.ConsultationContext, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.context == nil {
		return nil, s.generation, ErrNoContext
	}
	return s.context, s.generation, nil
}

// Replace installs a new context and discards the transcript of the old one.
// It returns the number of turns discarded.
func (s *Session) Replace(cc *models.ConsultationContext) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := len(s.history)
	s.context = cc
	s.generation++
	s.history = nil
	s.lastActive = time.Now()
	return dropped
}

// Reset clears both context and transcript
func (s *Session) Reset() {
	s.Replace(nil)
}

// Append records turns against the given context generation. Turns for a
// replaced context are rejected so stale answers never mix into a new transcript.
func (s *Session) Append(generation uint64, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return ErrStaleContext
	}
	s.history = append(s.history, turns...)
	s.lastActive = time.Now()
	return nil
}

// History returns a copy of the transcript
func (s *Session) History() []models.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// AllowQuestion consumes one token from the session's question budget
func (s *Session) AllowQuestion() error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}
	s.Touch()
	return nil
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Registry holds sessions in memory. Sessions are never persisted: they carry
// sanitized clinical text that must not outlive the process.
type Registry struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	maxSessions     int
	questionsPerMin float64
	idleTimeout     time.Duration
	logger          arbor.ILogger
}

func NewRegistry(config *common.SessionsConfig, logger arbor.ILogger) *Registry {
	return &Registry{
		sessions:        make(map[string]*Session),
		maxSessions:     config.MaxSessions,
		questionsPerMin: config.QuestionsPerMin,
		idleTimeout:     common.ParseDurationOr(config.IdleTimeout, 2*time.Hour),
		logger:          logger,
	}
}

// Create starts an empty session. At capacity the least recently active session is evicted.
func (r *Registry) Create() *Session {
	now := time.Now()
	s := newSession(common.NewSessionID(), r.questionsPerMin, now)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		var oldest *Session
		for _, candidate := range r.sessions {
			if oldest == nil || candidate.LastActive().Before(oldest.LastActive()) {
				oldest = candidate
			}
		}
		if oldest != nil {
			delete(r.sessions, oldest.id)
			r.logger.Warn().
				Str("session_id", oldest.id).
				Int("max_sessions", r.maxSessions).
				Msg("Session limit reached, evicted least recently active session")
		}
	}

	r.sessions[s.id] = s
	r.logger.Debug().Str("session_id", s.id).Msg("Session created")
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session; it reports whether one existed
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// PurgeIdle removes sessions inactive since before now minus the idle timeout
func (r *Registry) PurgeIdle(now time.Time) int {
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	purged := 0
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			purged++
		}
	}
	return purged
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SessionInfo is the listing view of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ContextID  string    `json:"context_id,omitempty"`
	Turns      int       `json:"turns"`
}

// List returns session summaries, most recently active first
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := SessionInfo{ID: s.id, CreatedAt: s.createdAt, LastActive: s.LastActive(), Turns: len(s.History())}
		if cc, _, err := s.Context(); err == nil {
			info.ContextID = cc.ID()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out
}
