package controller

import (
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
)

// Factory builds the editor of a new session, reporting through fb.
type Factory func(fb *editor.Feedback) (*editor.Controller, error)

// Session one operator's editor and the feedback it produced
type Session struct {
	ID       string
	Editor   *editor.Controller
	Feedback *editor.Feedback

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry keeps the live editor sessions
type Registry struct {
	logger  logSDK.Logger
	factory Factory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry create new session registry
func NewRegistry(logger logSDK.Logger, factory Factory) *Registry {
	return &Registry{
		logger:   logger,
		factory:  factory,
		sessions: map[string]*Session{},
	}
}

// Create starts a session with no post loaded
func (r *Registry) Create() (*Session, error) {
	fb := editor.NewFeedback(r.logger)
	ctrl, err := r.factory(fb)
	if err != nil {
		return nil, errors.Wrap(err, "new editor")
	}

	s := &Session{
		ID:       uuid.NewString(),
		Editor:   ctrl,
		Feedback: fb,
		lastSeen: time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Info("editor session created", zap.String("session", s.ID))
	return s, nil
}

// Get returns the session id and marks it as used
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch()
	}

	return s, ok
}

// Delete closes and forgets session id
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}

	r.close(s)
	return true
}

// Sweep closes sessions unused for longer than maxIdle and returns how many it closed
func (r *Registry) Sweep(maxIdle time.Duration) int {
	deadline := time.Now().Add(-maxIdle)

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(deadline) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.close(s)
	}

	return len(expired)
}

// CloseAll closes every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range all {
		r.close(s)
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) close(s *Session) {
	if err := s.Editor.Close(); err != nil {
		r.logger.Warn("close editor session", zap.String("session", s.ID), zap.Error(err))
		return
	}

	r.logger.Info("editor session closed", zap.String("session", s.ID))
}
