package editor

import (
	"sync"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// maxPendingNotifications bounds the notifications kept between two drains
const maxPendingNotifications = 50

// Notification one message for the operator
type Notification struct {
	Kind          NotifyKind `json:"kind"`
	Message       string     `json:"message"`
	AutoDismissMs int64      `json:"auto_dismiss_ms,omitempty"`
	At            time.Time  `json:"at"`
}

// RedirectTarget a requested view change
type RedirectTarget struct {
	View    string `json:"view"`
	SubView string `json:"sub_view"`
}

// Feedback records notifications and redirects until a client drains them.
// It implements Notifier and Navigator.
type Feedback struct {
	logger logSDK.Logger

	mu            sync.Mutex
	notifications []Notification
	redirect      *RedirectTarget
}

// NewFeedback creates an empty recorder.
func NewFeedback(logger logSDK.Logger) *Feedback {
	return &Feedback{logger: logger}
}

// Notify records a notification, dropping the oldest one when full.
func (f *Feedback) Notify(kind NotifyKind, msg string, autoDismiss time.Duration) {
	if f.logger != nil {
		f.logger.Debug("notify", zap.String("kind", string(kind)), zap.String("msg", msg))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.notifications) >= maxPendingNotifications {
		f.notifications = f.notifications[1:]
	}
	f.notifications = append(f.notifications, Notification{
		Kind:          kind,
		Message:       msg,
		AutoDismissMs: autoDismiss.Milliseconds(),
		At:            time.Now().UTC(),
	})
}

// Redirect records the latest redirect, replacing an undrained one.
func (f *Feedback) Redirect(view, subView string) {
	if f.logger != nil {
		f.logger.Debug("redirect", zap.String("view", view), zap.String("sub_view", subView))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.redirect = &RedirectTarget{View: view, SubView: subView}
}

// Drain returns and forgets everything recorded so far.
func (f *Feedback) Drain() ([]Notification, *RedirectTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notes, redirect := f.notifications, f.redirect
	f.notifications, f.redirect = nil, nil
	if notes == nil {
		notes = []Notification{}
	}

	return notes, redirect
}
