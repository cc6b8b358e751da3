// Package editor is the load/edit/validate/save lifecycle of one post variant.
//
// A Controller reacts to navigation parameters, keeps a single Session per
// (post, language) pair and guards every asynchronous completion with a
// per-navigation token, so results of a superseded navigation are dropped
// instead of leaking into the current session.
package editor

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	"github.com/mohamadflefel/JCCAdmin/library/slug"
)

// Controller owns the edit session of one operator.
type Controller struct {
	posts      PostStore
	images     ImageResolver
	categories CategorySource
	nav        Navigator
	notifier   Notifier
	opt        Options
	logger     logSDK.Logger

	root context.Context
	stop context.CancelFunc
	// bg joins image resolutions and preview renders
	bg sync.WaitGroup

	mu             sync.Mutex
	closed         bool
	tok            *token
	session        *Session
	submitDisabled bool
	loading        bool
	saveState      SaveState
	available      []model.Category
	newCategory    string
	categoryBusy   bool
	// streamDone is closed once the current category stream has been released
	streamDone chan struct{}
}

// New creates a controller with no session loaded.
func New(deps Deps, opt Options) (*Controller, error) {
	switch {
	case deps.Posts == nil:
		return nil, errors.New("post store is required")
	case deps.Images == nil:
		return nil, errors.New("image resolver is required")
	case deps.Categories == nil:
		return nil, errors.New("category source is required")
	case deps.Navigator == nil:
		return nil, errors.New("navigator is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	}

	opt.fillDefaults()
	root, stop := context.WithCancel(context.Background())
	return &Controller{
		posts:          deps.Posts,
		images:         deps.Images,
		categories:     deps.Categories,
		nav:            deps.Navigator,
		notifier:       deps.Notifier,
		opt:            opt,
		logger:         opt.Logger,
		root:           root,
		stop:           stop,
		submitDisabled: true,
		saveState:      SaveStateIdle,
	}, nil
}

// Navigate loads the variant named by params into a fresh session.
//
// Work still pending for the previous session is invalidated first. A missing
// post or variant redirects to the post list and returns model.ErrPostNotFound.
// ErrSuperseded is returned when another Navigate started before this one finished.
func (c *Controller) Navigate(ctx context.Context, params Params) error {
	logger := c.logger.With(
		zap.String("post", params.PostID),
		zap.String("lang", params.Language),
	)

	t, prevStream, err := c.beginNavigation()
	if err != nil {
		return err
	}
	if prevStream != nil {
		<-prevStream
	}

	fetchCtx, cancel := bindContext(ctx, t.ctx)
	doc, err := c.posts.FetchPost(fetchCtx, params.PostID)
	cancel()

	c.mu.Lock()
	if !c.isCurrentLocked(t) {
		c.mu.Unlock()
		logger.Debug("discard superseded load")
		return ErrSuperseded
	}

	if err != nil && !errors.Is(err, model.ErrPostNotFound) {
		c.mu.Unlock()
		logger.Error("fetch post", zap.Error(err))
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrapf(err, "fetch post `%s`", params.PostID)
	}

	variant, ok := doc.Variant(params.Language)
	if err != nil || !ok {
		c.mu.Unlock()
		logger.Info("post variant not found, redirect to list")
		c.nav.Redirect(ViewPosts, SubViewList)
		return errors.Wrapf(model.ErrPostNotFound, "post `%s` lang `%s`", params.PostID, params.Language)
	}

	s, err := newSession(params, variant, c.opt.PlaceholderImage)
	if err != nil {
		c.mu.Unlock()
		logger.Error("populate session", zap.Error(err))
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrap(err, "populate session")
	}

	c.session = s
	c.submitDisabled = false
	if variant.Image != "" {
		c.resolveImageLocked(t, s, variant.Image)
	}
	streamErr := c.openCategoryStreamLocked(t, params.Language)
	c.mu.Unlock()

	if streamErr != nil {
		logger.Error("open category stream", zap.Error(streamErr))
		c.notifier.Notify(NotifyError, streamErr.Error(), 0)
	}

	logger.Debug("post variant loaded")
	return nil
}

// beginNavigation flips the token and returns the done channel of the stream
// the caller must wait on before a new one may be opened.
func (c *Controller) beginNavigation() (*token, chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}

	if c.tok != nil {
		c.tok.cancel()
	}
	ctx, cancel := context.WithCancel(c.root)
	c.tok = &token{ctx: ctx, cancel: cancel}

	c.session = nil
	c.submitDisabled = true
	c.loading = false
	c.saveState = SaveStateIdle
	c.available = nil
	c.newCategory = ""

	return c.tok, c.streamDone, nil
}

func (c *Controller) isCurrentLocked(t *token) bool {
	return !c.closed && c.tok == t && t.ctx.Err() == nil
}

// Close tears the controller down. It releases the category stream and waits
// for pending background work. Calling Close again is a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	if c.tok != nil {
		c.tok.cancel()
	}
	c.session = nil
	c.submitDisabled = true
	done := c.streamDone
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.stop()
	c.bg.Wait()

	c.logger.Debug("editor closed")
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		AllStatus:              model.AllPostStatus(),
		AvailableCategories:    slices.Clone(c.available),
		NewCategory:            c.newCategory,
		CategorySubmitDisabled: c.categoryBusy,
		SubmitDisabled:         c.submitDisabled,
		Loading:                c.loading,
		SaveState:              c.saveState,
	}
	if snap.AvailableCategories == nil {
		snap.AvailableCategories = []model.Category{}
	}

	if s := c.session; s != nil {
		snap.Loaded = true
		snap.PostID = s.PostID
		snap.Language = s.Language
		snap.Title = s.Title
		snap.Content = s.Content
		snap.Status = s.Status
		snap.Slug = s.Slug
		snap.Date = s.PublishDate
		snap.ImageSrc = s.ImageSrc
		snap.HasPendingImage = s.PendingImage != nil
		snap.CheckedIDs = slices.Clone(s.Categories)
	}

	return snap
}

// edit runs fn against the live session under the lock.
func (c *Controller) edit(fn func(s *Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.session == nil {
		return ErrNoSession
	}

	return fn(c.session)
}

// SetTitle updates the title and re-derives the slug from it.
//
// The slug follows every title edit, overwriting manual slug edits, unless
// Options.PreserveManualSlug is set and the operator has edited the slug.
func (c *Controller) SetTitle(title string) error {
	return c.edit(func(s *Session) error {
		s.Title = title
		if !c.opt.PreserveManualSlug || s.autoSlug {
			s.Slug = slug.Make(title)
		}

		return nil
	})
}

// SetSlug sets the slug manually. The value is normalized like a derived slug.
func (c *Controller) SetSlug(v string) error {
	return c.edit(func(s *Session) error {
		s.Slug = slug.Make(v)
		s.autoSlug = false
		return nil
	})
}

// SetContent replaces the rich-text body.
func (c *Controller) SetContent(content string) error {
	return c.edit(func(s *Session) error {
		s.Content = content
		return nil
	})
}

// SetStatus sets the publish status.
func (c *Controller) SetStatus(status model.PostStatus) error {
	if !status.Valid() {
		return errors.Wrapf(ErrInvalidInput, "unknown status `%s`", status)
	}

	return c.edit(func(s *Session) error {
		s.Status = status
		return nil
	})
}

// SetDate sets the publish date, formatted as YYYY-MM-DD.
func (c *Controller) SetDate(date string) error {
	date = strings.TrimSpace(date)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return errors.Wrapf(ErrInvalidInput, "date `%s` is not YYYY-MM-DD", date)
	}

	return c.edit(func(s *Session) error {
		s.PublishDate = date
		return nil
	})
}

// ToggleCategory checks or unchecks a category id.
func (c *Controller) ToggleCategory(id string, checked bool) error {
	if id == "" {
		return errors.Wrap(ErrInvalidInput, "empty category id")
	}

	return c.edit(func(s *Session) error {
		s.toggleCategory(id, checked)
		return nil
	})
}

// SetNewCategory sets the label input of the category creation form.
func (c *Controller) SetNewCategory(label string) error {
	return c.edit(func(*Session) error {
		c.newCategory = label
		return nil
	})
}
