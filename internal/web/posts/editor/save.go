package editor

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	"github.com/mohamadflefel/JCCAdmin/library/slug"
)

const (
	msgPostSlugAlreadyExists = "Post slug already exists"
	msgPostSlugInvalid       = "Post slug is empty or invalid"
	msgPostSaved             = "Post saved"
)

// contentPolicy strips scripts and unsafe attributes from the rich-text body
var contentPolicy = bluemonday.UGCPolicy()

// Save validates the slug and writes the session.
//
// The steps run strictly in order: the slug uniqueness query completes before
// any write is issued. A distinct post of the same language using the slug
// rejects the save with ErrDuplicateSlug. Uniqueness is checked by reading
// before writing, so two operators saving the same slug concurrently can both
// pass the check.
//
// Whatever the outcome, the submit control is enabled again afterwards.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.session == nil:
		c.mu.Unlock()
		return ErrNoSession
	case c.submitDisabled:
		c.mu.Unlock()
		return ErrSubmitDisabled
	}

	t := c.tok
	snap := c.session.clone()
	c.submitDisabled = true
	c.loading = true
	c.saveState = SaveStateValidating
	c.mu.Unlock()

	defer c.finishSave(t)

	logger := c.logger.With(
		zap.String("post", snap.PostID),
		zap.String("lang", snap.Language),
		zap.String("slug", snap.Slug),
	)

	if !slug.Valid(snap.Slug) {
		c.notifier.Notify(NotifyWarning, msgPostSlugInvalid, c.opt.NotifyDismiss)
		return errors.Wrapf(ErrInvalidInput, "slug `%s`", snap.Slug)
	}

	matches, err := c.posts.QueryPostsBySlug(ctx, snap.Language, snap.Slug)
	if err != nil {
		logger.Error("query posts by slug", zap.Error(err))
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrap(err, "query posts by slug")
	}

	if !c.isCurrent(t) {
		logger.Debug("session superseded during validation, skip write")
		return ErrSuperseded
	}

	for _, m := range matches {
		if m != nil && m.ID != snap.PostID {
			logger.Info("reject save, slug used by another post", zap.String("other", m.ID))
			c.notifier.Notify(NotifyWarning, msgPostSlugAlreadyExists, c.opt.NotifyDismiss)
			return errors.Wrapf(ErrDuplicateSlug, "slug `%s` used by post `%s`", snap.Slug, m.ID)
		}
	}

	rec, err := buildRecord(snap)
	if err != nil {
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrap(err, "build post record")
	}

	c.mu.Lock()
	if c.isCurrentLocked(t) {
		c.saveState = SaveStateWriting
	}
	c.mu.Unlock()

	if err = c.posts.EditPost(ctx, snap.PostID, rec); err != nil {
		logger.Error("edit post", zap.Error(err))
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrapf(err, "edit post `%s`", snap.PostID)
	}

	logger.Info("post saved", zap.Bool("new_image", rec.Image != nil))
	c.notifier.Notify(NotifySuccess, msgPostSaved, c.opt.NotifyDismiss)
	c.nav.Redirect(ViewPosts, SubViewList)
	return nil
}

// finishSave re-enables the submit control of the session that started the save.
func (c *Controller) finishSave(t *token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(t) {
		return
	}

	c.submitDisabled = false
	c.loading = false
	c.saveState = SaveStateIdle
}

// buildRecord assembles the outgoing edit from a session copy.
// The image is only set when a new file is pending, so the stored one is kept otherwise.
func buildRecord(s *Session) (*model.PostRecord, error) {
	date, err := time.Parse(dateLayout, s.PublishDate)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "date `%s` is not YYYY-MM-DD", s.PublishDate)
	}

	return &model.PostRecord{
		Language:   s.Language,
		Title:      s.Title,
		Slug:       s.Slug,
		Date:       date.UnixMilli(),
		Content:    contentPolicy.Sanitize(s.Content),
		Status:     s.Status,
		Categories: append([]string{}, s.Categories...),
		Image:      s.PendingImage,
	}, nil
}
