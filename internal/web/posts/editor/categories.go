package editor

import (
	"context"
	"slices"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	"github.com/mohamadflefel/JCCAdmin/library/slug"
)

// openCategoryStreamLocked opens the stream of lang bound to t.
// The caller must have waited for the previous stream to be released.
func (c *Controller) openCategoryStreamLocked(t *token, lang string) error {
	stream, err := c.categories.StreamCategories(t.ctx, lang)
	if err != nil {
		return errors.Wrapf(err, "stream categories of `%s`", lang)
	}

	done := make(chan struct{})
	c.streamDone = done
	go c.consumeCategories(t, stream, done)
	return nil
}

func (c *Controller) consumeCategories(t *token, stream CategoryStream, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn("close category stream", zap.Error(err))
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			return
		case cats, ok := <-stream.Updates():
			if !ok {
				if err := stream.Err(); err != nil && c.isCurrent(t) {
					c.logger.Error("category stream stopped", zap.Error(err))
					c.notifier.Notify(NotifyError, err.Error(), 0)
				}
				return
			}

			c.applyCategories(t, cats)
		}
	}
}

// applyCategories publishes cats, newest first, if t is still current.
func (c *Controller) applyCategories(t *token, cats []model.Category) {
	sorted := slices.Clone(cats)
	slices.SortStableFunc(sorted, func(a, b model.Category) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		default:
			return 0
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(t) {
		return
	}

	c.available = sorted
}

func (c *Controller) isCurrent(t *token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCurrentLocked(t)
}

// AddCategory creates a category from the label input in the session language.
//
// The category submit control is disabled during the call and re-enabled
// afterwards, and the input is cleared, whatever the outcome.
func (c *Controller) AddCategory(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.session == nil:
		c.mu.Unlock()
		return ErrNoSession
	case c.categoryBusy:
		c.mu.Unlock()
		return ErrSubmitDisabled
	}

	t := c.tok
	label := strings.TrimSpace(c.newCategory)
	if label == "" {
		c.newCategory = ""
		c.mu.Unlock()
		c.notifier.Notify(NotifyWarning, "Category label is empty", c.opt.NotifyDismiss)
		return errors.Wrap(ErrInvalidInput, "empty category label")
	}

	in := &model.CategoryInput{
		Label:    label,
		Slug:     slug.Make(label),
		Language: c.session.Language,
	}
	c.categoryBusy = true
	c.mu.Unlock()

	err := c.categories.CreateCategory(ctx, in)

	c.mu.Lock()
	c.categoryBusy = false
	if c.isCurrentLocked(t) {
		c.newCategory = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("create category",
			zap.String("label", in.Label),
			zap.String("lang", in.Language),
			zap.Error(err))
		c.notifier.Notify(NotifyError, err.Error(), 0)
		return errors.Wrap(err, "create category")
	}

	c.logger.Info("category created",
		zap.String("slug", in.Slug),
		zap.String("lang", in.Language))
	return nil
}
