package editor

import (
	"context"
	"slices"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	"github.com/mohamadflefel/JCCAdmin/library/slug"
)

// Params identify the post variant to edit.
type Params struct {
	PostID   string `json:"post_id"`
	Language string `json:"lang"`
}

// SaveState position of the save protocol
type SaveState string

const (
	SaveStateIdle       SaveState = "idle"
	SaveStateValidating SaveState = "validating"
	SaveStateWriting    SaveState = "writing"
)

// Session is the working copy of one post variant.
// A session is never reused: every navigation creates a new one.
type Session struct {
	PostID   string
	Language string

	Title       string
	Content     string
	Status      model.PostStatus
	Slug        string
	PublishDate string
	Categories  []string

	ImageSrc     string
	PendingImage *model.PendingImage

	// imageSeq increases on every image selection, stale previews compare against it
	imageSeq uint64
	// autoSlug is true while the slug follows the title
	autoSlug bool
}

func newSession(params Params, v *model.PostVariant, placeholder string) (*Session, error) {
	s := &Session{
		PostID:   params.PostID,
		Language: params.Language,
		ImageSrc: placeholder,
	}
	if err := copier.CopyWithOption(s, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "copy post variant")
	}

	s.PublishDate = time.UnixMilli(v.Date).UTC().Format(dateLayout)
	if s.Categories == nil {
		s.Categories = []string{}
	}
	s.autoSlug = s.Slug == slug.Make(s.Title)

	return s, nil
}

// clone copies the fields the save protocol reads.
func (s *Session) clone() *Session {
	cp := *s
	cp.Categories = slices.Clone(s.Categories)
	return &cp
}

func (s *Session) toggleCategory(id string, checked bool) {
	idx := slices.Index(s.Categories, id)
	switch {
	case checked && idx == -1:
		s.Categories = append(s.Categories, id)
	case !checked && idx != -1:
		s.Categories = slices.Delete(s.Categories, idx, idx+1)
	}
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Loaded bool `json:"loaded"`

	PostID          string             `json:"post_id,omitempty"`
	Language        string             `json:"lang,omitempty"`
	Title           string             `json:"title"`
	Content         string             `json:"content"`
	Status          model.PostStatus   `json:"status"`
	Slug            string             `json:"slug"`
	Date            string             `json:"date"`
	ImageSrc        string             `json:"image_src"`
	HasPendingImage bool               `json:"has_pending_image"`
	CheckedIDs      []string           `json:"categories"`
	AllStatus       []model.PostStatus `json:"all_status"`

	AvailableCategories    []model.Category `json:"available_categories"`
	NewCategory            string           `json:"new_category"`
	CategorySubmitDisabled bool             `json:"category_submit_disabled"`

	SubmitDisabled bool      `json:"submit_disabled"`
	Loading        bool      `json:"loading"`
	SaveState      SaveState `json:"save_state"`
}

// token marks the liveness of one navigation. It is compared by identity.
type token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// bindContext returns a child of ctx that is also cancelled when tokenCtx is done.
func bindContext(ctx, tokenCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(tokenCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
