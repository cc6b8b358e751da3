package editor

import (
	"context"
	"time"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

// NotifyKind severity of a user notification
type NotifyKind string

const (
	NotifyInfo    NotifyKind = "info"
	NotifyWarning NotifyKind = "warning"
	NotifyError   NotifyKind = "error"
	NotifySuccess NotifyKind = "success"
)

const (
	// ViewPosts is the posts view targeted by redirects.
	ViewPosts = "posts"
	// SubViewList is the post list inside ViewPosts.
	SubViewList = "list"
)

// PostStore reads and writes post documents.
type PostStore interface {
	// FetchPost loads one document. It returns model.ErrPostNotFound when id does not exist.
	FetchPost(ctx context.Context, id string) (*model.PostDocument, error)
	// QueryPostsBySlug returns every post whose lang variant has slug.
	QueryPostsBySlug(ctx context.Context, lang, slug string) ([]*model.PostDocument, error)
	// EditPost writes rec into the rec.Language variant of post id.
	EditPost(ctx context.Context, id string, rec *model.PostRecord) error
}

// ImageResolver turns a stored image reference into a displayable url.
type ImageResolver interface {
	ResolveImageURL(ctx context.Context, ref string) (string, error)
}

// CategoryStream is a live, cancelable feed of a language's categories.
type CategoryStream interface {
	// Updates yields complete category lists. It is closed when the stream ends.
	Updates() <-chan []model.Category
	// Err returns the error that ended the stream, nil after a clean stop.
	Err() error
	// Close stops the stream and releases its resources.
	Close() error
}

// CategorySource streams and creates categories.
type CategorySource interface {
	// StreamCategories opens a stream bound to ctx. It must not block on the first emission.
	StreamCategories(ctx context.Context, lang string) (CategoryStream, error)
	CreateCategory(ctx context.Context, in *model.CategoryInput) error
}

// Navigator performs fire-and-forget view changes.
type Navigator interface {
	Redirect(view, subView string)
}

// Notifier shows fire-and-forget messages to the operator.
// autoDismiss of zero means the message stays until dismissed.
type Notifier interface {
	Notify(kind NotifyKind, msg string, autoDismiss time.Duration)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Posts      PostStore
	Images     ImageResolver
	Categories CategorySource
	Navigator  Navigator
	Notifier   Notifier
}
