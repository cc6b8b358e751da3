// Package dao adapts document stores, object storage and caches to the
// ports the post editor consumes.
//
// Posts are stored one document per post whose top-level keys are language
// codes, each mapping to a variant sub-document:
//
//	{"en": {"title": ..., "slug": ...}, "fr": {...}, "updatedAt": ...}
package dao

import (
	"context"
	"time"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

const (
	postsColName      = "posts"
	categoriesColName = "categories"

	fieldUpdatedAt = "updatedAt"
)

// ImageUploader stores a pending image and returns the reference saved in the post.
type ImageUploader interface {
	Upload(ctx context.Context, postID, lang string, img *model.PendingImage) (ref string, err error)
}

// fieldUpdate one field of a variant write, path is relative to the document root
type fieldUpdate struct {
	path  []string
	value any
}

// variantUpdates lists the fields EditPost writes. The image field is only
// included when imageRef is set, so the stored image survives otherwise.
func variantUpdates(rec *model.PostRecord, imageRef string) []fieldUpdate {
	lang := rec.Language
	categories := rec.Categories
	if categories == nil {
		categories = []string{}
	}

	updates := []fieldUpdate{
		{path: []string{lang, "title"}, value: rec.Title},
		{path: []string{lang, "slug"}, value: rec.Slug},
		{path: []string{lang, "date"}, value: rec.Date},
		{path: []string{lang, "content"}, value: rec.Content},
		{path: []string{lang, "status"}, value: string(rec.Status)},
		{path: []string{lang, "categories"}, value: categories},
	}
	if imageRef != "" {
		updates = append(updates, fieldUpdate{path: []string{lang, "image"}, value: imageRef})
	}

	return updates
}

// toMillis reads an epoch millisecond value the way stores hand numbers back.
func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case time.Time:
		return n.UnixMilli(), true
	default:
		return 0, false
	}
}
