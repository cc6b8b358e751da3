// Package model contains the post editor's data types.
package model

import (
	"path"
	"strings"
)

// PostStatus publish status of a post variant
type PostStatus string

const (
	// PostStatusDraft not visible to readers
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished visible to readers
	PostStatusPublished PostStatus = "published"
	// PostStatusTrash soft deleted
	PostStatusTrash PostStatus = "trash"
)

// AllPostStatus returns every known status in display order.
func AllPostStatus() []PostStatus {
	return []PostStatus{PostStatusDraft, PostStatusPublished, PostStatusTrash}
}

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusTrash:
		return true
	default:
		return false
	}
}

// PostVariant one language of a post
type PostVariant struct {
	// Title title of the variant
	Title string `firestore:"title" bson:"title" json:"title"`
	// Content rich-text HTML body
	Content string `firestore:"content" bson:"content" json:"content"`
	// Status publish status
	Status PostStatus `firestore:"status" bson:"status" json:"status"`
	// Slug url slug, unique among variants of the same language
	Slug string `firestore:"slug" bson:"slug" json:"slug"`
	// Date publish date in epoch milliseconds
	Date int64 `firestore:"date" bson:"date" json:"date"`
	// Image stored blob reference, empty when the variant has no cover image
	Image string `firestore:"image,omitempty" bson:"image,omitempty" json:"image,omitempty"`
	// Categories ids of the checked categories
	Categories []string `firestore:"categories" bson:"categories" json:"categories"`
}

// PostDocument a multilingual post, keyed by language code
type PostDocument struct {
	ID       string
	Variants map[string]*PostVariant
}

// Variant returns the variant for lang.
func (d *PostDocument) Variant(lang string) (*PostVariant, bool) {
	if d == nil || d.Variants == nil {
		return nil, false
	}

	v, ok := d.Variants[lang]
	return v, ok && v != nil
}

// PendingImage a locally selected file that has not been uploaded yet
type PendingImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// Ext returns the lowercase file extension of the image name, including the dot.
func (p *PendingImage) Ext() string {
	return strings.ToLower(path.Ext(p.Name))
}

// PostRecord the outgoing edit of one post variant
type PostRecord struct {
	Language   string
	Title      string
	Slug       string
	Date       int64
	Content    string
	Status     PostStatus
	Categories []string
	// Image is nil when the stored image must stay unchanged
	Image *PendingImage
}
