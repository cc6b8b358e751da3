package dao

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"google.golang.org/api/iterator"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	fsDB "github.com/mohamadflefel/JCCAdmin/library/db/firestore"
)

// Firestore posts and categories backed by Cloud Firestore
type Firestore struct {
	logger logSDK.Logger
	db     *fsDB.DB
	images ImageUploader
}

// NewFirestore create new firestore dao
func NewFirestore(logger logSDK.Logger, db *fsDB.DB, images ImageUploader) *Firestore {
	return &Firestore{
		logger: logger,
		db:     db,
		images: images,
	}
}

// GetPostsCol get posts collection
func (d *Firestore) GetPostsCol() *firestore.CollectionRef {
	return d.db.Collection(postsColName)
}

// GetCategoriesCol get categories collection
func (d *Firestore) GetCategoriesCol() *firestore.CollectionRef {
	return d.db.Collection(categoriesColName)
}

// FetchPost load one post document
func (d *Firestore) FetchPost(ctx context.Context, id string) (*model.PostDocument, error) {
	d.logger.Debug("FetchPost", zap.String("id", id))
	docu, err := d.GetPostsCol().Doc(id).Get(ctx)
	switch {
	case fsDB.IsNotFound(err):
		return nil, errors.Wrapf(model.ErrPostNotFound, "post `%s`", id)
	case err != nil:
		return nil, errors.Wrapf(err, "load post `%s`", id)
	}

	return decodeFirestorePost(docu.Ref.ID, docu.Data()), nil
}

// QueryPostsBySlug find posts whose lang variant uses slug
func (d *Firestore) QueryPostsBySlug(ctx context.Context, lang, slug string) ([]*model.PostDocument, error) {
	d.logger.Debug("QueryPostsBySlug", zap.String("lang", lang), zap.String("slug", slug))
	docus, err := d.GetPostsCol().
		WherePath(firestore.FieldPath{lang, "slug"}, "==", slug).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "query posts by slug `%s`", slug)
	}

	posts := make([]*model.PostDocument, 0, len(docus))
	for _, docu := range docus {
		posts = append(posts, decodeFirestorePost(docu.Ref.ID, docu.Data()))
	}

	return posts, nil
}

// EditPost update the rec.Language variant of post id.
// A pending image is uploaded first, the post keeps its stored image otherwise.
func (d *Firestore) EditPost(ctx context.Context, id string, rec *model.PostRecord) error {
	logger := d.logger.With(zap.String("id", id), zap.String("lang", rec.Language))

	var imageRef string
	if rec.Image != nil {
		var err error
		if imageRef, err = d.images.Upload(ctx, id, rec.Language, rec.Image); err != nil {
			return errors.Wrap(err, "upload post image")
		}
	}

	var updates []firestore.Update
	for _, u := range variantUpdates(rec, imageRef) {
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath(u.path),
			Value:     u.value,
		})
	}
	updates = append(updates, firestore.Update{
		Path:  fieldUpdatedAt,
		Value: firestore.ServerTimestamp,
	})

	_, err := d.GetPostsCol().Doc(id).Update(ctx, updates)
	switch {
	case fsDB.IsNotFound(err):
		return errors.Wrapf(model.ErrPostNotFound, "post `%s`", id)
	case err != nil:
		return errors.Wrapf(err, "update post `%s`", id)
	}

	logger.Info("post variant updated", zap.String("image", imageRef))
	return nil
}

// StreamCategories listen to the categories of lang
func (d *Firestore) StreamCategories(ctx context.Context, lang string) (editor.CategoryStream, error) {
	query := d.GetCategoriesCol().Where("lang", "==", lang)
	return startCategoryStream(ctx, func(ctx context.Context, emit emitFunc) error {
		it := query.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			switch {
			case ctx.Err() != nil, errors.Is(err, iterator.Done):
				return nil
			case err != nil:
				if fsDB.IsCanceled(err) {
					return nil
				}
				return errors.Wrapf(err, "listen categories of `%s`", lang)
			}

			docus, err := snap.Documents.GetAll()
			if err != nil {
				return errors.Wrap(err, "read categories snapshot")
			}

			cats := make([]model.Category, 0, len(docus))
			for _, docu := range docus {
				cats = append(cats, decodeFirestoreCategory(docu.Ref.ID, docu.Data()))
			}
			if !emit(cats) {
				return nil
			}
		}
	}), nil
}

// CreateCategory add a new category
func (d *Firestore) CreateCategory(ctx context.Context, in *model.CategoryInput) error {
	ref, _, err := d.GetCategoriesCol().Add(ctx, map[string]any{
		"label":     in.Label,
		"slug":      in.Slug,
		"lang":      in.Language,
		"createdAt": time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return errors.Wrapf(err, "add category `%s`", in.Label)
	}

	d.logger.Debug("category added", zap.String("id", ref.ID))
	return nil
}

// decodeFirestorePost picks the language variants out of a raw document.
// Only map fields carrying a slug are treated as variants.
func decodeFirestorePost(id string, data map[string]any) *model.PostDocument {
	doc := &model.PostDocument{
		ID:       id,
		Variants: map[string]*model.PostVariant{},
	}
	for key, val := range data {
		m, ok := val.(map[string]any)
		if !ok {
			continue
		}
		if _, ok = m["slug"]; !ok {
			continue
		}

		doc.Variants[key] = decodeFirestoreVariant(m)
	}

	return doc
}

func decodeFirestoreVariant(m map[string]any) *model.PostVariant {
	v := &model.PostVariant{
		Categories: []string{},
	}
	v.Title, _ = m["title"].(string)
	v.Content, _ = m["content"].(string)
	v.Slug, _ = m["slug"].(string)
	v.Image, _ = m["image"].(string)
	if status, ok := m["status"].(string); ok {
		v.Status = model.PostStatus(status)
	}
	v.Date, _ = toMillis(m["date"])

	if ids, ok := m["categories"].([]any); ok {
		for _, id := range ids {
			if s, ok := id.(string); ok {
				v.Categories = append(v.Categories, s)
			}
		}
	}

	return v
}

func decodeFirestoreCategory(id string, m map[string]any) model.Category {
	c := model.Category{ID: id}
	c.Label, _ = m["label"].(string)
	c.Slug, _ = m["slug"].(string)
	c.Language, _ = m["lang"].(string)
	c.CreatedAt, _ = toMillis(m["createdAt"])
	return c
}
