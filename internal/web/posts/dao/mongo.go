package dao

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
	mongoDB "github.com/mohamadflefel/JCCAdmin/library/db/mongo"
)

const defaultPollInterval = 10 * time.Second

// Mongo posts and categories backed by MongoDB
type Mongo struct {
	logger       logSDK.Logger
	db           *mongoDB.DB
	images       ImageUploader
	pollInterval time.Duration
}

// NewMongo create new mongo dao.
// pollInterval paces category reloads when the server has no change streams.
func NewMongo(logger logSDK.Logger, db *mongoDB.DB, images ImageUploader, pollInterval time.Duration) *Mongo {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Mongo{
		logger:       logger,
		db:           db,
		images:       images,
		pollInterval: pollInterval,
	}
}

// GetPostsCol get posts collection
func (d *Mongo) GetPostsCol() *mongoLib.Collection {
	return d.db.GetCol(postsColName)
}

// GetCategoriesCol get categories collection
func (d *Mongo) GetCategoriesCol() *mongoLib.Collection {
	return d.db.GetCol(categoriesColName)
}

// FetchPost load one post document
func (d *Mongo) FetchPost(ctx context.Context, id string) (*model.PostDocument, error) {
	d.logger.Debug("FetchPost", zap.String("id", id))
	var raw bson.Raw
	err := d.GetPostsCol().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw)
	switch {
	case mongoDB.NotFound(err):
		return nil, errors.Wrapf(model.ErrPostNotFound, "post `%s`", id)
	case err != nil:
		return nil, errors.Wrapf(err, "load post `%s`", id)
	}

	return decodeMongoPost(raw)
}

// QueryPostsBySlug find posts whose lang variant uses slug
func (d *Mongo) QueryPostsBySlug(ctx context.Context, lang, slug string) ([]*model.PostDocument, error) {
	d.logger.Debug("QueryPostsBySlug", zap.String("lang", lang), zap.String("slug", slug))
	cur, err := d.GetPostsCol().Find(ctx, bson.D{{Key: lang + ".slug", Value: slug}})
	if err != nil {
		return nil, errors.Wrapf(err, "query posts by slug `%s`", slug)
	}
	defer cur.Close(ctx) // nolint: errcheck

	var posts []*model.PostDocument
	for cur.Next(ctx) {
		post, err := decodeMongoPost(cur.Current)
		if err != nil {
			return nil, err
		}

		posts = append(posts, post)
	}
	if err = cur.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate posts")
	}

	return posts, nil
}

// EditPost update the rec.Language variant of post id
func (d *Mongo) EditPost(ctx context.Context, id string, rec *model.PostRecord) error {
	logger := d.logger.With(zap.String("id", id), zap.String("lang", rec.Language))

	var imageRef string
	if rec.Image != nil {
		var err error
		if imageRef, err = d.images.Upload(ctx, id, rec.Language, rec.Image); err != nil {
			return errors.Wrap(err, "upload post image")
		}
	}

	set := mongoSetDoc(variantUpdates(rec, imageRef))
	set = append(set, bson.E{Key: fieldUpdatedAt, Value: time.Now().UTC()})

	res, err := d.GetPostsCol().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return errors.Wrapf(err, "update post `%s`", id)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(model.ErrPostNotFound, "post `%s`", id)
	}

	logger.Info("post variant updated", zap.String("image", imageRef))
	return nil
}

// StreamCategories watch the categories of lang.
// Servers without change streams, like a standalone mongod, are polled instead.
func (d *Mongo) StreamCategories(ctx context.Context, lang string) (editor.CategoryStream, error) {
	load := func(ctx context.Context) ([]model.Category, error) {
		return d.loadCategories(ctx, lang)
	}

	return startCategoryStream(ctx, func(ctx context.Context, emit emitFunc) error {
		cs, err := d.GetCategoriesCol().Watch(ctx, mongoLib.Pipeline{})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			d.logger.Info("change stream unavailable, poll categories",
				zap.String("lang", lang),
				zap.Duration("interval", d.pollInterval),
				zap.Error(err))
			return pollCategories(ctx, d.pollInterval, load, emit)
		}
		defer cs.Close(context.Background()) // nolint: errcheck

		cats, err := load(ctx)
		if err != nil {
			return err
		}
		if !emit(cats) {
			return nil
		}

		// every change reloads the whole list, deletes carry no document to filter on
		for cs.Next(ctx) {
			if cats, err = load(ctx); err != nil {
				return err
			}
			if !emit(cats) {
				return nil
			}
		}
		if err = cs.Err(); err != nil && ctx.Err() == nil {
			return errors.Wrap(err, "watch categories")
		}

		return nil
	}), nil
}

func (d *Mongo) loadCategories(ctx context.Context, lang string) ([]model.Category, error) {
	cur, err := d.GetCategoriesCol().Find(ctx,
		bson.D{{Key: "lang", Value: lang}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "find categories of `%s`", lang)
	}

	cats := []model.Category{}
	if err = cur.All(ctx, &cats); err != nil {
		return nil, errors.Wrapf(err, "decode categories of `%s`", lang)
	}

	return cats, nil
}

// CreateCategory add a new category
func (d *Mongo) CreateCategory(ctx context.Context, in *model.CategoryInput) error {
	cat := &model.Category{
		ID:        uuid.NewString(),
		Label:     in.Label,
		Slug:      in.Slug,
		Language:  in.Language,
		CreatedAt: time.Now().UTC().UnixMilli(),
	}
	if _, err := d.GetCategoriesCol().InsertOne(ctx, cat); err != nil {
		return errors.Wrapf(err, "insert category `%s`", in.Label)
	}

	d.logger.Debug("category added", zap.String("id", cat.ID))
	return nil
}

// pollCategories loads the categories every interval and emits them when they changed.
func pollCategories(ctx context.Context,
	interval time.Duration,
	load func(context.Context) ([]model.Category, error),
	emit emitFunc,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []model.Category
	for first := true; ; first = false {
		cats, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if first || !slices.Equal(cats, last) {
			if !emit(cats) {
				return nil
			}
			last = cats
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func mongoSetDoc(updates []fieldUpdate) bson.D {
	set := make(bson.D, 0, len(updates)+1)
	for _, u := range updates {
		set = append(set, bson.E{Key: strings.Join(u.path, "."), Value: u.value})
	}

	return set
}

// decodeMongoPost picks the language variants out of a raw document.
// Only embedded documents carrying a slug are treated as variants.
func decodeMongoPost(raw bson.Raw) (*model.PostDocument, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "read post document")
	}

	doc := &model.PostDocument{
		Variants: map[string]*model.PostVariant{},
	}
	for _, elem := range elems {
		key, val := elem.Key(), elem.Value()
		if key == "_id" {
			doc.ID, _ = val.StringValueOK()
			continue
		}
		if val.Type != bson.TypeEmbeddedDocument {
			continue
		}

		sub := val.Document()
		if _, err := sub.LookupErr("slug"); err != nil {
			continue
		}

		v := &model.PostVariant{}
		if err := bson.Unmarshal(sub, v); err != nil {
			return nil, errors.Wrapf(err, "decode variant `%s`", key)
		}
		if v.Categories == nil {
			v.Categories = []string{}
		}

		doc.Variants[key] = v
	}

	return doc, nil
}
