package dao

import (
	"context"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

const defaultURLExpiry = time.Hour

// objectStore the object storage calls Images relies on
type objectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Images stores post images in an object store and resolves them to presigned urls.
type Images struct {
	logger logSDK.Logger
	store  objectStore
	prefix string
	expiry time.Duration
}

// NewImages create images dao. Keys are created under prefix.
func NewImages(logger logSDK.Logger, store objectStore, prefix string, expiry time.Duration) *Images {
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	return &Images{
		logger: logger,
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		expiry: expiry,
	}
}

// URLExpiry returns how long resolved urls stay valid.
func (i *Images) URLExpiry() time.Duration {
	return i.expiry
}

// ResolveImageURL returns a displayable url for ref.
// Absolute http(s) references are returned as they are.
func (i *Images) ResolveImageURL(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref, nil
	}

	url, err := i.store.PresignGet(ctx, strings.TrimPrefix(ref, "/"), i.expiry)
	if err != nil {
		return "", errors.Wrapf(err, "resolve image `%s`", ref)
	}

	return url, nil
}

// Upload stores img under a fresh key of the post variant and returns the key.
func (i *Images) Upload(ctx context.Context, postID, lang string, img *model.PendingImage) (string, error) {
	key := imageKey(i.prefix, postID, lang, uuid.NewString(), img.Ext())
	contentType := imageContentType(img)
	if err := i.store.Put(ctx, key, img.Data, contentType); err != nil {
		return "", errors.Wrapf(err, "upload image `%s`", img.Name)
	}

	i.logger.Info("image uploaded",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(img.Data)))
	return key, nil
}

func imageKey(prefix, postID, lang, name, ext string) string {
	return path.Join(prefix, "posts", postID, lang, name+ext)
}

// imageContentType prefers the declared type, then the extension, then sniffing.
func imageContentType(img *model.PendingImage) string {
	if img.ContentType != "" {
		return img.ContentType
	}
	if t := mime.TypeByExtension(img.Ext()); t != "" {
		return t
	}

	return http.DetectContentType(img.Data)
}
