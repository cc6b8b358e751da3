// Package minio wraps an S3-compatible object store client bound to one bucket.
package minio

import (
	"bytes"
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes how to reach the bucket.
type Config struct {
	Endpoint,
	AccessKey,
	SecretKey,
	Bucket string
	UseSSL bool
}

// DB is a minio client bound to Config.Bucket.
type DB struct {
	cli    *minio.Client
	bucket string
}

// NewDB creates the client. It does not contact the server.
func NewDB(cfg Config) (*DB, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "new minio client for `%s`", cfg.Endpoint)
	}

	return &DB{cli: cli, bucket: cfg.Bucket}, nil
}

// Bucket returns the bound bucket name.
func (db *DB) Bucket() string {
	return db.bucket
}

// Put uploads data under key.
func (db *DB) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := db.cli.PutObject(ctx,
		db.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "put object `%s`", key)
	}

	return nil
}

// PresignGet returns a GET url for key that stays valid for expiry.
func (db *DB) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := db.cli.PresignedGetObject(ctx, db.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrapf(err, "presign object `%s`", key)
	}

	return u.String(), nil
}
