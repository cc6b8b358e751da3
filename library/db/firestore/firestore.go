// Package firestore wraps the Cloud Firestore client.
package firestore

import (
	"context"

	fsSDK "cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mohamadflefel/JCCAdmin/library/log"
)

// DB is a firestore client bound to one project.
type DB struct {
	*fsSDK.Client
	projectID string
}

// NewDB create firestore client
func NewDB(ctx context.Context, projectID string, opts ...option.ClientOption) (db *DB, err error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is empty")
	}

	db = &DB{
		projectID: projectID,
	}
	var cli *fsSDK.Client
	if cli, err = fsSDK.NewClient(ctx, projectID, opts...); err != nil {
		return nil, errors.Wrap(err, "create firestore client")
	}

	log.Logger.Info("connected to firestore", zap.String("project", projectID))
	db.Client = cli
	return db, nil
}

// ProjectID returns the project the client is bound to.
func (db *DB) ProjectID() string {
	return db.projectID
}

// IsNotFound reports whether err is a firestore NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsCanceled reports whether err comes from a cancelled or expired context.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	switch status.Code(err) {
	case codes.Canceled, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
