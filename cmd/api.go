package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/mohamadflefel/JCCAdmin/internal/web"
	posts "github.com/mohamadflefel/JCCAdmin/internal/web/posts/controller"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/dao"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
	"github.com/mohamadflefel/JCCAdmin/library/config"
	fsDB "github.com/mohamadflefel/JCCAdmin/library/db/firestore"
	minioDB "github.com/mohamadflefel/JCCAdmin/library/db/minio"
	mongoDB "github.com/mohamadflefel/JCCAdmin/library/db/mongo"
	redisDB "github.com/mohamadflefel/JCCAdmin/library/db/redis"
	"github.com/mohamadflefel/JCCAdmin/library/log"
)

const (
	backendFirestore = "firestore"
	backendMongo     = "mongo"

	dialTimeout = 30 * time.Second
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `http API of the post editor`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// backends are the store adapters shared by every editor session
type backends struct {
	posts      editor.PostStore
	categories editor.CategorySource
	images     editor.ImageResolver
	closers    []func(ctx context.Context) error
}

func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.Logger.Warn("close backend", zap.Error(err))
		}
	}
}

func runAPI(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	b, err := setupBackends(dialCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "setup backends")
	}
	defer b.close(context.Background())

	editorOpt := editor.OptionsFromConfig()
	sessions := posts.NewRegistry(log.Logger.Named("editor_sessions"),
		func(fb *editor.Feedback) (*editor.Controller, error) {
			return editor.New(editor.Deps{
				Posts:      b.posts,
				Images:     b.images,
				Categories: b.categories,
				Navigator:  fb,
				Notifier:   fb,
			}, editorOpt)
		})

	maxImageBytes := int64(editorOpt.MaxImageBytes)
	if maxImageBytes <= 0 {
		maxImageBytes = 10 * 1024 * 1024
	}

	return web.RunServer(ctx, web.OptionsFromConfig(), sessions, posts.NewEditor(sessions, maxImageBytes))
}

func setupBackends(ctx context.Context) (b *backends, err error) {
	b = new(backends)
	defer func() {
		if err != nil {
			b.close(context.Background())
		}
	}()

	images, err := setupImages(ctx, b)
	if err != nil {
		return nil, errors.Wrap(err, "setup images")
	}

	switch backend := gconfig.Shared.GetString("settings.store.backend"); backend {
	case "", backendFirestore:
		var opts []option.ClientOption
		if cred := gconfig.Shared.GetString("settings.db.firestore.credential_file"); cred != "" {
			opts = append(opts, option.WithCredentialsFile(config.ResolvePath(cred)))
		}

		db, err := fsDB.NewDB(ctx, gconfig.Shared.GetString("settings.db.firestore.project_id"), opts...)
		if err != nil {
			return nil, errors.Wrap(err, "new firestore")
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })

		store := dao.NewFirestore(log.Logger.Named("firestore_dao"), db, images)
		b.posts, b.categories = store, store
	case backendMongo:
		db, err := mongoDB.NewDB(ctx, mongoDB.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.db.mongo.addr"),
			DBName: gconfig.Shared.GetString("settings.db.mongo.db"),
			User:   gconfig.Shared.GetString("settings.db.mongo.user"),
			Pwd:    gconfig.Shared.GetString("settings.db.mongo.pwd"),
			AuthDB: gconfig.Shared.GetString("settings.db.mongo.auth_db"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "new mongo")
		}
		b.closers = append(b.closers, db.Close)

		poll := time.Duration(gconfig.Shared.GetInt("settings.categories.poll_interval_seconds")) * time.Second
		store := dao.NewMongo(log.Logger.Named("mongo_dao"), db, images, poll)
		b.posts, b.categories = store, store
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}

	log.Logger.Info("backends ready",
		zap.String("store", gconfig.Shared.GetString("settings.store.backend")),
		zap.Bool("url_cache", gconfig.Shared.GetString("settings.db.redis.addr") != ""))
	return b, nil
}

// setupImages connects minio, and puts the redis url cache in front of it when configured
func setupImages(ctx context.Context, b *backends) (*dao.Images, error) {
	store, err := minioDB.NewDB(minioDB.Config{
		Endpoint:  gconfig.Shared.GetString("settings.db.minio.endpoint"),
		AccessKey: gconfig.Shared.GetString("settings.db.minio.access_key"),
		SecretKey: gconfig.Shared.GetString("settings.db.minio.secret_key"),
		Bucket:    gconfig.Shared.GetString("settings.db.minio.bucket"),
		UseSSL:    gconfig.Shared.GetBool("settings.db.minio.use_ssl"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio")
	}

	images := dao.NewImages(log.Logger.Named("images"), store,
		gconfig.Shared.GetString("settings.db.minio.prefix"),
		time.Duration(gconfig.Shared.GetInt("settings.db.minio.url_expiry_seconds"))*time.Second)
	b.images = images

	addr := gconfig.Shared.GetString("settings.db.redis.addr")
	if addr == "" {
		return images, nil
	}

	rdb := redisDB.NewDB(&redis.Options{
		Addr:     addr,
		DB:       gconfig.Shared.GetInt("settings.db.redis.db"),
		Password: gconfig.Shared.GetString("settings.db.redis.pwd"),
	})
	b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })
	if err = rdb.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	ttl := urlCacheTTL(
		time.Duration(gconfig.Shared.GetInt("settings.db.redis.url_cache_ttl_seconds"))*time.Second,
		images.URLExpiry())
	b.images = dao.NewURLCache(log.Logger.Named("image_url_cache"), images, rdb, ttl)
	return images, nil
}

// urlCacheTTL keeps cached urls well inside their presign expiry
func urlCacheTTL(configured, expiry time.Duration) time.Duration {
	limit := expiry / 2
	if configured <= 0 || configured > limit {
		return limit
	}

	return configured
}
