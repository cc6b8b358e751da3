// Package web gin server
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	posts "github.com/mohamadflefel/JCCAdmin/internal/web/posts/controller"
	"github.com/mohamadflefel/JCCAdmin/library/log"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD"
	corsAllowHeaders = "Content-Type, Authorization, Accept, Origin, X-Requested-With"
	corsMaxAge       = "86400"

	shutdownTimeout = 10 * time.Second
)

// Options of the http server
type Options struct {
	Addr string
	// AllowedOrigins are domains, their subdomains are allowed too
	AllowedOrigins []string
	// SessionIdleTimeout closes editor sessions unused for this long, zero disables it
	SessionIdleTimeout time.Duration
}

// OptionsFromConfig reads `listen` and `settings.web.*`
func OptionsFromConfig() Options {
	return Options{
		Addr:           gconfig.Shared.GetString("listen"),
		AllowedOrigins: gconfig.Shared.GetStringSlice("settings.web.allowed_origins"),
		SessionIdleTimeout: time.Duration(
			gconfig.Shared.GetInt("settings.web.session_idle_timeout_seconds")) * time.Second,
	}
}

// NewEngine builds the gin engine serving the editor api under /api/editor
func NewEngine(opt Options, editor *posts.Editor) *gin.Engine {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(gmw.WithLogger(log.Logger.Named("gin"))),
		newCORS(opt.AllowedOrigins),
	)

	status := newStatusHandler()
	server.GET("/health", status)
	server.HEAD("/health", status)
	server.OPTIONS("/health", status)

	editor.RegisterRoutes(server.Group("/api/editor"))
	return server
}

// RunServer serves until ctx is done, then closes every editor session
func RunServer(ctx context.Context, opt Options, sessions *posts.Registry, editor *posts.Editor) error {
	srv := &http.Server{
		Addr:              opt.Addr,
		Handler:           NewEngine(opt, editor),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opt.SessionIdleTimeout > 0 {
		go sweepSessions(ctx, sessions, opt.SessionIdleTimeout)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info("listening on http", zap.String("addr", opt.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		sessions.CloseAll()
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	sessions.CloseAll()
	if err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	log.Logger.Info("http server stopped")
	return nil
}

func sweepSessions(ctx context.Context, sessions *posts.Registry, idle time.Duration) {
	ticker := time.NewTicker(max(idle/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := sessions.Sweep(idle); n > 0 {
			log.Logger.Info("closed idle editor sessions", zap.Int("n", n))
		}
	}
}

// newStatusHandler answers liveness probes
func newStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Allow", "GET, HEAD, OPTIONS")
		switch c.Request.Method {
		case http.MethodGet:
			c.String(http.StatusOK, "ok")
		default:
			c.Status(http.StatusOK)
		}
	}
}

// newCORS allows the configured domains and their subdomains
func newCORS(allowed []string) gin.HandlerFunc {
	domains := make([]string, 0, len(allowed))
	for _, d := range allowed {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}

	return func(ctx *gin.Context) {
		origin := strings.TrimSpace(ctx.Request.Header.Get("Origin"))
		if origin == "" {
			if ctx.Request.Method == http.MethodOptions {
				ctx.Header("Access-Control-Allow-Origin", "*")
				ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
				ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				ctx.Header("Access-Control-Max-Age", corsMaxAge)
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}

			ctx.Next()
			return
		}

		if !originAllowed(origin, domains) {
			// deny preflights from other origins
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}

			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
		ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		ctx.Header("Access-Control-Max-Age", corsMaxAge)
		ctx.Header("Vary", "Origin")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}

func originAllowed(origin string, domains []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}
