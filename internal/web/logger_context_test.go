package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	posts "github.com/mohamadflefel/JCCAdmin/internal/web/posts/controller"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
	"github.com/mohamadflefel/JCCAdmin/library/log"
)

func TestEngineAttachesRequestLogger(t *testing.T) {
	setupGinTestMode()

	sessions := posts.NewRegistry(log.Logger, func(fb *editor.Feedback) (*editor.Controller, error) {
		return nil, assert.AnError
	})
	engine := NewEngine(Options{}, posts.NewEditor(sessions, 1024))

	var hasLogger, hasGinCtx bool
	engine.GET("/probe", func(c *gin.Context) {
		logger := gmw.GetLogger(c)
		hasLogger = logger != nil
		_, hasGinCtx = gmw.GetGinCtxFromStdCtx(c)
		if logger != nil {
			logger.Debug("probe", zap.String("path", c.FullPath()))
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, hasLogger)
	require.True(t, hasGinCtx)
}
