// Package controller exposes post editor sessions over HTTP.
package controller

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/editor"
	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

const (
	requestTimeout = 30 * time.Second
	imageFormField = "image"
)

// languagePattern accepts codes like `en`, `fil` or `pt-BR`. Languages are
// used as document field names, so dots and `$` must never get through.
var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]+)?$`)

// Editor http handlers of the post editor
type Editor struct {
	sessions      *Registry
	maxImageBytes int64
}

// NewEditor create new editor handlers. Uploads larger than maxImageBytes are cut
// one byte past the limit, so the editor rejects them.
func NewEditor(sessions *Registry, maxImageBytes int64) *Editor {
	return &Editor{
		sessions:      sessions,
		maxImageBytes: maxImageBytes,
	}
}

// RegisterRoutes mounts the editor api on r
func (h *Editor) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/sessions")
	g.POST("", h.CreateSession)
	g.GET("/:sid", h.withSession(h.GetState))
	g.DELETE("/:sid", h.DeleteSession)
	g.PUT("/:sid/route", h.withSession(h.Navigate))
	g.PATCH("/:sid", h.withSession(h.PatchFields))
	g.PUT("/:sid/categories/:cid", h.withSession(h.ToggleCategory))
	g.POST("/:sid/categories", h.withSession(h.AddCategory))
	g.POST("/:sid/image", h.withSession(h.SelectImage))
	g.POST("/:sid/save", h.withSession(h.Save))
}

type stateResponse struct {
	Error         string                 `json:"error,omitempty"`
	State         editor.Snapshot        `json:"state"`
	Notifications []editor.Notification  `json:"notifications"`
	Redirect      *editor.RedirectTarget `json:"redirect,omitempty"`
}

type sessionHandler func(c *gin.Context, s *Session)

func (h *Editor) withSession(fn sessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.sessions.Get(c.Param("sid"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}

		fn(c, s)
	}
}

// CreateSession start a new editor session
func (h *Editor) CreateSession(c *gin.Context) {
	logger := gmw.GetLogger(c)
	s, err := h.sessions.Create()
	if err != nil {
		logger.Error("create editor session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID})
}

// DeleteSession close an editor session
func (h *Editor) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("sid")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetState return the editor state and drain its notifications
func (h *Editor) GetState(c *gin.Context, s *Session) {
	h.respond(c, s, nil)
}

// Navigate load the post variant named in the body
func (h *Editor) Navigate(c *gin.Context, s *Session) {
	params := editor.Params{}
	if err := c.ShouldBindJSON(&params); err != nil {
		h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "bind route: %s", err.Error()))
		return
	}
	if params.PostID == "" || params.Language == "" {
		h.respond(c, s, errors.Wrap(editor.ErrInvalidInput, "post_id and lang are required"))
		return
	}
	if !languagePattern.MatchString(params.Language) {
		h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "invalid lang `%s`", params.Language))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.respond(c, s, s.Editor.Navigate(ctx, params))
}

type fieldsRequest struct {
	Title       *string `json:"title"`
	Slug        *string `json:"slug"`
	Content     *string `json:"content"`
	Status      *string `json:"status"`
	Date        *string `json:"date"`
	NewCategory *string `json:"new_category"`
}

// PatchFields apply form edits. Title is applied before slug, so a slug sent
// along with a title wins over the derived one.
func (h *Editor) PatchFields(c *gin.Context, s *Session) {
	req := fieldsRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "bind fields: %s", err.Error()))
		return
	}

	var steps []func() error
	if req.Title != nil {
		steps = append(steps, func() error { return s.Editor.SetTitle(*req.Title) })
	}
	if req.Slug != nil {
		steps = append(steps, func() error { return s.Editor.SetSlug(*req.Slug) })
	}
	if req.Content != nil {
		steps = append(steps, func() error { return s.Editor.SetContent(*req.Content) })
	}
	if req.Status != nil {
		steps = append(steps, func() error { return s.Editor.SetStatus(model.PostStatus(*req.Status)) })
	}
	if req.Date != nil {
		steps = append(steps, func() error { return s.Editor.SetDate(*req.Date) })
	}
	if req.NewCategory != nil {
		steps = append(steps, func() error { return s.Editor.SetNewCategory(*req.NewCategory) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			h.respond(c, s, err)
			return
		}
	}

	h.respond(c, s, nil)
}

// ToggleCategory check or uncheck a category
func (h *Editor) ToggleCategory(c *gin.Context, s *Session) {
	req := struct {
		Checked bool `json:"checked"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "bind category: %s", err.Error()))
		return
	}

	h.respond(c, s, s.Editor.ToggleCategory(c.Param("cid"), req.Checked))
}

// AddCategory create a category from the label input, or from the label in the body
func (h *Editor) AddCategory(c *gin.Context, s *Session) {
	req := struct {
		Label *string `json:"label"`
	}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "bind category: %s", err.Error()))
			return
		}
	}
	if req.Label != nil {
		if err := s.Editor.SetNewCategory(*req.Label); err != nil {
			h.respond(c, s, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.respond(c, s, s.Editor.AddCategory(ctx))
}

// SelectImage attach the uploaded file as the pending cover image
func (h *Editor) SelectImage(c *gin.Context, s *Session) {
	fh, err := c.FormFile(imageFormField)
	if err != nil {
		h.respond(c, s, errors.Wrapf(editor.ErrInvalidInput, "read form file `%s`: %s", imageFormField, err.Error()))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respond(c, s, errors.Wrap(err, "open uploaded file"))
		return
	}
	defer f.Close() // nolint: errcheck

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		h.respond(c, s, errors.Wrap(err, "read uploaded file"))
		return
	}

	h.respond(c, s, s.Editor.SelectImage(&model.PendingImage{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}))
}

// Save validate and persist the session
func (h *Editor) Save(c *gin.Context, s *Session) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	h.respond(c, s, s.Editor.Save(ctx))
}

// respond writes the state with the drained feedback, err picks the status code
func (h *Editor) respond(c *gin.Context, s *Session, err error) {
	notes, redirect := s.Feedback.Drain()
	resp := stateResponse{
		State:         s.Editor.Snapshot(),
		Notifications: notes,
		Redirect:      redirect,
	}

	code := http.StatusOK
	if err != nil {
		code = statusOf(err)
		resp.Error = err.Error()
		logger := gmw.GetLogger(c).With(zap.String("session", s.ID))
		if code >= http.StatusInternalServerError {
			logger.Error("editor request failed", zap.Error(err))
		} else {
			logger.Debug("editor request rejected", zap.Int("status", code), zap.Error(err))
		}
	}

	c.JSON(code, resp)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, editor.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrDuplicateSlug),
		errors.Is(err, editor.ErrSubmitDisabled),
		errors.Is(err, editor.ErrSuperseded),
		errors.Is(err, editor.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, editor.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
