package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

type editCall struct {
	id  string
	rec *model.PostRecord
}

type fakePosts struct {
	mu           sync.Mutex
	docs         map[string]*model.PostDocument
	fetchGates   map[string]chan struct{}
	fetchStarted chan string
	fetchErr     error
	queryGate    chan struct{}
	queryStarted chan struct{}
	queryErr     error
	editErr      error
	edits        []editCall
}

func newFakePosts() *fakePosts {
	return &fakePosts{
		docs:         map[string]*model.PostDocument{},
		fetchGates:   map[string]chan struct{}{},
		fetchStarted: make(chan string, 64),
		queryStarted: make(chan struct{}, 64),
	}
}

func (p *fakePosts) put(id, lang string, v model.PostVariant) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.docs[id]
	if doc == nil {
		doc = &model.PostDocument{ID: id, Variants: map[string]*model.PostVariant{}}
		p.docs[id] = doc
	}
	doc.Variants[lang] = &v
}

func (p *fakePosts) gateFetch(id string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	gate := make(chan struct{})
	p.fetchGates[id] = gate
	return gate
}

// FetchPost ignores ctx on purpose, like a network call that is not aborted.
func (p *fakePosts) FetchPost(_ context.Context, id string) (*model.PostDocument, error) {
	p.mu.Lock()
	gate, err, doc := p.fetchGates[id], p.fetchErr, p.docs[id]
	p.mu.Unlock()

	select {
	case p.fetchStarted <- id:
	default:
	}
	if gate != nil {
		<-gate
	}

	switch {
	case err != nil:
		return nil, err
	case doc == nil:
		return nil, model.ErrPostNotFound
	}

	return doc, nil
}

func (p *fakePosts) QueryPostsBySlug(_ context.Context, lang, slug string) ([]*model.PostDocument, error) {
	p.mu.Lock()
	gate, err := p.queryGate, p.queryErr
	p.mu.Unlock()

	select {
	case p.queryStarted <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var found []*model.PostDocument
	for _, doc := range p.docs {
		if v, ok := doc.Variant(lang); ok && v.Slug == slug {
			found = append(found, doc)
		}
	}

	return found, nil
}

func (p *fakePosts) EditPost(_ context.Context, id string, rec *model.PostRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.editErr != nil {
		return p.editErr
	}

	p.edits = append(p.edits, editCall{id: id, rec: rec})
	return nil
}

func (p *fakePosts) editCalls() []editCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]editCall(nil), p.edits...)
}

type fakeImages struct {
	mu   sync.Mutex
	gate chan struct{}
	err  error
}

func (f *fakeImages) ResolveImageURL(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}

	return "https://cdn.test/" + ref, nil
}

type fakeStream struct {
	ctx     context.Context
	lang    string
	owner   *fakeCategories
	updates chan []model.Category
	err     error
	once    sync.Once
}

func (s *fakeStream) Updates() <-chan []model.Category { return s.updates }

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close() error {
	s.once.Do(s.owner.release)
	return nil
}

// emit delivers cats, it returns false when the stream was cancelled first.
func (s *fakeStream) emit(cats ...model.Category) bool {
	select {
	case s.updates <- cats:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *fakeStream) fail(err error) {
	s.err = err
	close(s.updates)
}

type fakeCategories struct {
	mu        sync.Mutex
	active    int
	maxActive int
	streams   []*fakeStream
	streamErr error
	createErr error
	created   []model.CategoryInput
}

func (f *fakeCategories) StreamCategories(ctx context.Context, lang string) (CategoryStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.streamErr != nil {
		return nil, f.streamErr
	}

	s := &fakeStream{ctx: ctx, lang: lang, owner: f, updates: make(chan []model.Category)}
	f.streams = append(f.streams, s)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	return s, nil
}

func (f *fakeCategories) CreateCategory(_ context.Context, in *model.CategoryInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	f.created = append(f.created, *in)
	return nil
}

func (f *fakeCategories) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
}

func (f *fakeCategories) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

func (f *fakeCategories) counts() (active, maxActive, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.maxActive, len(f.streams)
}

type fixture struct {
	posts  *fakePosts
	images *fakeImages
	cats   *fakeCategories
	fb     *Feedback
	ctrl   *Controller
}

func newFixture(t *testing.T, opt Options) *fixture {
	t.Helper()

	f := &fixture{
		posts:  newFakePosts(),
		images: &fakeImages{},
		cats:   &fakeCategories{},
		fb:     NewFeedback(nil),
	}

	ctrl, err := New(Deps{
		Posts:      f.posts,
		Images:     f.images,
		Categories: f.cats,
		Navigator:  f.fb,
		Notifier:   f.fb,
	}, opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	f.ctrl = ctrl
	return f
}

func variant(title, slug string) model.PostVariant {
	return model.PostVariant{
		Title:      title,
		Content:    "<p>" + title + "</p>",
		Status:     model.PostStatusDraft,
		Slug:       slug,
		Date:       testDate.UnixMilli(),
		Categories: []string{"c1"},
	}
}

// drainKinds returns the kinds of the recorded notifications and the redirect.
func (f *fixture) drainKinds() ([]NotifyKind, *RedirectTarget) {
	notes, redirect := f.fb.Drain()
	kinds := make([]NotifyKind, 0, len(notes))
	for _, n := range notes {
		kinds = append(kinds, n.Kind)
	}

	return kinds, redirect
}

// waitBackground blocks until pending image resolutions and previews have
// finished. Callers must not start new edits while it waits.
func (c *Controller) waitBackground() {
	c.bg.Wait()
}
