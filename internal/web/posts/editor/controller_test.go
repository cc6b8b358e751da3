package editor

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{}, Options{})
	require.Error(t, err)
}

func TestNavigateLoadsVariant(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))

	require.True(t, f.ctrl.Snapshot().SubmitDisabled)
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	snap := f.ctrl.Snapshot()
	require.True(t, snap.Loaded)
	require.Equal(t, "p1", snap.PostID)
	require.Equal(t, "en", snap.Language)
	require.Equal(t, "Hello", snap.Title)
	require.Equal(t, "<p>Hello</p>", snap.Content)
	require.Equal(t, model.PostStatusDraft, snap.Status)
	require.Equal(t, "hello", snap.Slug)
	require.Equal(t, "2024-03-15", snap.Date)
	require.Equal(t, []string{"c1"}, snap.CheckedIDs)
	require.Equal(t, emptyImage, snap.ImageSrc)
	require.False(t, snap.SubmitDisabled)
	require.Equal(t, SaveStateIdle, snap.SaveState)
	require.Equal(t, model.AllPostStatus(), snap.AllStatus)

	active, _, total := f.cats.counts()
	require.Equal(t, 1, active)
	require.Equal(t, 1, total)
	require.Equal(t, "en", f.cats.stream(0).lang)

	kinds, redirect := f.drainKinds()
	require.Empty(t, kinds)
	require.Nil(t, redirect)
}

func TestNavigateSessionIsACopy(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.ToggleCategory("c2", true))
	require.NoError(t, f.ctrl.SetTitle("Changed"))

	stored, _ := f.posts.docs["p1"].Variant("en")
	require.Equal(t, []string{"c1"}, stored.Categories)
	require.Equal(t, "Hello", stored.Title)
}

func TestNavigateResolvesImage(t *testing.T) {
	f := newFixture(t, Options{PlaceholderImage: "placeholder.png"})
	v := variant("Hello", "hello")
	v.Image = "posts/p1/en/cover.png"
	f.posts.put("p1", "en", v)

	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))
	f.ctrl.waitBackground()

	require.Equal(t, "https://cdn.test/posts/p1/en/cover.png", f.ctrl.Snapshot().ImageSrc)
}

func TestNavigateImageResolutionFailureNotifies(t *testing.T) {
	f := newFixture(t, Options{PlaceholderImage: "placeholder.png"})
	f.images.err = errors.New("bucket unreachable")
	v := variant("Hello", "hello")
	v.Image = "posts/p1/en/cover.png"
	f.posts.put("p1", "en", v)

	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))
	f.ctrl.waitBackground()

	require.Equal(t, "placeholder.png", f.ctrl.Snapshot().ImageSrc)
	kinds, _ := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyError}, kinds)
}

func TestNavigateMissingPostRedirects(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.ctrl.Navigate(context.Background(), Params{PostID: "nope", Language: "en"})
	require.ErrorIs(t, err, model.ErrPostNotFound)

	snap := f.ctrl.Snapshot()
	require.False(t, snap.Loaded)
	require.True(t, snap.SubmitDisabled)

	kinds, redirect := f.drainKinds()
	require.Empty(t, kinds)
	require.Equal(t, &RedirectTarget{View: ViewPosts, SubView: SubViewList}, redirect)

	_, _, total := f.cats.counts()
	require.Zero(t, total)
}

func TestNavigateMissingVariantRedirects(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	err := f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "fr"})
	require.ErrorIs(t, err, model.ErrPostNotFound)

	snap := f.ctrl.Snapshot()
	require.False(t, snap.Loaded)
	require.Empty(t, snap.AvailableCategories)

	_, redirect := f.drainKinds()
	require.NotNil(t, redirect)

	// the english stream was released and no french one opened
	active, _, total := f.cats.counts()
	require.Zero(t, active)
	require.Equal(t, 1, total)
}

func TestNavigateFetchErrorKeepsSubmitDisabled(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.fetchErr = errors.New("deadline exceeded")

	err := f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"})
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrPostNotFound)

	snap := f.ctrl.Snapshot()
	require.False(t, snap.Loaded)
	require.True(t, snap.SubmitDisabled)

	kinds, redirect := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyError}, kinds)
	require.Nil(t, redirect)
}

func TestNavigateDiscardsSupersededLoad(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("First", "first"))
	f.posts.put("p2", "en", variant("Second", "second"))
	gate := f.posts.gateFetch("p1")

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"})
	}()
	require.Equal(t, "p1", <-f.posts.fetchStarted)

	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p2", Language: "en"}))
	close(gate)
	require.ErrorIs(t, <-firstDone, ErrSuperseded)

	snap := f.ctrl.Snapshot()
	require.Equal(t, "p2", snap.PostID)
	require.Equal(t, "Second", snap.Title)

	_, maxActive, total := f.cats.counts()
	require.Equal(t, 1, total)
	require.Equal(t, 1, maxActive)
}

func TestNavigateDiscardsLateImageResolution(t *testing.T) {
	f := newFixture(t, Options{PlaceholderImage: "placeholder.png"})
	v := variant("First", "first")
	v.Image = "posts/p1/en/cover.png"
	f.posts.put("p1", "en", v)
	f.posts.put("p2", "en", variant("Second", "second"))

	gate := make(chan struct{})
	f.images.gate = gate

	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p2", Language: "en"}))
	close(gate)
	f.ctrl.waitBackground()

	snap := f.ctrl.Snapshot()
	require.Equal(t, "p2", snap.PostID)
	require.Equal(t, "placeholder.png", snap.ImageSrc)
}

func TestCategoryStreamAtMostOneActive(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	f.posts.put("p1", "fr", variant("Bonjour", "bonjour"))
	f.posts.put("p1", "de", variant("Hallo", "hallo"))

	ctx := context.Background()
	for _, lang := range []string{"en", "fr", "de", "en"} {
		require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: lang}))
		active, _, _ := f.cats.counts()
		require.Equal(t, 1, active)
	}

	active, maxActive, total := f.cats.counts()
	require.Equal(t, 1, active)
	require.Equal(t, 1, maxActive)
	require.Equal(t, 4, total)

	require.NoError(t, f.ctrl.Close())
	active, _, _ = f.cats.counts()
	require.Zero(t, active)
}

func TestCategoryEmissionsSortedAndScopedToSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	f.posts.put("p1", "fr", variant("Bonjour", "bonjour"))

	ctx := context.Background()
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "en"}))
	en := f.cats.stream(0)

	require.True(t, en.emit(
		model.Category{ID: "a", Language: "en", CreatedAt: 1},
		model.Category{ID: "b", Language: "en", CreatedAt: 3},
		model.Category{ID: "c", Language: "en", CreatedAt: 2},
	))
	require.Eventually(t, func() bool {
		return len(f.ctrl.Snapshot().AvailableCategories) == 3
	}, time.Second, 5*time.Millisecond)

	var ids []string
	for _, c := range f.ctrl.Snapshot().AvailableCategories {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []string{"b", "c", "a"}, ids)

	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "fr"}))
	require.Empty(t, f.ctrl.Snapshot().AvailableCategories)

	// the english stream is cancelled, its emissions go nowhere
	require.False(t, en.emit(model.Category{ID: "late", Language: "en"}))
	require.Empty(t, f.ctrl.Snapshot().AvailableCategories)

	fr := f.cats.stream(1)
	require.True(t, fr.emit(model.Category{ID: "x", Language: "fr", CreatedAt: 9}))
	require.Eventually(t, func() bool {
		cats := f.ctrl.Snapshot().AvailableCategories
		return len(cats) == 1 && cats[0].ID == "x"
	}, time.Second, 5*time.Millisecond)
}

func TestCategoryStreamFailureNotifies(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	f.cats.stream(0).fail(errors.New("permission denied"))
	require.Eventually(t, func() bool {
		active, _, _ := f.cats.counts()
		return active == 0
	}, time.Second, 5*time.Millisecond)

	kinds, _ := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyError}, kinds)
}

func TestCategoryStreamOpenFailureNotifies(t *testing.T) {
	f := newFixture(t, Options{})
	f.cats.streamErr = errors.New("quota exceeded")
	f.posts.put("p1", "en", variant("Hello", "hello"))

	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))
	require.False(t, f.ctrl.Snapshot().SubmitDisabled)

	kinds, _ := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyError}, kinds)
}

func TestSetTitleAlwaysDerivesSlug(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.SetTitle("Hello, World!"))
	require.Equal(t, "hello-world", f.ctrl.Snapshot().Slug)

	require.NoError(t, f.ctrl.SetSlug("My Custom Slug"))
	require.Equal(t, "my-custom-slug", f.ctrl.Snapshot().Slug)

	// a title keystroke overwrites the manual slug
	require.NoError(t, f.ctrl.SetTitle("Hello, World!!"))
	require.Equal(t, "hello-world", f.ctrl.Snapshot().Slug)
}

func TestSetTitlePreservesManualSlug(t *testing.T) {
	f := newFixture(t, Options{PreserveManualSlug: true})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	f.posts.put("p2", "en", variant("Hello", "legacy-slug"))

	ctx := context.Background()
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "en"}))
	require.NoError(t, f.ctrl.SetTitle("Hello, World!"))
	require.Equal(t, "hello-world", f.ctrl.Snapshot().Slug)

	require.NoError(t, f.ctrl.SetSlug("pinned"))
	require.NoError(t, f.ctrl.SetTitle("Something else"))
	require.Equal(t, "pinned", f.ctrl.Snapshot().Slug)

	// a stored slug that does not follow its title counts as manual
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p2", Language: "en"}))
	require.NoError(t, f.ctrl.SetTitle("Renamed"))
	require.Equal(t, "legacy-slug", f.ctrl.Snapshot().Slug)
}

func TestEditsRequireSession(t *testing.T) {
	f := newFixture(t, Options{})

	require.ErrorIs(t, f.ctrl.SetTitle("x"), ErrNoSession)
	require.ErrorIs(t, f.ctrl.SetContent("x"), ErrNoSession)
	require.ErrorIs(t, f.ctrl.ToggleCategory("c1", true), ErrNoSession)
	require.ErrorIs(t, f.ctrl.Save(context.Background()), ErrNoSession)
	require.ErrorIs(t, f.ctrl.AddCategory(context.Background()), ErrNoSession)
	require.ErrorIs(t, f.ctrl.SelectImage(&model.PendingImage{Name: "a.png", Data: []byte("x")}), ErrNoSession)
}

func TestFieldSetters(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.SetStatus(model.PostStatusPublished))
	require.ErrorIs(t, f.ctrl.SetStatus("archived"), ErrInvalidInput)

	require.NoError(t, f.ctrl.SetDate("2025-01-31"))
	require.ErrorIs(t, f.ctrl.SetDate("31/01/2025"), ErrInvalidInput)

	require.NoError(t, f.ctrl.SetContent("<p>body</p>"))

	require.NoError(t, f.ctrl.ToggleCategory("c2", true))
	require.NoError(t, f.ctrl.ToggleCategory("c2", true))
	require.NoError(t, f.ctrl.ToggleCategory("c1", false))
	require.ErrorIs(t, f.ctrl.ToggleCategory("", true), ErrInvalidInput)

	snap := f.ctrl.Snapshot()
	require.Equal(t, model.PostStatusPublished, snap.Status)
	require.Equal(t, "2025-01-31", snap.Date)
	require.Equal(t, "<p>body</p>", snap.Content)
	require.Equal(t, []string{"c2"}, snap.CheckedIDs)
}

func TestAddCategory(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	ctx := context.Background()
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.SetNewCategory("  Go News "))
	require.NoError(t, f.ctrl.AddCategory(ctx))
	require.Equal(t, []model.CategoryInput{{Label: "Go News", Slug: "go-news", Language: "en"}}, f.cats.created)

	snap := f.ctrl.Snapshot()
	require.Empty(t, snap.NewCategory)
	require.False(t, snap.CategorySubmitDisabled)
}

func TestAddCategoryFailureResetsForm(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	ctx := context.Background()
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "en"}))

	f.cats.createErr = errors.New("permission denied")
	require.NoError(t, f.ctrl.SetNewCategory("Go"))
	require.Error(t, f.ctrl.AddCategory(ctx))

	snap := f.ctrl.Snapshot()
	require.Empty(t, snap.NewCategory)
	require.False(t, snap.CategorySubmitDisabled)

	kinds, _ := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyError}, kinds)
}

func TestAddCategoryEmptyLabel(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	ctx := context.Background()
	require.NoError(t, f.ctrl.Navigate(ctx, Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.SetNewCategory("   "))
	require.ErrorIs(t, f.ctrl.AddCategory(ctx), ErrInvalidInput)
	require.Empty(t, f.cats.created)

	kinds, _ := f.drainKinds()
	require.Equal(t, []NotifyKind{NotifyWarning}, kinds)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	f.posts.put("p1", "en", variant("Hello", "hello"))
	require.NoError(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}))

	require.NoError(t, f.ctrl.Close())
	require.NoError(t, f.ctrl.Close())

	require.ErrorIs(t, f.ctrl.Navigate(context.Background(), Params{PostID: "p1", Language: "en"}), ErrClosed)
	require.ErrorIs(t, f.ctrl.SetTitle("x"), ErrClosed)
	require.False(t, f.ctrl.Snapshot().Loaded)

	active, _, _ := f.cats.counts()
	require.Zero(t, active)
}
