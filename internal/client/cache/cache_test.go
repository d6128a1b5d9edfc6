package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/client/session"
	"github.com/atinyakov/safedrive/internal/models"
)

type fakeNotesAPI struct {
	ListFunc   func(ctx context.Context) ([]models.Note, error)
	SearchFunc func(ctx context.Context, query string) ([]models.Note, error)
	CreateFunc func(ctx context.Context, data models.NoteRequest) (models.Note, error)
	UpdateFunc func(ctx context.Context, id string, patch models.NoteRequest) (models.Note, error)
	DeleteFunc func(ctx context.Context, id string) error
	calls      int
}

func (f *fakeNotesAPI) List(ctx context.Context) ([]models.Note, error) {
	f.calls++
	return f.ListFunc(ctx)
}

func (f *fakeNotesAPI) Search(ctx context.Context, query string) ([]models.Note, error) {
	f.calls++
	return f.SearchFunc(ctx, query)
}

func (f *fakeNotesAPI) Create(ctx context.Context, data models.NoteRequest) (models.Note, error) {
	f.calls++
	return f.CreateFunc(ctx, data)
}

func (f *fakeNotesAPI) Update(ctx context.Context, id string, patch models.NoteRequest) (models.Note, error) {
	f.calls++
	return f.UpdateFunc(ctx, id, patch)
}

func (f *fakeNotesAPI) Delete(ctx context.Context, id string) error {
	f.calls++
	return f.DeleteFunc(ctx, id)
}

func listing(notes ...models.Note) func(context.Context) ([]models.Note, error) {
	return func(context.Context) ([]models.Note, error) { return notes, nil }
}

type notesCache = Cache[models.Note, models.NoteRequest, models.NoteRequest]

func newNotesCache(t *testing.T, api *fakeNotesAPI, cfg Config[models.NoteRequest, models.NoteRequest]) (*notesCache, *session.Epoch) {
	t.Helper()
	epoch := &session.Epoch{}
	epoch.Advance(true, nil)
	cfg.Kind = "notes"
	return New[models.Note, models.NoteRequest, models.NoteRequest](epoch, api, cfg), epoch
}

func ids(notes []models.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestCache_ListKeepsServerOrder(t *testing.T) {
	api := &fakeNotesAPI{ListFunc: listing(models.Note{ID: "b"}, models.Note{ID: "c"}, models.Note{ID: "a"})}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})

	c.List(context.Background())

	st := c.State()
	assert.Equal(t, []string{"b", "c", "a"}, ids(st.Items))
	assert.False(t, st.Loading)
	assert.NoError(t, st.LastError)
}

func TestCache_ListFailureKeepsItems(t *testing.T) {
	api := &fakeNotesAPI{ListFunc: listing(models.Note{ID: "a"})}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())

	boom := apierr.FromStatus(500, "")
	api.ListFunc = func(context.Context) ([]models.Note, error) { return nil, boom }
	c.List(context.Background())

	st := c.State()
	assert.Equal(t, []string{"a"}, ids(st.Items))
	assert.ErrorIs(t, st.LastError, boom)
	assert.False(t, st.Loading)

	api.ListFunc = listing(models.Note{ID: "z"})
	c.List(context.Background())
	assert.NoError(t, c.State().LastError)
}

func TestCache_LoadingWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	api := &fakeNotesAPI{ListFunc: func(context.Context) ([]models.Note, error) {
		close(started)
		<-release
		return []models.Note{{ID: "a"}}, nil
	}}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})

	done := make(chan struct{})
	go func() {
		c.List(context.Background())
		close(done)
	}()
	<-started
	assert.True(t, c.State().Loading)
	close(release)
	<-done
	assert.False(t, c.State().Loading)
}

func TestCache_SignedOutIsInert(t *testing.T) {
	api := &fakeNotesAPI{}
	c := New[models.Note, models.NoteRequest, models.NoteRequest](&session.Epoch{}, api, Config[models.NoteRequest, models.NoteRequest]{})

	c.List(context.Background())
	c.Search(context.Background(), "x")
	_, err := c.Create(context.Background(), models.NoteRequest{Title: "t"})
	assert.True(t, apierr.Is(err, apierr.KindAuth))
	assert.True(t, apierr.Is(c.Delete(context.Background(), "a"), apierr.KindAuth))
	assert.Zero(t, api.calls)
}

func TestCache_CreatePrepends(t *testing.T) {
	api := &fakeNotesAPI{
		ListFunc: listing(models.Note{ID: "a"}, models.Note{ID: "b"}),
		CreateFunc: func(_ context.Context, data models.NoteRequest) (models.Note, error) {
			return models.Note{ID: "new", Title: data.Title}, nil
		},
	}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())

	note, err := c.Create(context.Background(), models.NoteRequest{Title: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "new", note.ID)
	assert.Equal(t, []string{"new", "a", "b"}, ids(c.Items()))
}

func TestCache_CreateFailureLeavesItems(t *testing.T) {
	api := &fakeNotesAPI{
		ListFunc: listing(models.Note{ID: "a"}),
		CreateFunc: func(context.Context, models.NoteRequest) (models.Note, error) {
			return models.Note{}, apierr.FromStatus(400, "title is required")
		},
	}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())
	before := c.Items()

	_, err := c.Create(context.Background(), models.NoteRequest{Title: "x"})
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	assert.Equal(t, before, c.Items())
}

func TestCache_ValidationSkipsRequest(t *testing.T) {
	api := &fakeNotesAPI{}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{
		ValidateCreate: models.NoteRequest.Validate,
		ValidateUpdate: models.NoteRequest.Validate,
	})

	_, err := c.Create(context.Background(), models.NoteRequest{})
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	assert.ErrorIs(t, err, models.ErrTitleRequired)
	_, err = c.Update(context.Background(), "a", models.NoteRequest{})
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	assert.Zero(t, api.calls)
}

func TestCache_UpdateReplacesInPlace(t *testing.T) {
	api := &fakeNotesAPI{
		ListFunc: listing(models.Note{ID: "a"}, models.Note{ID: "b", Title: "old"}, models.Note{ID: "c"}),
		UpdateFunc: func(_ context.Context, id string, patch models.NoteRequest) (models.Note, error) {
			return models.Note{ID: id, Title: patch.Title}, nil
		},
	}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())

	_, err := c.Update(context.Background(), "b", models.NoteRequest{Title: "new"})
	require.NoError(t, err)
	items := c.Items()
	assert.Equal(t, []string{"a", "b", "c"}, ids(items))
	assert.Equal(t, "new", items[1].Title)
}

func TestCache_DeleteRemovesOnlyThatItem(t *testing.T) {
	var deleted []string
	api := &fakeNotesAPI{
		ListFunc:   listing(models.Note{ID: "a"}, models.Note{ID: "b"}, models.Note{ID: "c"}),
		DeleteFunc: func(context.Context, string) error { return nil },
	}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{
		OnDelete: func(id string) { deleted = append(deleted, id) },
	})
	c.List(context.Background())

	require.NoError(t, c.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, ids(c.Items()))
	assert.Equal(t, []string{"b"}, deleted)

	api.DeleteFunc = func(context.Context, string) error { return apierr.FromStatus(404, "") }
	err := c.Delete(context.Background(), "a")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
	assert.Equal(t, []string{"a", "c"}, ids(c.Items()))
	assert.Equal(t, []string{"b"}, deleted)
}

func TestCache_SearchReplacesAndFilterDoesNot(t *testing.T) {
	api := &fakeNotesAPI{
		ListFunc: listing(models.Note{ID: "a", Title: "Groceries"}, models.Note{ID: "b", Content: "grocery run"}, models.Note{ID: "c", Title: "Work"}),
		SearchFunc: func(_ context.Context, query string) ([]models.Note, error) {
			assert.Equal(t, "work", query)
			return []models.Note{{ID: "c", Title: "Work"}}, nil
		},
	}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())

	assert.Equal(t, []string{"a", "b"}, ids(c.Filter("GROCER")))
	assert.Len(t, c.Filter(" "), 3)
	assert.Len(t, c.Items(), 3)

	c.Search(context.Background(), " work ")
	assert.Equal(t, []string{"c"}, ids(c.Items()))

	c.Search(context.Background(), "")
	assert.Len(t, c.Items(), 3)
}

func TestCache_StaleListIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	api := &fakeNotesAPI{ListFunc: func(context.Context) ([]models.Note, error) {
		close(started)
		<-release
		return []models.Note{{ID: "from-old-session"}}, nil
	}}
	c, epoch := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})

	done := make(chan struct{})
	go func() {
		c.List(context.Background())
		close(done)
	}()
	<-started
	epoch.Advance(true, c.Reset)
	close(release)
	<-done

	st := c.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.Loading)
}

func TestCache_StaleMutationReturnsErrStale(t *testing.T) {
	var epoch *session.Epoch
	var c *notesCache
	api := &fakeNotesAPI{
		CreateFunc: func(context.Context, models.NoteRequest) (models.Note, error) {
			epoch.Advance(true, c.Reset)
			return models.Note{ID: "late"}, nil
		},
		DeleteFunc: func(context.Context, string) error {
			epoch.Advance(true, c.Reset)
			return nil
		},
	}
	deletes := 0
	c, epoch = newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{
		OnDelete: func(string) { deletes++ },
	})

	_, err := c.Create(context.Background(), models.NoteRequest{Title: "t"})
	assert.True(t, errors.Is(err, ErrStale))
	assert.Empty(t, c.Items())

	assert.ErrorIs(t, c.Delete(context.Background(), "x"), ErrStale)
	assert.Zero(t, deletes)
}

func TestCache_ResetClearsEverything(t *testing.T) {
	api := &fakeNotesAPI{ListFunc: func(context.Context) ([]models.Note, error) {
		return nil, apierr.FromStatus(503, "")
	}}
	c, _ := newNotesCache(t, api, Config[models.NoteRequest, models.NoteRequest]{})
	c.List(context.Background())
	require.Error(t, c.State().LastError)

	c.Reset()
	st := c.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.Loading)
	assert.NoError(t, st.LastError)

	_, ok := c.Get("a")
	assert.False(t, ok)
}
