package api_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/guidedcook/internal/api"
	"github.com/hammamikhairi/guidedcook/internal/auth"
	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/recipe"
	"github.com/hammamikhairi/guidedcook/internal/server"
	"github.com/hammamikhairi/guidedcook/internal/storage"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	srv := server.New(recipe.NewMemorySource(log), storage.NewMemoryStore(log), log,
		server.WithTokens(map[string]string{"tok-alice": "alice", "tok-bob": "bob"}))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(ts *httptest.Server, token, user string) *api.Client {
	return api.NewClient(ts.URL, auth.Static(token, user), logger.New(logger.LevelOff, nil))
}

func TestGetRecipe(t *testing.T) {
	c := newClient(newBackend(t), "tok-alice", "alice")
	ctx := context.Background()

	r, err := c.GetRecipe(ctx, "steamed-rice")
	require.NoError(t, err)
	assert.Equal(t, "Steamed Rice", r.Title)
	require.Len(t, r.TimerHints, 3)
	assert.Equal(t, 0, *r.TimerHints[1])
	assert.False(t, r.AlreadySaved)

	_, err = c.GetRecipe(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMissingRecipeIDIsPrecondition(t *testing.T) {
	c := newClient(newBackend(t), "tok-alice", "alice")

	_, err := c.GetRecipe(context.Background(), "")
	assert.True(t, domain.IsPrecondition(err))
	assert.ErrorIs(t, err, domain.ErrMissingRecipeID)

	err = c.SaveToCollection(context.Background(), "", nil, time.Now())
	assert.True(t, domain.IsPrecondition(err))
}

func TestMissingTokenIsPrecondition(t *testing.T) {
	ts := newBackend(t)

	_, err := newClient(ts, "", "alice").SavedRecipes(context.Background())
	assert.True(t, domain.IsPrecondition(err))
	assert.ErrorIs(t, err, domain.ErrMissingCredential)

	_, err = newClient(ts, "wrong", "alice").SavedRecipes(context.Background())
	assert.True(t, domain.IsPrecondition(err), "401 must not be retried: %v", err)
}

func TestSaveAndCookedState(t *testing.T) {
	c := newClient(newBackend(t), "tok-alice", "alice")
	ctx := context.Background()
	cooked := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

	photo := &domain.PhotoMetadata{ID: "p9", URL: "/photos/p9"}
	require.NoError(t, c.SaveToCollection(ctx, "pancakes", photo, cooked))

	saved, err := c.SavedRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "pancakes", saved[0].RecipeID)
	assert.Equal(t, "p9", saved[0].Photo.ID)

	r, err := c.GetRecipe(ctx, "pancakes")
	require.NoError(t, err)
	assert.True(t, r.AlreadySaved)
	require.NotNil(t, r.CookedAt)
	assert.True(t, r.CookedAt.Equal(cooked))

	later := cooked.Add(time.Hour)
	require.NoError(t, c.MarkComplete(ctx, "pancakes", later))
	r, err = c.GetRecipe(ctx, "pancakes")
	require.NoError(t, err)
	assert.True(t, r.CookedAt.Equal(later))
}

func TestSavePublicAndRating(t *testing.T) {
	ts := newBackend(t)
	alice := newClient(ts, "tok-alice", "alice")
	bob := newClient(ts, "tok-bob", "bob")
	ctx := context.Background()

	rating, err := alice.UserRating(ctx, "tomato-soup")
	require.NoError(t, err)
	assert.Nil(t, rating)

	assert.Error(t, alice.SubmitRating(ctx, "tomato-soup", 9, ""))
	require.NoError(t, alice.SubmitRating(ctx, "tomato-soup", 5, "lovely"))

	rating, err = alice.UserRating(ctx, "tomato-soup")
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, 5, rating.Stars)

	rating, err = bob.UserRating(ctx, "tomato-soup")
	require.NoError(t, err)
	assert.Nil(t, rating)

	require.NoError(t, alice.SavePublicRecipe(ctx, "tomato-soup", time.Now()))
	assert.Error(t, alice.SavePublicRecipe(ctx, "pancakes", time.Now()), "private recipes cannot be saved as public")
}

func dishPNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(0, 0, color.Gray{Y: shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPhotoLimit(t *testing.T) {
	c := newClient(newBackend(t), "tok-alice", "alice")
	ctx := context.Background()

	for i := 0; i < domain.MaxDishPhotos; i++ {
		meta, err := c.UploadPhoto(ctx, "tomato-soup", dishPNG(t, uint8(i)))
		require.NoError(t, err)
		assert.NotEmpty(t, meta.ID)
	}

	n, err := c.PhotoCount(ctx, "tomato-soup")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = c.UploadPhoto(ctx, "tomato-soup", dishPNG(t, 0xff))
	le, ok := domain.IsLimitExceeded(err)
	require.True(t, ok, "expected limit error, got %v", err)
	assert.Equal(t, 3, le.Current)
	assert.Equal(t, 3, le.Max)

	r, err := c.GetRecipe(ctx, "tomato-soup")
	require.NoError(t, err)
	assert.Len(t, r.Photos, 3)
}

func TestServerErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	err := newClient(ts, "t", "u").MarkComplete(context.Background(), "x", time.Now())
	assert.True(t, domain.IsTransient(err))
}

func TestUnreachableIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := api.NewClient(url, auth.Static("t", "u"), logger.New(logger.LevelOff, nil), api.WithHTTPTimeout(time.Second))
	_, err := c.PhotoCount(context.Background(), "x")
	assert.True(t, domain.IsTransient(err))
}

func TestCancelledContextIsNotTransient(t *testing.T) {
	ts := newBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(ts, "tok-alice", "alice").SavedRecipes(ctx)
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
