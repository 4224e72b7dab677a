package completion

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
)

// fakeBackend implements RecipeService and PhotoService and records calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	photoCount    int
	photoCountErr error
	uploadErrs    []error // consumed one per upload attempt
	persistErrs   []error // consumed one per persist call
	ratingErr     error
	uploaded      [][]byte
	savedPhoto    *domain.PhotoMetadata
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) nextPersistErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.persistErrs) == 0 {
		return nil
	}
	err := f.persistErrs[0]
	f.persistErrs = f.persistErrs[1:]
	return err
}

func (f *fakeBackend) GetRecipe(_ context.Context, id string) (*domain.RecipeSnapshot, error) {
	return &domain.RecipeSnapshot{ID: id}, nil
}

func (f *fakeBackend) MarkComplete(context.Context, string, time.Time) error {
	f.record("mark_complete")
	return f.nextPersistErr()
}

func (f *fakeBackend) SavePublicRecipe(context.Context, string, time.Time) error {
	f.record("save_public")
	return f.nextPersistErr()
}

func (f *fakeBackend) SaveToCollection(_ context.Context, _ string, photo *domain.PhotoMetadata, _ time.Time) error {
	f.record("save_collection")
	f.mu.Lock()
	f.savedPhoto = photo
	f.mu.Unlock()
	return f.nextPersistErr()
}

func (f *fakeBackend) SavedRecipes(context.Context) ([]domain.SavedRecipe, error) { return nil, nil }

func (f *fakeBackend) UserRating(context.Context, string) (*domain.Rating, error) { return nil, nil }

func (f *fakeBackend) SubmitRating(context.Context, string, int, string) error {
	f.record("rate")
	return f.ratingErr
}

func (f *fakeBackend) UploadPhoto(_ context.Context, _ string, data []byte) (*domain.PhotoMetadata, error) {
	f.record("upload")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.uploadErrs) > 0 {
		err := f.uploadErrs[0]
		f.uploadErrs = f.uploadErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.uploaded = append(f.uploaded, data)
	return &domain.PhotoMetadata{ID: "p1", URL: "/photos/p1.jpg"}, nil
}

func (f *fakeBackend) PhotoCount(context.Context, string) (int, error) {
	f.record("count")
	return f.photoCount, f.photoCountErr
}

func (f *fakeBackend) callsOf(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type noticeLog struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (n *noticeLog) Notify(_ context.Context, notice domain.Notice) error {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
	return nil
}

func (n *noticeLog) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notices))
	for i, notice := range n.notices {
		out[i] = notice.Title
	}
	return out
}

func newOrchestrator(t *testing.T, backend *fakeBackend, opts ...Option) (*Orchestrator, *noticeLog) {
	t.Helper()
	notices := &noticeLog{}
	opts = append([]Option{WithUploadBackoff(time.Millisecond)}, opts...)
	return New(backend, backend, notices, logger.New(logger.LevelOff, nil), opts...), notices
}

func testPNG(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

func privateInput() Input {
	return Input{Recipe: &domain.RecipeSnapshot{ID: "r1", Title: "Soup"}, UserID: "alice"}
}

func TestBeginAlreadyCompletedMarksComplete(t *testing.T) {
	backend := &fakeBackend{}
	o, _ := newOrchestrator(t, backend)

	cooked := time.Now().Add(-24 * time.Hour)
	in := privateInput()
	in.Recipe.CookedAt = &cooked

	out, err := o.Begin(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, domain.DecisionAlreadyCompleted, out.Decision)
	assert.Equal(t, domain.StageDone, out.Stage)
	require.NotNil(t, out.Exit)
	assert.Equal(t, 1, backend.callsOf("mark_complete"))
	assert.Zero(t, backend.callsOf("count"))
}

func TestRatingFlow(t *testing.T) {
	backend := &fakeBackend{}
	rec := metrics.New()
	o, _ := newOrchestrator(t, backend, WithRecorder(rec))

	in := Input{Recipe: &domain.RecipeSnapshot{ID: "r1", Title: "Soup", IsPublic: true, AuthorID: "bob"}, UserID: "alice"}
	out, err := o.Begin(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.Equal(t, domain.StageRating, out.Stage)

	_, err = o.SubmitRating(context.Background(), 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	assert.Equal(t, domain.StageRating, o.Stage())

	out, err = o.SubmitRating(context.Background(), 4, "tasty")
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("rate"))
	assert.Equal(t, 1, backend.callsOf("save_public"))
	assert.Zero(t, backend.callsOf("save_collection"))
}

func TestDeclineRatingReturnsToIdle(t *testing.T) {
	backend := &fakeBackend{}
	o, _ := newOrchestrator(t, backend)

	in := Input{Recipe: &domain.RecipeSnapshot{ID: "r1", IsPublic: true, AuthorID: "bob"}, UserID: "alice"}
	_, err := o.Begin(context.Background(), in)
	require.NoError(t, err)

	out, err := o.DeclineRating()
	require.NoError(t, err)
	assert.Equal(t, domain.StageIdle, out.Stage)
	assert.False(t, out.Completed)
	assert.Zero(t, backend.callsOf("rate"))

	// The flow can be started again.
	out, err = o.Begin(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRating, out.Stage)
}

func TestFailedRatingStaysInRating(t *testing.T) {
	backend := &fakeBackend{ratingErr: errors.New("boom")}
	o, notices := newOrchestrator(t, backend)

	in := Input{Recipe: &domain.RecipeSnapshot{ID: "r1", IsPublic: true, AuthorID: "bob"}, UserID: "alice"}
	_, err := o.Begin(context.Background(), in)
	require.NoError(t, err)

	_, err = o.SubmitRating(context.Background(), 5, "")
	require.Error(t, err)
	assert.Equal(t, domain.StageRating, o.Stage())
	assert.Zero(t, backend.callsOf("save_public"))
	assert.Contains(t, notices.titles(), "Rating not sent")
}

func TestPhotoUploadThenPersist(t *testing.T) {
	backend := &fakeBackend{photoCount: 1}
	o, _ := newOrchestrator(t, backend, WithPhotoLimits(32, 70))

	out, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)
	assert.Equal(t, domain.StagePhoto, out.Stage)

	out, err = o.SubmitPhoto(context.Background(), testPNG(t, 128, 64))
	require.NoError(t, err)
	assert.True(t, out.Completed)
	require.NotNil(t, out.Photo)
	assert.Equal(t, "p1", out.Photo.ID)

	require.Len(t, backend.uploaded, 1)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(backend.uploaded[0]))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
	assert.Equal(t, "p1", backend.savedPhoto.ID)
}

func TestPhotoRejectsNonImage(t *testing.T) {
	backend := &fakeBackend{}
	o, _ := newOrchestrator(t, backend)

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)

	_, err = o.SubmitPhoto(context.Background(), strings.NewReader("not an image"))
	require.Error(t, err)
	assert.Equal(t, domain.StagePhoto, o.Stage())
	assert.Zero(t, backend.callsOf("upload"))
}

func TestPhotoCapSkipsPhotoStage(t *testing.T) {
	backend := &fakeBackend{photoCount: domain.MaxDishPhotos}
	o, notices := newOrchestrator(t, backend)

	out, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("save_collection"))
	assert.Nil(t, backend.savedPhoto)
	assert.Contains(t, notices.titles(), "Photo limit reached")
}

func TestPhotoCountFallsBackToSnapshot(t *testing.T) {
	backend := &fakeBackend{photoCountErr: errors.New("offline")}
	o, _ := newOrchestrator(t, backend)

	in := privateInput()
	in.Recipe.Photos = make([]domain.DishPhoto, domain.MaxDishPhotos)

	out, err := o.Begin(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("save_collection"))
}

func TestUploadLimitFromServerPersistsWithoutPhoto(t *testing.T) {
	backend := &fakeBackend{uploadErrs: []error{&domain.LimitExceededError{Current: 3, Max: 3}}}
	o, _ := newOrchestrator(t, backend)

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)

	out, err := o.SubmitPhoto(context.Background(), testPNG(t, 8, 8))
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("upload"))
	assert.Nil(t, backend.savedPhoto)
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	backend := &fakeBackend{uploadErrs: []error{errors.New("reset"), errors.New("reset")}}
	o, _ := newOrchestrator(t, backend, WithUploadAttempts(3))

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)

	out, err := o.SubmitPhoto(context.Background(), testPNG(t, 8, 8))
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 3, backend.callsOf("upload"))
}

func TestUploadExhaustedThenRetryAndChange(t *testing.T) {
	fail := errors.New("unreachable")
	backend := &fakeBackend{uploadErrs: []error{fail, fail}}
	o, notices := newOrchestrator(t, backend, WithUploadAttempts(2))

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)

	out, err := o.SubmitPhoto(context.Background(), testPNG(t, 8, 8))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, domain.StageUploadFailed, out.Stage)
	assert.Equal(t, 2, backend.callsOf("upload"))
	assert.Zero(t, backend.callsOf("save_collection"))
	assert.Contains(t, notices.titles(), "Upload failed")

	out, err = o.ChangePhoto()
	require.NoError(t, err)
	assert.Equal(t, domain.StagePhoto, out.Stage)

	_, err = o.RetryUpload(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCompletionStage)

	out, err = o.SkipPhoto(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Nil(t, backend.savedPhoto)
}

func TestRetryUploadReusesPhoto(t *testing.T) {
	fail := errors.New("unreachable")
	backend := &fakeBackend{uploadErrs: []error{fail}}
	o, _ := newOrchestrator(t, backend, WithUploadAttempts(1))

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)
	_, err = o.SubmitPhoto(context.Background(), testPNG(t, 8, 8))
	require.Error(t, err)

	out, err := o.RetryUpload(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	require.Len(t, backend.uploaded, 1)
	_, err = jpeg.DecodeConfig(bytes.NewReader(backend.uploaded[0]))
	assert.NoError(t, err)
}

func TestPersistFailureRetryKeepsPhoto(t *testing.T) {
	backend := &fakeBackend{persistErrs: []error{errors.New("503")}}
	o, _ := newOrchestrator(t, backend)

	_, err := o.Begin(context.Background(), privateInput())
	require.NoError(t, err)

	out, err := o.SubmitPhoto(context.Background(), testPNG(t, 8, 8))
	require.Error(t, err)
	assert.Equal(t, domain.StagePersistFailed, out.Stage)
	assert.False(t, out.Completed)

	out, err = o.RetryPersist(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("upload"))
	assert.Equal(t, 2, backend.callsOf("save_collection"))
	require.NotNil(t, out.Photo)
	assert.Equal(t, "p1", backend.savedPhoto.ID)
}

func TestPersistFailureOnRatingPathRetriesSavePublic(t *testing.T) {
	backend := &fakeBackend{persistErrs: []error{errors.New("503")}}
	o, _ := newOrchestrator(t, backend)

	in := Input{Recipe: &domain.RecipeSnapshot{ID: "r1", IsPublic: true, AuthorID: "bob"}, UserID: "alice"}
	_, err := o.Begin(context.Background(), in)
	require.NoError(t, err)

	_, err = o.SubmitRating(context.Background(), 3, "")
	require.Error(t, err)

	out, err := o.RetryPersist(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, backend.callsOf("rate"))
	assert.Equal(t, 2, backend.callsOf("save_public"))
}

func TestBeginRequiresRecipeID(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeBackend{})

	_, err := o.Begin(context.Background(), Input{Recipe: &domain.RecipeSnapshot{}})
	require.Error(t, err)
	assert.True(t, domain.IsPrecondition(err))
}

func TestOperationsOutsideStageRejected(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeBackend{})

	_, err := o.SubmitRating(context.Background(), 5, "")
	assert.ErrorIs(t, err, domain.ErrNoCompletionStage)
	_, err = o.SkipPhoto(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCompletionStage)
	_, err = o.RetryPersist(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCompletionStage)
}

// blockingBackend holds PhotoCount until released so a second call can
// observe the in-flight operation.
type blockingBackend struct {
	fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) PhotoCount(ctx context.Context, id string) (int, error) {
	close(b.entered)
	<-b.release
	return b.fakeBackend.PhotoCount(ctx, id)
}

func TestConcurrentOperationIsPending(t *testing.T) {
	backend := &blockingBackend{entered: make(chan struct{}), release: make(chan struct{})}
	notices := &noticeLog{}
	o := New(backend, backend, notices, logger.New(logger.LevelOff, nil))

	done := make(chan error, 1)
	go func() {
		_, err := o.Begin(context.Background(), privateInput())
		done <- err
	}()

	<-backend.entered
	_, err := o.Begin(context.Background(), privateInput())
	assert.ErrorIs(t, err, domain.ErrCompletionPending)

	close(backend.release)
	require.NoError(t, <-done)
	assert.Equal(t, domain.StagePhoto, o.Stage())
}
