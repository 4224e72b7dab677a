package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
)

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithUploadAttempts sets how many times a photo upload is tried before
// the user has to retry, change, or skip.
func WithUploadAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.uploadAttempts = n
		}
	}
}

// WithUploadBackoff sets the initial wait between upload attempts.
func WithUploadBackoff(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.initialBackoff = d
	}
}

// WithPhotoLimits sets the longest photo edge in pixels and the JPEG quality.
func WithPhotoLimits(maxEdge, quality int) Option {
	return func(o *Orchestrator) {
		o.maxEdge = maxEdge
		o.quality = quality
	}
}

// WithClock overrides time.Now for cooked-at timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRecorder counts completions and uploads.
func WithRecorder(r *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

// persistPath names the call that records the cooked status.
type persistPath int

const (
	pathMarkComplete persistPath = iota
	pathSavePublic
	pathCollection
)

func (p persistPath) String() string {
	switch p {
	case pathSavePublic:
		return "rating"
	case pathCollection:
		return "photo"
	default:
		return "already_completed"
	}
}

// Outcome reports where the flow stands after an operation.
type Outcome struct {
	Decision  domain.CompletionDecision
	Stage     domain.CompletionStage
	Completed bool
	Exit      *domain.ExitNotice
	Photo     *domain.PhotoMetadata
}

// Orchestrator runs the finish flow for one session. Only one operation
// runs at a time; a call that arrives while another is in flight returns
// domain.ErrCompletionPending without touching the network.
type Orchestrator struct {
	recipes  domain.RecipeService
	photos   domain.PhotoService
	notifier domain.Notifier
	log      *logger.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	uploadAttempts int
	initialBackoff time.Duration
	maxEdge        int
	quality        int

	mu       sync.Mutex
	busy     bool
	stage    domain.CompletionStage
	decision domain.CompletionDecision
	input    Input
	path     persistPath
	pending  []byte                // compressed photo kept for upload retries
	photo    *domain.PhotoMetadata // uploaded photo kept for persist retries
}

// New creates an orchestrator with the given dependencies and options.
func New(recipes domain.RecipeService, photos domain.PhotoService, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		recipes:        recipes,
		photos:         photos,
		notifier:       notifier,
		log:            log,
		now:            time.Now,
		uploadAttempts: 3,
		initialBackoff: 500 * time.Millisecond,
		maxEdge:        1600,
		quality:        75,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() domain.CompletionStage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Begin decides the route for in and runs it as far as it can go without
// user input.
func (o *Orchestrator) Begin(ctx context.Context, in Input) (Outcome, error) {
	if err := o.acquire(domain.StageIdle); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	if in.Recipe == nil || in.Recipe.ID == "" {
		return o.outcome(), domain.NewPreconditionError("begin completion", domain.ErrMissingRecipeID)
	}

	decision := Decide(in)
	o.mu.Lock()
	o.input = in
	o.decision = decision
	o.photo = nil
	o.pending = nil
	o.mu.Unlock()

	o.log.Info("completion for %s: %s", in.Recipe.ID, decision)

	switch decision {
	case domain.DecisionAlreadyCompleted:
		return o.persist(ctx, pathMarkComplete, nil)
	case domain.DecisionNeedsRating:
		o.setStage(domain.StageRating)
		return o.outcome(), nil
	default:
		return o.offerPhoto(ctx)
	}
}

// SubmitRating records the rating, then saves the public recipe to the
// user's collection.
func (o *Orchestrator) SubmitRating(ctx context.Context, stars int, comment string) (Outcome, error) {
	if err := o.acquire(domain.StageRating); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	if stars < 1 || stars > 5 {
		return o.outcome(), domain.ErrInvalidRating
	}

	id := o.recipeID()
	if err := o.recipes.SubmitRating(ctx, id, stars, comment); err != nil {
		o.log.Error("submitting rating for %s: %v", id, err)
		o.notify(ctx, domain.NoticeError, "Rating not sent", "Could not send your rating. Try again.")
		return o.outcome(), fmt.Errorf("submitting rating: %w", err)
	}
	o.log.Info("rated %s with %d stars", id, stars)
	return o.persist(ctx, pathSavePublic, nil)
}

// DeclineRating closes the rating step without finishing. The session
// stays on its last step.
func (o *Orchestrator) DeclineRating() (Outcome, error) {
	if err := o.acquire(domain.StageRating); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	o.setStage(domain.StageIdle)
	o.log.Debug("rating declined")
	return o.outcome(), nil
}

// SubmitPhoto compresses and uploads a dish photo, then persists. Valid in
// the photo stage and after a failed upload (as a changed photo).
func (o *Orchestrator) SubmitPhoto(ctx context.Context, r io.Reader) (Outcome, error) {
	if err := o.acquire(domain.StagePhoto, domain.StageUploadFailed); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	data, err := Compress(r, o.maxEdge, o.quality)
	if err != nil {
		o.notify(ctx, domain.NoticeError, "Photo unreadable", "That file is not a photo we can use. Pick another one or skip.")
		return o.outcome(), err
	}

	o.mu.Lock()
	o.pending = data
	o.mu.Unlock()

	return o.upload(ctx)
}

// RetryUpload runs another upload round with the photo that failed.
func (o *Orchestrator) RetryUpload(ctx context.Context) (Outcome, error) {
	if err := o.acquire(domain.StageUploadFailed); err != nil {
		return o.outcome(), err
	}
	defer o.release()
	return o.upload(ctx)
}

// ChangePhoto drops the failed photo and goes back to the photo stage.
func (o *Orchestrator) ChangePhoto() (Outcome, error) {
	if err := o.acquire(domain.StageUploadFailed); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	o.setStage(domain.StagePhoto)
	return o.outcome(), nil
}

// SkipPhoto persists without a photo.
func (o *Orchestrator) SkipPhoto(ctx context.Context) (Outcome, error) {
	if err := o.acquire(domain.StagePhoto, domain.StageUploadFailed); err != nil {
		return o.outcome(), err
	}
	defer o.release()
	return o.persist(ctx, pathCollection, nil)
}

// RetryPersist repeats the persistence call that failed. Uploaded photo
// metadata is reused; nothing is uploaded again.
func (o *Orchestrator) RetryPersist(ctx context.Context) (Outcome, error) {
	if err := o.acquire(domain.StagePersistFailed); err != nil {
		return o.outcome(), err
	}
	defer o.release()

	o.mu.Lock()
	path, photo := o.path, o.photo
	o.mu.Unlock()
	return o.persist(ctx, path, photo)
}

// offerPhoto checks the photo count and either opens the photo stage or
// persists straight away when the recipe is full.
func (o *Orchestrator) offerPhoto(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	recipe := o.input.Recipe
	o.mu.Unlock()

	count, err := o.photos.PhotoCount(ctx, recipe.ID)
	if err != nil {
		if domain.IsPrecondition(err) {
			return o.outcome(), fmt.Errorf("counting photos: %w", err)
		}
		o.log.Warn("counting photos for %s: %v (using snapshot)", recipe.ID, err)
		count = len(recipe.Photos)
	}

	if count >= domain.MaxDishPhotos {
		o.log.Info("recipe %s already has %d photos, skipping photo step", recipe.ID, count)
		o.notify(ctx, domain.NoticeInfo, "Photo limit reached",
			fmt.Sprintf("This recipe already has %d dish photos.", domain.MaxDishPhotos))
		return o.persist(ctx, pathCollection, nil)
	}

	o.setStage(domain.StagePhoto)
	return o.outcome(), nil
}

// upload sends the pending photo under the retry budget. It always ends
// before any persistence call is made.
func (o *Orchestrator) upload(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	data := o.pending
	id := o.input.Recipe.ID
	o.mu.Unlock()

	if data == nil {
		return o.outcome(), domain.ErrNoCompletionStage
	}

	var meta *domain.PhotoMetadata
	attempt := 0
	op := func() error {
		attempt++
		m, err := o.photos.UploadPhoto(ctx, id, data)
		if err == nil {
			meta = m
			return nil
		}
		if _, limited := domain.IsLimitExceeded(err); limited || domain.IsPrecondition(err) {
			return backoff.Permanent(err)
		}
		o.metrics.PhotoUpload("error")
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(o.uploadAttempts-1)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		o.log.Warn("photo upload attempt %d/%d failed: %v (retrying in %s)", attempt, o.uploadAttempts, err, wait)
	})

	if err == nil {
		o.metrics.PhotoUpload("ok")
		o.log.Info("uploaded photo %s for %s", meta.ID, id)
		o.mu.Lock()
		o.pending = nil
		o.photo = meta
		o.mu.Unlock()
		return o.persist(ctx, pathCollection, meta)
	}

	if le, limited := domain.IsLimitExceeded(err); limited {
		o.metrics.PhotoUpload("limit")
		o.notify(ctx, domain.NoticeInfo, "Photo limit reached",
			fmt.Sprintf("This recipe already has %d of %d dish photos. Saving without yours.", le.Current, le.Max))
		o.mu.Lock()
		o.pending = nil
		o.mu.Unlock()
		return o.persist(ctx, pathCollection, nil)
	}

	if domain.IsPrecondition(err) {
		return o.outcome(), fmt.Errorf("uploading photo: %w", err)
	}

	o.log.Error("photo upload for %s failed after %d attempts: %v", id, attempt, err)
	o.setStage(domain.StageUploadFailed)
	o.notify(ctx, domain.NoticeError, "Upload failed", "Your photo could not be uploaded. Retry, pick another photo, or skip.")
	return o.outcome(), domain.NewTransientError(fmt.Errorf("uploading photo: %w", err))
}

// persist records the cooked status through the call that matches path.
func (o *Orchestrator) persist(ctx context.Context, path persistPath, photo *domain.PhotoMetadata) (Outcome, error) {
	o.mu.Lock()
	recipe := o.input.Recipe
	o.path = path
	o.mu.Unlock()

	cookedAt := o.now()
	var err error
	switch path {
	case pathMarkComplete:
		err = o.recipes.MarkComplete(ctx, recipe.ID, cookedAt)
	case pathSavePublic:
		err = o.recipes.SavePublicRecipe(ctx, recipe.ID, cookedAt)
	case pathCollection:
		err = o.recipes.SaveToCollection(ctx, recipe.ID, photo, cookedAt)
	}

	if err != nil {
		o.log.Error("persisting completion of %s (%s): %v", recipe.ID, path, err)
		o.setStage(domain.StagePersistFailed)
		o.notify(ctx, domain.NoticeError, "Not saved", "Could not save that you cooked this. Try finishing again.")
		if domain.IsPrecondition(err) {
			return o.outcome(), fmt.Errorf("persisting completion: %w", err)
		}
		return o.outcome(), domain.NewTransientError(fmt.Errorf("persisting completion: %w", err))
	}

	o.setStage(domain.StageDone)
	o.metrics.Completed(path.String())
	o.log.Info("completion of %s persisted (%s)", recipe.ID, path)

	exit := exitNotice(recipe.Title, path, photo != nil)
	o.notify(ctx, domain.NoticeSuccess, exit.Title, exit.Message)

	out := o.outcome()
	out.Completed = true
	out.Exit = exit
	out.Photo = photo
	return out, nil
}

func exitNotice(title string, path persistPath, withPhoto bool) *domain.ExitNotice {
	switch {
	case path == pathSavePublic:
		return &domain.ExitNotice{Title: "Thanks for rating", Message: fmt.Sprintf("%s was saved to your collection.", title)}
	case path == pathCollection && withPhoto:
		return &domain.ExitNotice{Title: "Dish saved", Message: fmt.Sprintf("%s was added to your collection with your photo.", title)}
	case path == pathCollection:
		return &domain.ExitNotice{Title: "Dish saved", Message: fmt.Sprintf("%s was added to your collection.", title)}
	default:
		return &domain.ExitNotice{Title: "Cooked again", Message: fmt.Sprintf("%s is marked as cooked.", title)}
	}
}

// acquire claims the orchestrator for one operation valid in the given
// stages.
func (o *Orchestrator) acquire(stages ...domain.CompletionStage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busy {
		return domain.ErrCompletionPending
	}
	for _, s := range stages {
		if o.stage == s {
			o.busy = true
			return nil
		}
	}
	return fmt.Errorf("%w: stage is %s", domain.ErrNoCompletionStage, o.stage)
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

func (o *Orchestrator) setStage(s domain.CompletionStage) {
	o.mu.Lock()
	o.stage = s
	o.mu.Unlock()
}

func (o *Orchestrator) recipeID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input.Recipe.ID
}

func (o *Orchestrator) outcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Outcome{Decision: o.decision, Stage: o.stage}
}

// notify sends a best-effort notice.
func (o *Orchestrator) notify(ctx context.Context, kind domain.NoticeKind, title, msg string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, domain.Notice{Kind: kind, Title: title, Message: msg}); err != nil && !errors.Is(err, context.Canceled) {
		o.log.Warn("notify %q: %v", title, err)
	}
}
