// Package engine implements the guided cooking session: the preparation,
// cooking and completed phases, step navigation, the per-step auto timer,
// and the hand-off to the completion flow.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hammamikhairi/guidedcook/internal/completion"
	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
	"github.com/hammamikhairi/guidedcook/internal/timer"
)

// Deps are the collaborators a session talks to.
type Deps struct {
	Recipes  domain.RecipeService
	Photos   domain.PhotoService
	Auth     domain.AuthProvider
	Notifier domain.Notifier
	Alerter  domain.Alerter
}

// Option configures a session.
type Option func(*Session)

// WithRecorder counts session, step, timer and completion events.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Session) {
		s.metrics = r
	}
}

// WithLookupTimeout bounds the mount-time lookups.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.lookupTimeout = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithTimerOptions passes options to the session's countdown.
func WithTimerOptions(opts ...timer.Option) Option {
	return func(s *Session) {
		s.timerOpts = append(s.timerOpts, opts...)
	}
}

// WithCompletionOptions passes options to the completion flow.
func WithCompletionOptions(opts ...completion.Option) Option {
	return func(s *Session) {
		s.completionOpts = append(s.completionOpts, opts...)
	}
}

// Session is one guided cooking run of a single recipe. All methods are
// safe for concurrent use. Network calls are never made while the session
// lock is held.
type Session struct {
	id     string
	recipe *domain.RecipeSnapshot
	deps   Deps
	host   domain.Host
	log    *logger.Logger

	metrics        *metrics.Recorder
	now            func() time.Time
	lookupTimeout  time.Duration
	timerOpts      []timer.Option
	completionOpts []completion.Option

	timer    *timer.Countdown
	finisher *completion.Orchestrator

	// ctx is cancelled on teardown so in-flight calls stop and their
	// results are dropped.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	userID      string
	mounted     bool
	lookups     *lookups
	phase       domain.Phase
	checked     []bool
	step        int
	evaluated   bool // auto-start already evaluated for this step entry
	autoStarted bool
	finishing   bool
	closed      bool
	startedAt   time.Time
	updatedAt   time.Time
}

// New creates a session for recipe. Call Mount before using it.
func New(recipe *domain.RecipeSnapshot, deps Deps, host domain.Host, log *logger.Logger, opts ...Option) *Session {
	s := &Session{
		id:            generateID(),
		recipe:        recipe,
		deps:          deps,
		host:          host,
		log:           log,
		now:           time.Now,
		lookupTimeout: 5 * time.Second,
		checked:       make([]bool, len(recipe.Ingredients)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == nil {
		s.host = domain.HostFuncs{}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.timer = timer.New(deps.Alerter, deps.Notifier, log.Named("timer"),
		append([]timer.Option{timer.WithRecorder(s.metrics)}, s.timerOpts...)...)
	s.finisher = completion.New(deps.Recipes, deps.Photos, deps.Notifier, log.Named("completion"),
		append([]completion.Option{completion.WithRecorder(s.metrics), completion.WithClock(s.now)}, s.completionOpts...)...)

	s.startedAt = s.now()
	s.updatedAt = s.startedAt
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mount validates the recipe, resolves the current user and starts the
// background lookups. It does not block on the lookups.
func (s *Session) Mount(ctx context.Context) error {
	if err := s.recipe.Validate(); err != nil {
		return err
	}
	if s.deps.Auth == nil {
		return domain.NewPreconditionError("mount session", domain.ErrMissingCredential)
	}
	cred, err := s.deps.Auth.Credential(ctx)
	if err != nil {
		return domain.NewPreconditionError("mount session", fmt.Errorf("resolving credential: %w", err))
	}
	if cred.Token == "" || cred.UserID == "" {
		return domain.NewPreconditionError("mount session", domain.ErrMissingCredential)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.mounted {
		return nil
	}
	s.mounted = true
	s.userID = cred.UserID
	s.lookups = startLookups(s.ctx, s.deps.Recipes, s.recipe, cred.UserID, s.lookupTimeout, s.log.Named("lookups"))
	s.metrics.SessionMounted()

	s.log.Info("session %s mounted for %q (%d ingredients, %d steps)",
		s.id, s.recipe.Title, len(s.recipe.Ingredients), len(s.recipe.Instructions))
	return nil
}

// ToggleIngredient flips the checked state of ingredient i.
func (s *Session) ToggleIngredient(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhaseLocked(domain.PhasePreparation); err != nil {
		return err
	}
	if i < 0 || i >= len(s.checked) {
		return fmt.Errorf("%w: %d", domain.ErrIngredientIndex, i)
	}
	s.checked[i] = !s.checked[i]
	s.touchLocked()
	return nil
}

// StartCooking enters the cooking phase at the first step once every
// ingredient is checked.
func (s *Session) StartCooking() error {
	s.mu.Lock()
	if err := s.requirePhaseLocked(domain.PhasePreparation); err != nil {
		s.mu.Unlock()
		return err
	}
	missing := 0
	for _, c := range s.checked {
		if !c {
			missing++
		}
	}
	if missing > 0 {
		s.mu.Unlock()
		s.notify(domain.NoticeWarning, "Not ready yet",
			fmt.Sprintf("Check all ingredients first (%d left).", missing))
		return domain.ErrIngredientsNotReady
	}

	s.phase = domain.PhaseCooking
	s.step = 0
	s.enterStepLocked()
	s.mu.Unlock()

	s.log.Info("session %s cooking", s.id)
	return nil
}

// AdvanceStep moves to the next step. On the last step it runs the
// completion flow instead.
func (s *Session) AdvanceStep(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requirePhaseLocked(domain.PhaseCooking); err != nil {
		s.mu.Unlock()
		return err
	}
	total := len(s.recipe.Instructions)
	if total == 0 {
		s.mu.Unlock()
		return domain.ErrNoSteps
	}
	if s.step < total-1 {
		s.leaveStepLocked()
		s.step++
		s.enterStepLocked()
		s.metrics.StepChanged("forward")
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	switch stage := s.finisher.Stage(); stage {
	case domain.StageIdle:
		return s.finish(ctx, s.beginCompletion)
	case domain.StagePersistFailed:
		return s.finish(ctx, s.finisher.RetryPersist)
	default:
		s.log.Debug("advance on last step ignored while completion waits in %s", stage)
		return nil
	}
}

// RetreatStep moves to the previous step. It does nothing on the first.
// Once the finish flow has started the session is pinned to the last
// step until the flow returns to idle.
func (s *Session) RetreatStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhaseLocked(domain.PhaseCooking); err != nil {
		return err
	}
	if s.finishing {
		return domain.ErrCompletionPending
	}
	if stage := s.finisher.Stage(); stage != domain.StageIdle {
		return fmt.Errorf("%w: cannot go back while %s", domain.ErrNoCompletionStage, stage)
	}
	if s.step == 0 {
		return nil
	}
	s.leaveStepLocked()
	s.step--
	s.enterStepLocked()
	s.metrics.StepChanged("back")
	return nil
}

// StartTimer starts a manual countdown, replacing any running one.
func (s *Session) StartTimer(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhaseLocked(domain.PhaseCooking); err != nil {
		return err
	}
	if err := s.timer.Start(minutes, domain.TimerSourceManual); err != nil {
		return err
	}
	s.autoStarted = false
	s.touchLocked()
	return nil
}

// StopTimer pauses the countdown.
func (s *Session) StopTimer() error {
	return s.timerControl(s.timer.Stop)
}

// ResetTimer clears the countdown.
func (s *Session) ResetTimer() error {
	return s.timerControl(func() {
		s.timer.Reset()
		s.autoStarted = false
	})
}

// AcknowledgeTimer silences the follow-up pulse of a finished countdown.
func (s *Session) AcknowledgeTimer() error {
	return s.timerControl(s.timer.Acknowledge)
}

func (s *Session) timerControl(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePhaseLocked(domain.PhaseCooking); err != nil {
		return err
	}
	fn()
	s.touchLocked()
	return nil
}

// SubmitRating sends the rating and finishes the session.
func (s *Session) SubmitRating(ctx context.Context, stars int, comment string) error {
	return s.finish(ctx, func(ctx context.Context) (completion.Outcome, error) {
		return s.finisher.SubmitRating(ctx, stars, comment)
	})
}

// DeclineRating closes the rating prompt. The session stays on its last
// step.
func (s *Session) DeclineRating() error {
	return s.finish(context.Background(), func(context.Context) (completion.Outcome, error) {
		return s.finisher.DeclineRating()
	})
}

// SubmitPhoto compresses and uploads the dish photo read from r, then
// finishes the session.
func (s *Session) SubmitPhoto(ctx context.Context, r io.Reader) error {
	return s.finish(ctx, func(ctx context.Context) (completion.Outcome, error) {
		return s.finisher.SubmitPhoto(ctx, r)
	})
}

// SkipPhoto finishes the session without a photo.
func (s *Session) SkipPhoto(ctx context.Context) error {
	return s.finish(ctx, s.finisher.SkipPhoto)
}

// RetryUpload uploads the failed photo again.
func (s *Session) RetryUpload(ctx context.Context) error {
	return s.finish(ctx, s.finisher.RetryUpload)
}

// ChangePhoto discards the failed photo and asks for another.
func (s *Session) ChangePhoto() error {
	return s.finish(context.Background(), func(context.Context) (completion.Outcome, error) {
		return s.finisher.ChangePhoto()
	})
}

// RetryFinish repeats the persistence call that failed.
func (s *Session) RetryFinish(ctx context.Context) error {
	return s.finish(ctx, s.finisher.RetryPersist)
}

// Exit tears the session down on user request and returns to the host.
// Calling it again, or after the session completed, does nothing.
func (s *Session) Exit() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.touchLocked()
	s.mu.Unlock()

	s.teardown()
	s.log.Info("session %s exited", s.id)
	s.host.GoBack()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.SessionView{
		ID:          s.id,
		RecipeID:    s.recipe.ID,
		RecipeTitle: s.recipe.Title,
		Phase:       s.phase,
		Checked:     append([]bool(nil), s.checked...),
		CurrentStep: s.step,
		AutoStarted: s.autoStarted,
		Timer:       s.timer.State(),
		Completion:  s.finisher.Stage(),
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
		Closed:      s.closed,
	}
}

// Recipe returns the snapshot the session runs on.
func (s *Session) Recipe() *domain.RecipeSnapshot { return s.recipe }

// beginCompletion waits for the lookups and starts the completion flow.
func (s *Session) beginCompletion(ctx context.Context) (completion.Outcome, error) {
	s.mu.Lock()
	userID, lk := s.userID, s.lookups
	s.mu.Unlock()

	if userID == "" {
		return completion.Outcome{}, domain.NewPreconditionError("finish session", domain.ErrMissingCredential)
	}
	saved, rated := lk.wait(ctx)
	return s.finisher.Begin(ctx, completion.Input{
		Recipe:       s.recipe,
		UserID:       userID,
		AlreadySaved: saved,
		HasRated:     rated,
	})
}

// finish runs one completion operation outside the session lock and
// applies its outcome. Only one runs at a time.
func (s *Session) finish(ctx context.Context, op func(context.Context) (completion.Outcome, error)) error {
	s.mu.Lock()
	if err := s.requirePhaseLocked(domain.PhaseCooking); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.finishing {
		s.mu.Unlock()
		return domain.ErrCompletionPending
	}
	s.finishing = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	out, err := op(runCtx)
	stop()
	cancel()

	s.mu.Lock()
	s.finishing = false
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("dropping completion result after teardown")
		return domain.ErrSessionClosed
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !out.Completed {
		s.touchLocked()
		s.mu.Unlock()
		return nil
	}
	s.phase = domain.PhaseCompleted
	s.closed = true
	s.touchLocked()
	s.mu.Unlock()

	s.teardown()
	s.log.Info("session %s completed (%s)", s.id, out.Decision)
	s.host.Finish(out.Exit)
	return nil
}

func (s *Session) teardown() {
	s.timer.Close()
	s.cancel()
}

// enterStepLocked evaluates the auto timer once for the step just entered.
func (s *Session) enterStepLocked() {
	s.evaluated = false
	s.touchLocked()
	s.maybeAutoStartLocked()
}

// leaveStepLocked cancels the step's timer before the index moves.
func (s *Session) leaveStepLocked() {
	s.timer.Reset()
	s.autoStarted = false
}

func (s *Session) maybeAutoStartLocked() {
	if s.evaluated || len(s.recipe.Instructions) == 0 {
		return
	}
	s.evaluated = true

	minutes, source := timer.Derive(s.recipe.HintAt(s.step), s.recipe.InstructionAt(s.step))
	if source == domain.TimerSourceNone {
		return
	}
	if err := s.timer.Start(minutes, source); err != nil {
		s.log.Warn("auto timer for step %d: %v", s.step+1, err)
		return
	}
	s.autoStarted = true
	s.log.Debug("auto timer %d min for step %d (%s)", minutes, s.step+1, source)
}

func (s *Session) requirePhaseLocked(p domain.Phase) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.phase != p {
		return fmt.Errorf("%w: session is in %s", domain.ErrWrongPhase, s.phase)
	}
	return nil
}

func (s *Session) touchLocked() {
	s.updatedAt = s.now()
}

// notify sends a best-effort notice. Must not be called with the lock held.
func (s *Session) notify(kind domain.NoticeKind, title, msg string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(s.ctx, domain.Notice{Kind: kind, Title: title, Message: msg}); err != nil {
		s.log.Warn("notify %q: %v", title, err)
	}
}
