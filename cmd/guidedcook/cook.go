package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/guidedcook/internal/alert"
	"github.com/hammamikhairi/guidedcook/internal/api"
	"github.com/hammamikhairi/guidedcook/internal/auth"
	"github.com/hammamikhairi/guidedcook/internal/completion"
	"github.com/hammamikhairi/guidedcook/internal/config"
	"github.com/hammamikhairi/guidedcook/internal/conversation"
	"github.com/hammamikhairi/guidedcook/internal/display"
	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/engine"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
	"github.com/hammamikhairi/guidedcook/internal/timer"
)

func newCookCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cook <recipe-id>",
		Short: "Start a guided cooking session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return runCook(cmd.Context(), cfg, args[0])
		},
	}
}

func runCook(ctx context.Context, cfg *config.Config, recipeID string) error {
	log, closeLog := openLog(cfg)
	defer closeLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rec := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: rec.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	provider := auth.Static(cfg.Token, cfg.UserID)
	client := api.NewClient(cfg.APIBaseURL, provider, log.Named("api"), api.WithHTTPTimeout(cfg.HTTPTimeout))

	recipe, err := client.GetRecipe(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("loading recipe %s: %w", recipeID, err)
	}

	alerter, stopAlerter := pickAlerter(cfg, log)
	defer stopAlerter()

	var sess *engine.Session
	ui := display.NewUI(func() display.Status {
		return statusOf(sess)
	})
	notifier := alert.NewPulsingNotifier(
		conversation.NewCLINotifier(log.Named("notify"), ui.Printf), alerter, log.Named("notify"))

	host := domain.HostFuncs{
		OnGoBack: ui.Quit,
		OnFinish: func(n *domain.ExitNotice) {
			if n != nil {
				ui.Print(display.ToneHeading, n.Title)
				if n.Message != "" {
					ui.Print(display.ToneBody, n.Message)
				}
			}
			ui.Quit()
		},
	}

	sess = engine.New(recipe, engine.Deps{
		Recipes:  client,
		Photos:   client,
		Auth:     provider,
		Notifier: notifier,
		Alerter:  alerter,
	}, host, log.Named("engine"),
		engine.WithRecorder(rec),
		engine.WithLookupTimeout(cfg.LookupTimeout),
		engine.WithTimerOptions(
			timer.WithTickInterval(cfg.TickInterval),
			timer.WithSecondPulseDelay(cfg.SecondPulseDelay),
		),
		engine.WithCompletionOptions(
			completion.WithUploadAttempts(cfg.UploadAttempts),
			completion.WithUploadBackoff(cfg.UploadBackoff),
			completion.WithPhotoLimits(cfg.MaxPhotoEdge, cfg.PhotoQuality),
		),
	)
	if err := sess.Mount(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer sess.Exit()

	app := &cliApp{
		session: sess,
		parser:  conversation.NewKeywordParser(log.Named("parser")),
		out:     ui,
		log:     log,
		open:    func(path string) (io.ReadCloser, error) { return os.Open(path) },
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx, ui.InputChan())
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	return nil
}

// pickAlerter prefers the speaker, then the terminal bell, then silence.
func pickAlerter(cfg *config.Config, log *logger.Logger) (domain.Alerter, func()) {
	if !cfg.Sound {
		return alert.NewNoOp(log.Named("alert")), func() {}
	}
	b, err := alert.NewBeeper(log.Named("alert"))
	if err != nil {
		log.Warn("audio init failed, using terminal bell: %v", err)
		return alert.NewBell(os.Stdout), func() {}
	}
	return b, b.Stop
}

func statusOf(s *engine.Session) display.Status {
	if s == nil {
		return display.Status{}
	}
	view := s.Snapshot()
	st := display.Status{
		Title: view.RecipeTitle,
		Phase: view.Phase,
		Timer: view.Timer,
		Stage: view.Completion,
	}
	switch view.Phase {
	case domain.PhasePreparation:
		st.Header = fmt.Sprintf("%d/%d ingredients", countChecked(view.Checked), len(view.Checked))
	case domain.PhaseCooking:
		st.Header = s.Progress().Header
	}
	return st
}

func countChecked(checked []bool) int {
	n := 0
	for _, c := range checked {
		if c {
			n++
		}
	}
	return n
}

// ── App loop ─────────────────────────────────────────────────────

// output is the part of the UI the app writes to.
type output interface {
	Print(tone display.Tone, text string)
	PrintIngredient(n int, checked bool, text string)
}

type cliApp struct {
	session *engine.Session
	parser  *conversation.KeywordParser
	out     output
	log     *logger.Logger
	open    func(path string) (io.ReadCloser, error)
}

func (a *cliApp) run(ctx context.Context, input <-chan string) {
	a.showIngredients()
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-input:
			if !ok {
				return
			}
		}

		cmd, err := a.parser.Parse(ctx, line)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("command: %s (payload=%q)", cmd.Type, cmd.Payload)
		if !a.handle(ctx, cmd) {
			return
		}
	}
}

// handle runs one command. It returns false when the loop should stop.
func (a *cliApp) handle(ctx context.Context, cmd domain.Command) bool {
	s := a.session
	switch cmd.Type {
	case domain.CommandHelp:
		for _, l := range strings.Split(conversation.HelpText, "\n") {
			a.out.Print(display.ToneBody, l)
		}
	case domain.CommandStatus:
		a.showStatus()
	case domain.CommandCheck:
		n, err := strconv.Atoi(cmd.Payload)
		if err != nil {
			a.out.Print(display.ToneUrgent, "Which ingredient? Try 'check 2'.")
			return true
		}
		if a.report(s.ToggleIngredient(n - 1)) {
			a.showIngredients()
		}
	case domain.CommandStartCooking:
		if a.report(s.StartCooking()) {
			a.showStep()
		}
	case domain.CommandNext:
		before := s.Snapshot().CurrentStep
		if a.report(s.AdvanceStep(ctx)) {
			a.afterMove(before)
		}
	case domain.CommandBack:
		before := s.Snapshot().CurrentStep
		if a.report(s.RetreatStep()) {
			a.afterMove(before)
		}
	case domain.CommandTimer:
		n, err := strconv.Atoi(cmd.Payload)
		if err != nil {
			a.out.Print(display.ToneUrgent, "How many minutes? Try 'timer 5'.")
			return true
		}
		if a.report(s.StartTimer(n)) {
			a.out.Print(display.ToneHint, fmt.Sprintf("Timer set for %s.", timer.FormatRemaining(n*60)))
		}
	case domain.CommandStopTimer:
		a.report(s.StopTimer())
	case domain.CommandResetTimer:
		a.report(s.ResetTimer())
	case domain.CommandAcknowledge:
		a.report(s.AcknowledgeTimer())
	case domain.CommandRate:
		stars, comment := splitRating(cmd.Payload)
		if a.report(s.SubmitRating(ctx, stars, comment)) {
			a.promptStage()
		}
	case domain.CommandDecline:
		if a.report(s.DeclineRating()) {
			a.out.Print(display.ToneHint, "No rating. Say 'next' when you want to finish.")
		}
	case domain.CommandPhoto:
		f, err := a.open(cmd.Payload)
		if err != nil {
			a.out.Print(display.ToneUrgent, fmt.Sprintf("Could not open %s: %v", cmd.Payload, err))
			return true
		}
		err = s.SubmitPhoto(ctx, f)
		f.Close()
		if a.report(err) {
			a.promptStage()
		}
	case domain.CommandSkip:
		a.report(s.SkipPhoto(ctx))
	case domain.CommandRetry:
		var err error
		if s.Snapshot().Completion == domain.StagePersistFailed {
			err = s.RetryFinish(ctx)
		} else {
			err = s.RetryUpload(ctx)
		}
		if a.report(err) {
			a.promptStage()
		}
	case domain.CommandChangePhoto:
		if a.report(s.ChangePhoto()) {
			a.promptStage()
		}
	case domain.CommandQuit:
		s.Exit()
		return false
	default:
		a.out.Print(display.ToneHint, fmt.Sprintf("I didn't catch %q. Type 'help' for commands.", cmd.Payload))
	}
	return !s.Snapshot().Closed
}

// report prints err unless the session already told the user about it.
// It returns true when err is nil.
func (a *cliApp) report(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrIngredientsNotReady), domain.IsTransient(err):
		// Already surfaced as a notice.
	case errors.Is(err, domain.ErrCompletionPending):
		a.out.Print(display.ToneHint, "Still saving, one moment.")
	case errors.Is(err, domain.ErrInvalidRating):
		a.out.Print(display.ToneUrgent, "Ratings go from 1 to 5.")
	case errors.Is(err, domain.ErrIngredientIndex):
		a.out.Print(display.ToneUrgent, "There is no ingredient with that number.")
	case errors.Is(err, domain.ErrInvalidDuration):
		a.out.Print(display.ToneUrgent, "Timers need at least one minute.")
	case errors.Is(err, domain.ErrWrongPhase), errors.Is(err, domain.ErrNoCompletionStage):
		a.out.Print(display.ToneHint, "That doesn't apply right now.")
	case errors.Is(err, domain.ErrSessionClosed):
		a.out.Print(display.ToneHint, "This session has ended.")
	default:
		a.out.Print(display.ToneUrgent, fmt.Sprintf("Error: %v", err))
	}
	return false
}

func (a *cliApp) afterMove(before int) {
	view := a.session.Snapshot()
	if view.Closed {
		return
	}
	if view.CurrentStep != before {
		a.showStep()
		return
	}
	a.promptStage()
}

func (a *cliApp) showIngredients() {
	view := a.session.Snapshot()
	r := a.session.Recipe()
	a.out.Print(display.ToneHeading, r.Title)
	if len(r.Ingredients) == 0 {
		a.out.Print(display.ToneHint, "No ingredients. Type 'start' to begin.")
		return
	}
	for i, ing := range r.Ingredients {
		a.out.PrintIngredient(i+1, view.Checked[i], formatIngredient(ing))
	}
	if countChecked(view.Checked) == len(view.Checked) {
		a.out.Print(display.ToneHint, "All set. Type 'start' to begin.")
	}
}

func (a *cliApp) showStep() {
	p := a.session.Progress()
	a.out.Print(display.ToneHeading, fmt.Sprintf("%s (%d%%)", p.Header, p.Percent))
	if p.Instruction != "" {
		a.out.Print(display.ToneBody, p.Instruction)
	}
	if t := a.session.Snapshot().Timer; t.Running {
		a.out.Print(display.ToneHint, fmt.Sprintf("Timer running: %s", timer.FormatRemaining(t.RemainingSeconds)))
	}
	if p.IsLast {
		a.out.Print(display.ToneHint, "Last step. Say 'next' when you're done.")
	}
}

func (a *cliApp) promptStage() {
	switch a.session.Snapshot().Completion {
	case domain.StageRating:
		a.out.Print(display.ToneHint, "How was it? 'rate 1-5 [comment]' or 'decline'.")
	case domain.StagePhoto:
		a.out.Print(display.ToneHint, "Add a photo with 'photo PATH', or 'skip'.")
	case domain.StageUploadFailed:
		a.out.Print(display.ToneHint, "'retry', 'change' for another photo, or 'skip'.")
	case domain.StagePersistFailed:
		a.out.Print(display.ToneHint, "'retry' to try saving again.")
	}
}

func (a *cliApp) showStatus() {
	view := a.session.Snapshot()
	a.out.Print(display.ToneHeading, fmt.Sprintf("Session %s", shortID(view.ID)))
	a.out.Print(display.ToneBody, fmt.Sprintf("Recipe:  %s", view.RecipeTitle))
	a.out.Print(display.ToneBody, fmt.Sprintf("Phase:   %s", view.Phase))
	if view.Phase == domain.PhaseCooking {
		a.out.Print(display.ToneBody, fmt.Sprintf("Step:    %s", a.session.Progress().Header))
	}
	switch {
	case view.Timer.Running:
		a.out.Print(display.ToneHint, fmt.Sprintf("Timer:   %s left (%s)", timer.FormatRemaining(view.Timer.RemainingSeconds), view.Timer.Source))
	case view.Timer.RemainingSeconds > 0:
		a.out.Print(display.ToneHint, fmt.Sprintf("Timer:   paused at %s", timer.FormatRemaining(view.Timer.RemainingSeconds)))
	default:
		a.out.Print(display.ToneHint, "Timer:   none")
	}
	if view.Completion != domain.StageIdle {
		a.out.Print(display.ToneHint, fmt.Sprintf("Finish:  %s", view.Completion))
	}
}

func splitRating(payload string) (int, string) {
	head, rest, _ := strings.Cut(strings.TrimSpace(payload), " ")
	stars, err := strconv.Atoi(head)
	if err != nil {
		return 0, ""
	}
	return stars, strings.TrimSpace(rest)
}

func formatIngredient(ing domain.Ingredient) string {
	parts := make([]string, 0, 3)
	if ing.Amount != "" {
		parts = append(parts, ing.Amount)
	}
	if ing.Unit != "" {
		parts = append(parts, ing.Unit)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
