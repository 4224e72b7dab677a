package domain

import "time"

// Phase is the coarse stage of a cooking session.
type Phase int

const (
	PhasePreparation Phase = iota
	PhaseCooking
	PhaseCompleted
)

// String returns a human-readable phase.
func (p Phase) String() string {
	switch p {
	case PhasePreparation:
		return "preparation"
	case PhaseCooking:
		return "cooking"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// SessionView is a copy of the session state handed to hosts.
type SessionView struct {
	ID          string
	RecipeID    string
	RecipeTitle string
	Phase       Phase
	Checked     []bool
	CurrentStep int
	AutoStarted bool
	Timer       TimerState
	Completion  CompletionStage
	StartedAt   time.Time
	UpdatedAt   time.Time
	Closed      bool
}

// TimerSource records what started the current countdown.
type TimerSource int

const (
	TimerSourceNone TimerSource = iota
	TimerSourceHint
	TimerSourceText
	TimerSourceKeyword
	TimerSourceManual
)

// String returns a human-readable timer source.
func (s TimerSource) String() string {
	switch s {
	case TimerSourceHint:
		return "hint"
	case TimerSourceText:
		return "text"
	case TimerSourceKeyword:
		return "keyword"
	case TimerSourceManual:
		return "manual"
	default:
		return "none"
	}
}

// TimerState is the observable state of the countdown.
type TimerState struct {
	RemainingSeconds int
	Running          bool
	Source           TimerSource
}

// CompletionDecision is the route picked when the last step is passed.
type CompletionDecision int

const (
	DecisionAlreadyCompleted CompletionDecision = iota
	DecisionNeedsRating
	DecisionNeedsPhoto
)

// String returns a human-readable decision.
func (d CompletionDecision) String() string {
	switch d {
	case DecisionAlreadyCompleted:
		return "already_completed"
	case DecisionNeedsRating:
		return "needs_rating"
	case DecisionNeedsPhoto:
		return "needs_photo"
	default:
		return "unknown"
	}
}

// CompletionStage tracks where the finish flow currently waits.
type CompletionStage int

const (
	StageIdle CompletionStage = iota
	StageRating
	StagePhoto
	StageUploadFailed
	StagePersistFailed
	StageDone
)

// String returns a human-readable stage.
func (s CompletionStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRating:
		return "rating"
	case StagePhoto:
		return "photo"
	case StageUploadFailed:
		return "upload_failed"
	case StagePersistFailed:
		return "persist_failed"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// NoticeKind classifies a transient user-facing notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// String returns a human-readable notice kind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeInfo:
		return "info"
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a transient, dismissible message for the user.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

// ExitNotice travels with the "finish" exit for a post-exit notification.
type ExitNotice struct {
	Title   string
	Message string
}

// Pulse is one element of an alert pattern.
type Pulse int

const (
	PulseStrong Pulse = iota
	PulseLight
)

// String returns a human-readable pulse.
func (p Pulse) String() string {
	if p == PulseLight {
		return "light"
	}
	return "strong"
}

// Credential is what the auth provider supplies for network calls.
type Credential struct {
	Token  string
	UserID string
}
