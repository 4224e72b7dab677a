package domain

import (
	"context"
	"time"
)

// AuthProvider supplies the bearer credential and current user. Failing to
// supply one is a precondition failure for any network step.
type AuthProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// RecipeService is the recipe persistence backend. All calls are keyed by
// recipe id.
type RecipeService interface {
	GetRecipe(ctx context.Context, recipeID string) (*RecipeSnapshot, error)
	MarkComplete(ctx context.Context, recipeID string, cookedAt time.Time) error
	SavePublicRecipe(ctx context.Context, recipeID string, cookedAt time.Time) error
	SaveToCollection(ctx context.Context, recipeID string, photo *PhotoMetadata, cookedAt time.Time) error
	SavedRecipes(ctx context.Context) ([]SavedRecipe, error)
	// UserRating returns nil when the current user has not rated the recipe.
	UserRating(ctx context.Context, recipeID string) (*Rating, error)
	SubmitRating(ctx context.Context, recipeID string, stars int, comment string) error
}

// PhotoService uploads dish photos. UploadPhoto returns a
// *LimitExceededError when the recipe already holds MaxDishPhotos.
type PhotoService interface {
	UploadPhoto(ctx context.Context, recipeID string, jpeg []byte) (*PhotoMetadata, error)
	PhotoCount(ctx context.Context, recipeID string) (int, error)
}

// Notifier delivers transient notices to the user. Implementations can
// write to stdout, show a toast, or push to a device.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Alerter fires audible or haptic pulses. Best effort and non-blocking.
type Alerter interface {
	Pulse(ctx context.Context, p Pulse) error
}

// Host is the screen that mounted the session. The engine renders nothing;
// it only calls back when the session ends.
type Host interface {
	// GoBack is called on user-initiated exit, in any phase.
	GoBack()
	// Finish is called once the session reached the completed phase.
	Finish(notice *ExitNotice)
}

// HostFuncs adapts two functions to the Host interface. Nil funcs are
// skipped.
type HostFuncs struct {
	OnGoBack func()
	OnFinish func(notice *ExitNotice)
}

// GoBack calls OnGoBack.
func (h HostFuncs) GoBack() {
	if h.OnGoBack != nil {
		h.OnGoBack()
	}
}

// Finish calls OnFinish.
func (h HostFuncs) Finish(notice *ExitNotice) {
	if h.OnFinish != nil {
		h.OnFinish(notice)
	}
}
