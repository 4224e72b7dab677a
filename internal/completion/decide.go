// Package completion implements the finish flow run once the last cooking
// step is passed: the already-cooked short-circuit, rating collection, dish
// photo capture and upload, and persistence of the cooked status.
package completion

import "github.com/hammamikhairi/guidedcook/internal/domain"

// Input is everything the decision depends on.
type Input struct {
	Recipe *domain.RecipeSnapshot
	UserID string
	// AlreadySaved and HasRated come from the session's mount-time lookups.
	AlreadySaved bool
	HasRated     bool
}

// Decide picks the completion route.
func Decide(in Input) domain.CompletionDecision {
	r := in.Recipe
	if r.CookedAt != nil || (!r.IsPublic && r.AlreadySaved) || in.AlreadySaved {
		return domain.DecisionAlreadyCompleted
	}
	if r.AuthoredByOther(in.UserID) && !in.HasRated && r.CookedAt == nil {
		return domain.DecisionNeedsRating
	}
	return domain.DecisionNeedsPhoto
}
