// Package domain defines the core types and interfaces for the guided
// cooking engine. All other packages depend on domain; domain depends on
// nothing.
package domain

import (
	"fmt"
	"time"
)

// MaxDishPhotos is the number of dish photos a recipe can hold.
const MaxDishPhotos = 3

// RecipeSnapshot is the read-only view of a recipe for one cooking session.
type RecipeSnapshot struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	// TimerHints holds per-step minutes. Nil, or one entry per instruction;
	// a nil entry means the step has no hint.
	TimerHints   []*int       `json:"timerHints,omitempty"`
	CookedAt     *time.Time   `json:"cookedAt,omitempty"`
	AlreadySaved bool         `json:"alreadySaved,omitempty"`
	IsPublic     bool         `json:"isPublic,omitempty"`
	AuthorID     string       `json:"authorId,omitempty"`
	Photos       []DishPhoto  `json:"photos,omitempty"`
}

// Ingredient is a single ingredient line.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"` // "g", "ml", "tbsp", "pieces", ""
}

// DishPhoto is a stored photo of a cooked dish.
type DishPhoto struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AuthoredByOther reports whether the recipe is public and written by
// someone other than userID.
func (r *RecipeSnapshot) AuthoredByOther(userID string) bool {
	return r.IsPublic && r.AuthorID != "" && r.AuthorID != userID
}

// HintAt returns the timer hint for step i, or nil.
func (r *RecipeSnapshot) HintAt(i int) *int {
	if i < 0 || i >= len(r.TimerHints) {
		return nil
	}
	return r.TimerHints[i]
}

// InstructionAt returns the instruction for step i, or "".
func (r *RecipeSnapshot) InstructionAt(i int) string {
	if i < 0 || i >= len(r.Instructions) {
		return ""
	}
	return r.Instructions[i]
}

// Validate checks the invariants the engine relies on.
func (r *RecipeSnapshot) Validate() error {
	if r.ID == "" {
		return NewPreconditionError("validate recipe", ErrMissingRecipeID)
	}
	if r.TimerHints != nil && len(r.TimerHints) != len(r.Instructions) {
		return NewPreconditionError("validate recipe",
			fmt.Errorf("timer hints (%d) do not match instructions (%d)", len(r.TimerHints), len(r.Instructions)))
	}
	if len(r.Photos) > MaxDishPhotos {
		return NewPreconditionError("validate recipe",
			fmt.Errorf("recipe holds %d photos, max is %d", len(r.Photos), MaxDishPhotos))
	}
	return nil
}

// Minutes is a helper for building timer hints.
func Minutes(n int) *int { return &n }

// PhotoMetadata is what the photo service returns for an upload.
type PhotoMetadata struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SavedRecipe is one entry of the user's collection.
type SavedRecipe struct {
	RecipeID string         `json:"recipeId"`
	CookedAt *time.Time     `json:"cookedAt,omitempty"`
	Photo    *PhotoMetadata `json:"photo,omitempty"`
}

// Rating is a user's rating of a recipe.
type Rating struct {
	RecipeID string `json:"recipeId"`
	UserID   string `json:"userId,omitempty"`
	Stars    int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
}
