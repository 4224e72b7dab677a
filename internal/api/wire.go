// Package api holds the REST contract of the recipe backend: the JSON
// bodies exchanged on the wire and a client that implements the domain
// recipe and photo services over HTTP.
package api

import (
	"time"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

// ErrPhotoLimitExceeded is the error code sent with a 409 when a recipe
// already holds the maximum number of dish photos.
const ErrPhotoLimitExceeded = "photo_limit_exceeded"

// PhotoField is the multipart form field carrying the photo.
const PhotoField = "photo"

// CookedRequest is the body of the complete and save-public routes.
type CookedRequest struct {
	CookedAt time.Time `json:"cookedAt"`
}

// SaveRequest is the body of POST /saved-recipes.
type SaveRequest struct {
	RecipeID string                `json:"recipeId"`
	Photo    *domain.PhotoMetadata `json:"photo,omitempty"`
	CookedAt time.Time             `json:"cookedAt"`
}

// SavedRecipesResponse lists the caller's collection.
type SavedRecipesResponse struct {
	SavedRecipes []domain.SavedRecipe `json:"savedRecipes"`
}

// RatingRequest is the body of POST /recipes/{id}/ratings.
type RatingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// RatingResponse carries the caller's rating, null when unrated.
type RatingResponse struct {
	Rating *domain.Rating `json:"rating"`
}

// CountResponse is the body of GET /recipes/{id}/photos/count.
type CountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Current int    `json:"current,omitempty"`
	Max     int    `json:"max,omitempty"`
}
