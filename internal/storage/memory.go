// Package storage holds the development backend's per-user state: saved
// recipes, cooked marks, ratings, and dish photos.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// MemoryStore is an in-memory store. Safe for concurrent access.
type MemoryStore struct {
	mu        sync.RWMutex
	saved     map[string]map[string]*domain.SavedRecipe // user -> recipe -> record
	ratings   map[string]map[string]domain.Rating       // recipe -> user -> rating
	photos    map[string][]domain.DishPhoto             // recipe -> photos
	photoData map[string][]byte                         // photo id -> jpeg
	log       *logger.Logger
	now       func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		saved:     make(map[string]map[string]*domain.SavedRecipe),
		ratings:   make(map[string]map[string]domain.Rating),
		photos:    make(map[string][]domain.DishPhoto),
		photoData: make(map[string][]byte),
		log:       log,
		now:       time.Now,
	}
}

// Save adds or updates the user's record of a recipe. A nil photo keeps
// the one already stored.
func (s *MemoryStore) Save(ctx context.Context, userID, recipeID string, photo *domain.PhotoMetadata, cookedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(userID, recipeID)
	at := cookedAt.UTC()
	rec.CookedAt = &at
	if photo != nil {
		p := *photo
		rec.Photo = &p
	}
	s.log.Debug("saved %s for %s (photo=%t)", recipeID, userID, rec.Photo != nil)
	return nil
}

// MarkComplete updates the cooked time of a record. The record is created
// when missing so repeat cooks of unsaved recipes are not lost.
func (s *MemoryStore) MarkComplete(ctx context.Context, userID, recipeID string, cookedAt time.Time) error {
	return s.Save(ctx, userID, recipeID, nil, cookedAt)
}

// Saved returns the user's collection ordered by recipe id.
func (s *MemoryStore) Saved(ctx context.Context, userID string) ([]domain.SavedRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SavedRecipe, 0, len(s.saved[userID]))
	for _, rec := range s.saved[userID] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipeID < out[j].RecipeID })
	return out, nil
}

// Lookup returns the user's record of a recipe, or nil.
func (s *MemoryStore) Lookup(ctx context.Context, userID, recipeID string) *domain.SavedRecipe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.saved[userID][recipeID]
	if !ok {
		return nil
	}
	c := *rec
	return &c
}

// Rate stores or replaces the user's rating of a recipe.
func (s *MemoryStore) Rate(ctx context.Context, userID, recipeID string, stars int, comment string) error {
	if stars < 1 || stars > 5 {
		return domain.ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.ratings[recipeID]
	if !ok {
		byUser = make(map[string]domain.Rating)
		s.ratings[recipeID] = byUser
	}
	byUser[userID] = domain.Rating{RecipeID: recipeID, UserID: userID, Stars: stars, Comment: comment}
	s.log.Debug("rating %d for %s by %s", stars, recipeID, userID)
	return nil
}

// Rating returns the user's rating of a recipe, or nil when unrated.
func (s *MemoryStore) Rating(ctx context.Context, userID, recipeID string) (*domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[recipeID][userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// AddPhoto stores a dish photo. It fails with *domain.LimitExceededError
// once the recipe holds domain.MaxDishPhotos.
func (s *MemoryStore) AddPhoto(ctx context.Context, recipeID string, jpeg []byte) (*domain.DishPhoto, error) {
	if len(jpeg) == 0 {
		return nil, fmt.Errorf("empty photo")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.photos[recipeID]); n >= domain.MaxDishPhotos {
		return nil, &domain.LimitExceededError{Current: n, Max: domain.MaxDishPhotos}
	}

	id := uuid.NewString()
	p := domain.DishPhoto{ID: id, URL: "/photos/" + id, UploadedAt: s.now().UTC()}
	s.photos[recipeID] = append(s.photos[recipeID], p)
	s.photoData[id] = append([]byte(nil), jpeg...)
	s.log.Info("photo %s stored for %s (%d/%d)", id, recipeID, len(s.photos[recipeID]), domain.MaxDishPhotos)
	return &p, nil
}

// Photos returns the photos of a recipe in upload order.
func (s *MemoryStore) Photos(ctx context.Context, recipeID string) []domain.DishPhoto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DishPhoto(nil), s.photos[recipeID]...)
}

// PhotoCount returns how many photos a recipe holds.
func (s *MemoryStore) PhotoCount(ctx context.Context, recipeID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos[recipeID])
}

// PhotoData returns the stored JPEG of a photo.
func (s *MemoryStore) PhotoData(ctx context.Context, photoID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.photoData[photoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) recordLocked(userID, recipeID string) *domain.SavedRecipe {
	byRecipe, ok := s.saved[userID]
	if !ok {
		byRecipe = make(map[string]*domain.SavedRecipe)
		s.saved[userID] = byRecipe
	}
	rec, ok := byRecipe[recipeID]
	if !ok {
		rec = &domain.SavedRecipe{RecipeID: recipeID}
		byRecipe[recipeID] = rec
	}
	return rec
}
