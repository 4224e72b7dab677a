package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// lookups caches the mount-time answers the completion decision needs.
// Both fall back to false when their call fails or times out.
type lookups struct {
	done         chan struct{}
	alreadySaved bool
	hasRated     bool
}

func startLookups(ctx context.Context, recipes domain.RecipeService, recipe *domain.RecipeSnapshot, userID string, timeout time.Duration, log *logger.Logger) *lookups {
	l := &lookups{done: make(chan struct{})}

	go func() {
		defer close(l.done)

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			saved, err := recipes.SavedRecipes(ctx)
			if err != nil {
				log.Warn("saved recipes lookup failed: %v", err)
				return fmt.Errorf("saved recipes: %w", err)
			}
			for _, sr := range saved {
				if sr.RecipeID == recipe.ID {
					l.alreadySaved = true
					break
				}
			}
			return nil
		})
		if recipe.AuthoredByOther(userID) {
			g.Go(func() error {
				rating, err := recipes.UserRating(ctx, recipe.ID)
				if err != nil {
					log.Warn("rating lookup failed: %v", err)
					return fmt.Errorf("user rating: %w", err)
				}
				l.hasRated = rating != nil
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			log.Debug("lookups finished with fallbacks: %v", err)
			return
		}
		log.Debug("lookups finished: saved=%t rated=%t", l.alreadySaved, l.hasRated)
	}()

	return l
}

// wait blocks until both lookups have finished or ctx is done.
func (l *lookups) wait(ctx context.Context) (alreadySaved, hasRated bool) {
	if l == nil {
		return false, false
	}
	select {
	case <-l.done:
		return l.alreadySaved, l.hasRated
	case <-ctx.Done():
		return false, false
	}
}
