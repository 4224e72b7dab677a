// Package recipe provides the recipe catalog served by the development
// backend.
package recipe

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Summary is a short catalog entry.
type Summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	IsPublic bool   `json:"isPublic"`
	AuthorID string `json:"authorId,omitempty"`
	Steps    int    `json:"steps"`
}

// MemorySource holds recipes in memory. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.RecipeSnapshot
	log     *logger.Logger
}

// NewMemorySource creates a catalog preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		recipes: make(map[string]*domain.RecipeSnapshot),
		log:     log,
	}
	src.seed()
	return src
}

// List returns summaries of all recipes sorted by title.
func (s *MemorySource) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, summarize(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Get returns a copy of a recipe by id. Per-user fields are left empty.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.RecipeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return clone(r), nil
}

// Add inserts a recipe. The id must be new.
func (s *MemorySource) Add(ctx context.Context, r *domain.RecipeSnapshot) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[r.ID]; ok {
		return fmt.Errorf("recipe %s: %w", r.ID, domain.ErrAlreadyExists)
	}
	s.recipes[r.ID] = clone(r)
	s.log.Info("recipe added: %s", r.Title)
	return nil
}

// Search returns recipes whose title or instructions contain query.
func (s *MemorySource) Search(ctx context.Context, query string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	s.log.Debug("searching recipes for: %s", q)

	var out []Summary
	for _, r := range s.recipes {
		if matches(r, q) {
			out = append(out, summarize(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func matches(r *domain.RecipeSnapshot, query string) bool {
	if strings.Contains(strings.ToLower(r.Title), query) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), query) {
			return true
		}
	}
	return false
}

func summarize(r *domain.RecipeSnapshot) Summary {
	return Summary{ID: r.ID, Title: r.Title, IsPublic: r.IsPublic, AuthorID: r.AuthorID, Steps: len(r.Instructions)}
}

func clone(r *domain.RecipeSnapshot) *domain.RecipeSnapshot {
	c := *r
	c.Ingredients = append([]domain.Ingredient(nil), r.Ingredients...)
	c.Instructions = append([]string(nil), r.Instructions...)
	if r.TimerHints != nil {
		c.TimerHints = make([]*int, len(r.TimerHints))
		for i, h := range r.TimerHints {
			if h != nil {
				c.TimerHints[i] = domain.Minutes(*h)
			}
		}
	}
	c.Photos = append([]domain.DishPhoto(nil), r.Photos...)
	return &c
}

// fileRecipe is the YAML shape of a catalog file entry.
type fileRecipe struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Public      bool         `yaml:"public"`
	Author      string       `yaml:"author"`
	Ingredients []fileIngred `yaml:"ingredients"`
	Steps       []fileStep   `yaml:"steps"`
}

type fileIngred struct {
	Name   string `yaml:"name"`
	Amount string `yaml:"amount"`
	Unit   string `yaml:"unit"`
}

type fileStep struct {
	Text    string `yaml:"text"`
	Minutes *int   `yaml:"minutes"`
}

// LoadFile adds every recipe listed in a YAML catalog file.
func (s *MemorySource) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading catalog: %w", err)
	}
	var entries []fileRecipe
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	for i, e := range entries {
		if err := s.Add(ctx, e.snapshot()); err != nil {
			return i, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	s.log.Info("loaded %d recipes from %s", len(entries), path)
	return len(entries), nil
}

func (e fileRecipe) snapshot() *domain.RecipeSnapshot {
	r := &domain.RecipeSnapshot{
		ID:       e.ID,
		Title:    e.Title,
		IsPublic: e.Public,
		AuthorID: e.Author,
	}
	hinted := false
	for _, ing := range e.Ingredients {
		r.Ingredients = append(r.Ingredients, domain.Ingredient{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit})
	}
	for _, st := range e.Steps {
		r.Instructions = append(r.Instructions, st.Text)
		if st.Minutes != nil {
			hinted = true
		}
	}
	if hinted {
		r.TimerHints = make([]*int, len(e.Steps))
		for i, st := range e.Steps {
			r.TimerHints[i] = st.Minutes
		}
	}
	return r
}

// seed populates the catalog with built-in recipes.
func (s *MemorySource) seed() {
	recipes := []*domain.RecipeSnapshot{
		tomatoSoup(),
		pancakes(),
		kaesespaetzle(),
		steamedRice(),
	}
	for _, r := range recipes {
		s.recipes[r.ID] = r
	}
	s.log.Debug("seeded %d recipes", len(recipes))
}

func tomatoSoup() *domain.RecipeSnapshot {
	return &domain.RecipeSnapshot{
		ID:       "tomato-soup",
		Title:    "Roasted Tomato Soup",
		IsPublic: true,
		AuthorID: "marco",
		Ingredients: []domain.Ingredient{
			{Name: "tomatoes", Amount: "800", Unit: "g"},
			{Name: "onion", Amount: "1", Unit: "pieces"},
			{Name: "garlic", Amount: "3", Unit: "cloves"},
			{Name: "olive oil", Amount: "2", Unit: "tbsp"},
			{Name: "vegetable stock", Amount: "500", Unit: "ml"},
			{Name: "salt"},
		},
		Instructions: []string{
			"Dice the onion and crush the garlic.",
			"Sauté the onion in olive oil until soft.",
			"Add the tomatoes and stock, then simmer for 20 minutes.",
			"Blend until smooth.",
			"Season with salt and serve.",
		},
	}
}

func pancakes() *domain.RecipeSnapshot {
	return &domain.RecipeSnapshot{
		ID:       "pancakes",
		Title:    "Buttermilk Pancakes",
		AuthorID: "demo",
		Ingredients: []domain.Ingredient{
			{Name: "flour", Amount: "200", Unit: "g"},
			{Name: "buttermilk", Amount: "300", Unit: "ml"},
			{Name: "eggs", Amount: "2", Unit: "pieces"},
			{Name: "butter", Amount: "1", Unit: "tbsp"},
		},
		Instructions: []string{
			"Whisk flour, buttermilk and eggs into a smooth batter.",
			"Let the batter rest.",
			"Fry each pancake for about 1,5 min per side.",
			"Serve warm.",
		},
		TimerHints: []*int{nil, domain.Minutes(10), nil, nil},
	}
}

func kaesespaetzle() *domain.RecipeSnapshot {
	return &domain.RecipeSnapshot{
		ID:       "kaesespaetzle",
		Title:    "Käsespätzle",
		IsPublic: true,
		AuthorID: "hilde",
		Ingredients: []domain.Ingredient{
			{Name: "Mehl", Amount: "400", Unit: "g"},
			{Name: "Eier", Amount: "4", Unit: "pieces"},
			{Name: "Bergkäse", Amount: "200", Unit: "g"},
			{Name: "Zwiebeln", Amount: "2", Unit: "pieces"},
		},
		Instructions: []string{
			"Mehl, Eier und etwas Wasser zu einem zähen Teig verrühren.",
			"Den Teig 15 Minuten ruhen lassen.",
			"Die Spätzle portionsweise in Salzwasser kochen, bis sie aufschwimmen.",
			"Zwiebeln in Butter goldbraun anbraten.",
			"Spätzle und Käse schichten und im Ofen 0,5 Std. überbacken.",
		},
	}
}

func steamedRice() *domain.RecipeSnapshot {
	return &domain.RecipeSnapshot{
		ID:    "steamed-rice",
		Title: "Steamed Rice",
		Ingredients: []domain.Ingredient{
			{Name: "jasmine rice", Amount: "250", Unit: "g"},
			{Name: "water", Amount: "375", Unit: "ml"},
		},
		Instructions: []string{
			"Rinse the rice and let it soak.",
			"Drain and add the fresh water.",
			"Cover and cook on low heat.",
		},
		TimerHints: []*int{domain.Minutes(5), domain.Minutes(0), domain.Minutes(10)},
		AuthorID:   "demo",
	}
}
