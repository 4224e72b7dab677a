package recipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

func TestMemorySourceList(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	recipes, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recipes) != 4 {
		t.Fatalf("expected 4 recipes, got %d", len(recipes))
	}
	for i := 1; i < len(recipes); i++ {
		if recipes[i-1].Title > recipes[i].Title {
			t.Fatalf("expected sorted titles, got %q before %q", recipes[i-1].Title, recipes[i].Title)
		}
	}
}

func TestMemorySourceGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"tomato-soup", nil},
		{"steamed-rice", nil},
		{"nonexistent", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := src.Get(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := r.Validate(); err != nil {
				t.Fatalf("seeded recipe invalid: %v", err)
			}
		})
	}
}

func TestMemorySourceGetReturnsCopy(t *testing.T) {
	src := NewMemorySource(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	r, err := src.Get(ctx, "steamed-rice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	*r.TimerHints[0] = 99
	r.Instructions[0] = "changed"

	again, _ := src.Get(ctx, "steamed-rice")
	if *again.TimerHints[0] != 5 || again.Instructions[0] == "changed" {
		t.Fatal("mutating a returned recipe changed the catalog")
	}
}

func TestMemorySourceSearch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"soup", 1},
		{"RICE", 1},
		{"eggs", 1},
		{"nothing-matches", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := src.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d results, got %d", tt.want, len(got))
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	src := NewMemorySource(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
- id: toast
  title: Toast
  author: demo
  ingredients:
    - name: bread
      amount: "2"
      unit: slices
  steps:
    - text: Toast the bread.
      minutes: 3
    - text: Butter it.
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := src.LoadFile(ctx, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recipe, got %d", n)
	}

	r, err := src.Get(ctx, "toast")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(r.TimerHints) != 2 || *r.TimerHints[0] != 3 || r.TimerHints[1] != nil {
		t.Fatalf("unexpected hints %v", r.TimerHints)
	}

	if _, err := src.LoadFile(ctx, path); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on reload, got %v", err)
	}
}
