package engine

import (
	"fmt"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

// Progress describes the current step for display.
type Progress struct {
	Index       int
	Total       int
	Header      string
	Percent     int
	IsLast      bool
	Instruction string
}

func progressAt(recipe *domain.RecipeSnapshot, index int) Progress {
	total := len(recipe.Instructions)
	if total == 0 {
		return Progress{Header: "No steps", IsLast: true}
	}
	return Progress{
		Index:       index,
		Total:       total,
		Header:      fmt.Sprintf("Step %d of %d", index+1, total),
		Percent:     (index + 1) * 100 / total,
		IsLast:      index == total-1,
		Instruction: recipe.InstructionAt(index),
	}
}

// Progress returns the step position derived from the session state.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressAt(s.recipe, s.step)
}
