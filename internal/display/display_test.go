package display

import (
	"strings"
	"testing"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   []string
		absent []string
	}{
		{
			name:   "preparation",
			status: Status{Phase: domain.PhasePreparation, Header: "2/5 ingredients"},
			want:   []string{"preparation", "2/5 ingredients"},
			absent: []string{"timer:", "finish:"},
		},
		{
			name: "running timer",
			status: Status{
				Phase:  domain.PhaseCooking,
				Header: "Step 2 of 3",
				Timer:  domain.TimerState{RemainingSeconds: 125, Running: true},
			},
			want: []string{"cooking", "Step 2 of 3", "timer: ", "2:05"},
		},
		{
			name: "paused timer",
			status: Status{
				Phase: domain.PhaseCooking,
				Timer: domain.TimerState{RemainingSeconds: 60},
			},
			want:   []string{"paused 1:00"},
			absent: []string{"timer:"},
		},
		{
			name:   "finishing",
			status: Status{Phase: domain.PhaseCooking, Stage: domain.StageUploadFailed},
			want:   []string{"finish: ", "upload_failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model{current: tt.status, width: 120}
			bar := m.renderBar()
			for _, w := range tt.want {
				if !strings.Contains(bar, w) {
					t.Errorf("bar %q missing %q", bar, w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(bar, a) {
					t.Errorf("bar %q should not contain %q", bar, a)
				}
			}
		})
	}
}

func TestTitleStr(t *testing.T) {
	m := model{}
	if got := m.titleStr(); got != "GuidedCook" {
		t.Fatalf("empty title = %q", got)
	}
	m.current = Status{Title: "Pancakes", Timer: domain.TimerState{RemainingSeconds: 90, Running: true}}
	if got := m.titleStr(); got != "Pancakes | 1:30" {
		t.Fatalf("title = %q", got)
	}
}

func TestRefreshPollsStatus(t *testing.T) {
	calls := 0
	m := model{status: func() Status {
		calls++
		return Status{Title: "Soup"}
	}}
	m.refresh()
	if calls != 1 || m.current.Title != "Soup" {
		t.Fatalf("refresh: calls=%d title=%q", calls, m.current.Title)
	}
}

func TestCentreBlock(t *testing.T) {
	out := centreBlock("ab\nabcd\n", 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "   ") || strings.HasPrefix(l, "    ") {
			t.Errorf("line %q not padded by 3", l)
		}
	}

	if got := centreBlock("wide art", 4); strings.HasPrefix(got, " ") {
		t.Errorf("narrow terminal should not pad: %q", got)
	}
	if centreBlock("\n", 80) != "" {
		t.Error("empty art should render nothing")
	}
}

func TestChecklistLine(t *testing.T) {
	if got := checklistLine(2, false, "200 g flour"); !strings.Contains(got, "[ ] 2. 200 g flour") {
		t.Errorf("unchecked line = %q", got)
	}
	if got := checklistLine(1, true, "salt"); !strings.Contains(got, "[x] 1. salt") {
		t.Errorf("checked line = %q", got)
	}
}
