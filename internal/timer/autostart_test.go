package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name        string
		hint        *int
		instruction string
		wantMinutes int
		wantSource  domain.TimerSource
	}{
		{"hint wins over text", domain.Minutes(5), "Boil for 8 minutes", 5, domain.TimerSourceHint},
		{"zero hint means no timer", domain.Minutes(0), "Boil for 8 minutes", 0, domain.TimerSourceNone},
		{"text path", nil, "Boil for 8 minutes", 8, domain.TimerSourceText},
		{"keyword fallback fry", nil, "Fry the onions until golden", 5, domain.TimerSourceKeyword},
		{"keyword fallback boil", nil, "Bring the water to a boil", 8, domain.TimerSourceKeyword},
		{"keyword fallback saute", nil, "Sauté the garlic", 3, domain.TimerSourceKeyword},
		{"fry beats saute", nil, "Sauté the onions, then fry them", 5, domain.TimerSourceKeyword},
		{"boil beats saute", nil, "Sauté the garlic and bring to a boil", 8, domain.TimerSourceKeyword},
		{"anbraten is not braten", nil, "Zwiebeln anbraten", 3, domain.TimerSourceKeyword},
		{"keyword fallback rest", nil, "Let the dough rest.", 5, domain.TimerSourceKeyword},
		{"keyword fallback cook", nil, "Cook the rice", 10, domain.TimerSourceKeyword},
		{"nothing derivable", nil, "Chop the parsley", 0, domain.TimerSourceNone},
		{"empty instruction", nil, "", 0, domain.TimerSourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, src := Derive(tt.hint, tt.instruction)
			assert.Equal(t, tt.wantMinutes, m)
			assert.Equal(t, tt.wantSource, src)
		})
	}
}

func TestExtractMinutes(t *testing.T) {
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"Boil for 8 minutes", 8, true},
		{"simmer 10 min", 10, true},
		{"Bake 25 mins at 180 degrees", 25, true},
		{"Roast for 2 hours", 120, true},
		{"Roast for 1.5 hours", 90, true},
		{"Rest 1 hr", 60, true},
		{"Bake 1 hour 30 minutes", 90, true},
		{"cook 10-12 minutes", 12, true},
		{"a 5-minute rest", 5, true},
		{"Rest 5 minutes, then bake 1 hour 30 minutes", 5, true},
		{"Kochen Sie die Nudeln 8 Minuten", 8, true},
		{"Im Ofen 1,5 Stunden garen", 90, true},
		{"2 Std. ruhen lassen", 120, true},
		{"1 Stunde und 30 Minuten backen", 90, true},
		{"10 Min. köcheln", 10, true},
		{"Add 2 tbsp olive oil", 0, false},
		{"Serve 4 hungry people", 0, false},
		{"Use 3 hamburger buns", 0, false},
		{"0 minutes", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractMinutes(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordMinutesGerman(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Zwiebeln anbraten", 3},
		{"Das Fleisch braten", 5},
		{"Wasser aufkochen", 8},
		{"Teig ruhen lassen", 5},
		{"Kartoffeln kochen", 10},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := KeywordMinutes(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
