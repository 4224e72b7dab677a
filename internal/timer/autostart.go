package timer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

// Unit alternations are ordered longest first; Go regexp alternation is
// leftmost-first, so "minutes" must be tried before "min".
const (
	minuteUnits = `minutes?|minuten?|mins?|min\.?`
	hourUnits   = `hours?|hrs?|stunden?|std\.?|h`
	wordEnd     = `(?:[^\p{L}]|$)`
)

var (
	timeExpr = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*-?\s*(` + minuteUnits + `|` + hourUnits + `)` + wordEnd)

	compoundExpr = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:` + hourUnits + `)\s*(?:and|und|,)?\s*(\d+)\s*(?:` + minuteUnits + `)` + wordEnd)

	hourUnit = regexp.MustCompile(`(?i)^(?:` + hourUnits + `)$`)
)

type keywordRule struct {
	re      *regexp.Regexp
	minutes int
}

// keywordRules are checked in order: frying, boiling, sautéing, resting,
// then generic cooking. The first match wins.
var keywordRules = []keywordRule{
	{verb(`fry`, `fries`, `fried`, `frying`, `braten`, `frittieren`), 5},
	{verb(`boil(?:s|ed|ing)?`, `simmer(?:s|ed|ing)?`, `aufkochen`, `sieden`, `köcheln`), 8},
	{verb(`saut[eé](?:s|d|ed|ing)?`, `anbraten`, `d[üu]nsten`), 3},
	{verb(`rest(?:s|ed|ing)?`, `ruhen`), 5},
	{verb(`cook(?:s|ed|ing)?`, `kochen`, `garen`, `bake(?:s|d)?`, `baking`, `backen`), 10},
}

func verb(forms ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:` + strings.Join(forms, "|") + `)` + wordEnd)
}

// Derive picks the auto-start duration for a step. The explicit hint wins
// when present, even when it is zero. Otherwise the instruction text is
// scanned for a time expression, then for a cooking verb. Zero minutes
// means no timer.
func Derive(hint *int, instruction string) (int, domain.TimerSource) {
	if hint != nil {
		if *hint <= 0 {
			return 0, domain.TimerSourceNone
		}
		return *hint, domain.TimerSourceHint
	}
	if m, ok := ExtractMinutes(instruction); ok {
		return m, domain.TimerSourceText
	}
	if m, ok := KeywordMinutes(instruction); ok {
		return m, domain.TimerSourceKeyword
	}
	return 0, domain.TimerSourceNone
}

// ExtractMinutes finds the first explicit duration in text, in English or
// German, and returns it in whole minutes (rounded up).
func ExtractMinutes(text string) (int, bool) {
	simple := timeExpr.FindStringSubmatchIndex(text)
	compound := compoundExpr.FindStringSubmatchIndex(text)

	if compound != nil && (simple == nil || compound[0] <= simple[0]) {
		h, ok1 := parseQuantity(text[compound[2]:compound[3]])
		m, ok2 := parseQuantity(text[compound[4]:compound[5]])
		if ok1 && ok2 {
			return roundUp(h*60 + m)
		}
	}

	if simple == nil {
		return 0, false
	}
	q, ok := parseQuantity(text[simple[2]:simple[3]])
	if !ok {
		return 0, false
	}
	if hourUnit.MatchString(text[simple[4]:simple[5]]) {
		q *= 60
	}
	return roundUp(q)
}

// KeywordMinutes returns the fallback duration for the first cooking verb
// found in text.
func KeywordMinutes(text string) (int, bool) {
	for _, rule := range keywordRules {
		if rule.re.MatchString(text) {
			return rule.minutes, true
		}
	}
	return 0, false
}

func parseQuantity(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func roundUp(minutes float64) (int, bool) {
	m := int(math.Ceil(minutes))
	if m <= 0 {
		return 0, false
	}
	return m, true
}
