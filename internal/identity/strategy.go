package identity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/capexport/internal/types"
)

// Strategy names accepted by NewStrategy.
const (
	StrategyCounting    = "counting"
	StrategyContentDiff = "content_diff"
)

// Strategy assigns an export name to one sighting of a display name and
// records whatever it needs to disambiguate later sightings. Implementations
// are not safe for concurrent use; the Resolver serializes calls.
type Strategy interface {
	Name() string

	// Next returns the export name for this sighting and whether name had been seen before.
	Next(name, description string) (exportName string, repeat bool)
}

// NewStrategy returns a fresh strategy with an empty registry.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyCounting, "":
		return NewCounting(), nil
	case StrategyContentDiff:
		return NewContentDiff(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStrategy, name)
	}
}

// Counting suffixes the k-th sighting of a name with the Roman numeral k.
type Counting struct {
	counts map[string]int
}

// NewCounting creates an empty counting strategy.
func NewCounting() *Counting {
	return &Counting{counts: make(map[string]int)}
}

func (c *Counting) Name() string { return StrategyCounting }

func (c *Counting) Next(name, _ string) (string, bool) {
	n := c.counts[name] + 1
	c.counts[name] = n
	if n == 1 {
		return name, false
	}
	return name + " " + OrdinalSuffix(n), true
}

// OrdinalSuffix is the disambiguator for the n-th sighting.
func OrdinalSuffix(n int) string {
	return Roman(n)
}

// ContentDiff suffixes a repeated name with the description words that the
// previous product of that name did not have.
type ContentDiff struct {
	last map[string]string
}

// NewContentDiff creates an empty content-diff strategy.
func NewContentDiff() *ContentDiff {
	return &ContentDiff{last: make(map[string]string)}
}

func (c *ContentDiff) Name() string { return StrategyContentDiff }

func (c *ContentDiff) Next(name, description string) (string, bool) {
	prev, seen := c.last[name]
	c.last[name] = description
	if !seen {
		return name, false
	}
	diff := TokenDiff(prev, description)
	if len(diff) == 0 {
		return name, true
	}
	return name + " " + strings.Join(diff, " "), true
}

var (
	markupTags = regexp.MustCompile(`(?i)</?(?:p|span|strong|em|b|i|u)(?:\s[^>]*)?>|<br(?:\s[^>]*)?/?>`)
	parens     = strings.NewReplacer("(", "", ")", "")
)

// SanitizeDescription strips the formatting tags and parentheses that would
// otherwise glue onto words.
func SanitizeDescription(description string) string {
	return parens.Replace(markupTags.ReplaceAllString(description, " "))
}

// TokenDiff returns the words of next that do not appear in prev, in order of
// first appearance in next.
func TokenDiff(prev, next string) []string {
	known := make(map[string]struct{})
	for _, tok := range strings.Fields(SanitizeDescription(prev)) {
		known[tok] = struct{}{}
	}
	var diff []string
	for _, tok := range strings.Fields(SanitizeDescription(next)) {
		if _, ok := known[tok]; ok {
			continue
		}
		known[tok] = struct{}{}
		diff = append(diff, tok)
	}
	return diff
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Roman formats n as a Roman numeral. Values outside 1..3999 are formatted in decimal.
func Roman(n int) string {
	if n < 1 || n > 3999 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
