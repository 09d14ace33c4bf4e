package flipper

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// DefaultContextRadius is the number of characters captured on each side of
// a match start for human review.
const DefaultContextRadius = 50

// Matcher runs the rule registry against blocks of text. Results are cached
// by content fingerprint in the injected ResultCache, so separate Matcher
// instances can share or isolate cache state as the caller chooses.
type Matcher struct {
	rules         []Rule
	cache         *ResultCache
	contextRadius int
}

// NewMatcher creates a Matcher over the given rules, backed by the given
// cache. It fails if any rule's extraction configuration is inconsistent
// with its pattern.
func NewMatcher(rules []Rule, cache *ResultCache) (*Matcher, error) {
	return NewMatcherWithRadius(rules, cache, DefaultContextRadius)
}

// NewMatcherWithRadius creates a Matcher with a custom context window radius.
func NewMatcherWithRadius(rules []Rule, cache *ResultCache, contextRadius int) (*Matcher, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid rule registry: %w", err)
	}
	if cache == nil {
		cache = NewResultCache()
	}
	if contextRadius <= 0 {
		contextRadius = DefaultContextRadius
	}
	return &Matcher{
		rules:         rules,
		cache:         cache,
		contextRadius: contextRadius,
	}, nil
}

// Fingerprint computes the cache key for a block of text. The hash covers
// the entire text: a prefix hash could alias two different inputs and
// silently return stale results.
func Fingerprint(text string) uint64 {
	return xxhash.Sum64String(text)
}

// Analyze runs every registry rule against text and returns all detections
// in rule-then-occurrence order. Any input is valid input: malformed text
// and an empty match set are both ordinary non-error results. The returned
// result may alias a cache entry and must not be mutated.
func (m *Matcher) Analyze(text string) *domain.AnalysisResult {
	fingerprint := Fingerprint(text)
	if cached, ok := m.cache.Get(fingerprint); ok {
		return cached
	}

	lineStarts := buildLineIndex(text)

	var detections []domain.Detection
	for _, rule := range m.rules {
		matches := rule.Pattern.FindAllStringSubmatchIndex(text, -1)
		for _, match := range matches {
			start, end := match[0], match[1]
			line := lineForOffset(lineStarts, start)
			detection := domain.Detection{
				Category:    rule.Category,
				Description: rule.Description,
				Line:        line,
				Column:      start - lineStarts[line-1],
				Match:       text[start:end],
				Context:     contextWindow(text, start, m.contextRadius),
			}
			if rule.ExtractsFlag {
				detection.FlagName = rule.resolveFlag(text, match)
			}
			detections = append(detections, detection)
		}
	}

	result := &domain.AnalysisResult{
		Detections: detections,
		Summary:    summarize(detections),
	}
	m.cache.Put(fingerprint, result)
	return result
}

// Cache returns the matcher's result cache.
func (m *Matcher) Cache() *ResultCache {
	return m.cache
}

// resolveFlag extracts the raw flag token from the rule's capture group and
// maps it through the alias table, falling back to the raw token when no
// alias is registered.
func (r Rule) resolveFlag(text string, match []int) string {
	groupStart := match[2*r.CaptureGroup]
	groupEnd := match[2*r.CaptureGroup+1]
	if groupStart < 0 || groupEnd < 0 {
		return ""
	}
	raw := strings.Trim(text[groupStart:groupEnd], "'\"`")
	if raw == "" {
		return ""
	}
	if canonical, ok := r.Aliases[raw]; ok {
		return canonical
	}
	return raw
}

// buildLineIndex returns the byte offset of the start of each line.
func buildLineIndex(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineForOffset returns the 1-based line number containing the offset.
func lineForOffset(lineStarts []int, offset int) int {
	return sort.SearchInts(lineStarts, offset+1)
}

// contextWindow returns a fixed-size window of text around the match start,
// clipped to the text bounds. Window edges that land inside a multi-byte
// rune are widened to the nearest rune boundary so the snippet stays valid
// UTF-8.
func contextWindow(text string, start, radius int) string {
	from := start - radius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := start + radius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}

func summarize(detections []domain.Detection) string {
	if len(detections) == 0 {
		return "No flipper usage detected"
	}
	categories := make(map[domain.RuleCategory]struct{})
	for _, d := range detections {
		categories[d.Category] = struct{}{}
	}
	return fmt.Sprintf("Found %d flipper usage(s) in %d categories", len(detections), len(categories))
}
