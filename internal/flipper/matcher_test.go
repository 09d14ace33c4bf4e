package flipper

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	matcher, err := NewMatcher(Rules(), NewResultCache())
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}
	return matcher
}

func categoriesOf(detections []domain.Detection) []domain.RuleCategory {
	cats := make([]domain.RuleCategory, len(detections))
	for i, d := range detections {
		cats[i] = d.Category
	}
	return cats
}

func TestAnalyze_EmptyText(t *testing.T) {
	matcher := newTestMatcher(t)

	result := matcher.Analyze("")
	if len(result.Detections) != 0 {
		t.Errorf("Expected no detections for empty text, got %d", len(result.Detections))
	}
	if result.Summary != "No flipper usage detected" {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}
}

func TestAnalyze_PlainCodeNoFlags(t *testing.T) {
	matcher := newTestMatcher(t)

	result := matcher.Analyze("export const add = (a: number, b: number) => a + b;\n")
	if len(result.Detections) != 0 {
		t.Errorf("Expected no detections, got %+v", result.Detections)
	}
}

func TestAnalyze_ImportReference(t *testing.T) {
	matcher := newTestMatcher(t)

	result := matcher.Analyze(`import { FlipperService } from '@core/flipper';`)
	if len(result.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d: %+v", len(result.Detections), result.Detections)
	}
	d := result.Detections[0]
	if d.Category != domain.CategoryImportReference {
		t.Errorf("Expected category %s, got %s", domain.CategoryImportReference, d.Category)
	}
	if d.FlagName != "" {
		t.Errorf("Import detections carry no flag name, got %q", d.FlagName)
	}
}

func TestAnalyze_Injection(t *testing.T) {
	matcher := newTestMatcher(t)

	result := matcher.Analyze(`constructor(private readonly flipperService: FlipperService) {}`)
	if len(result.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d: %+v", len(result.Detections), result.Detections)
	}
	if result.Detections[0].Category != domain.CategoryInjection {
		t.Errorf("Expected category %s, got %s", domain.CategoryInjection, result.Detections[0].Category)
	}
}

func TestAnalyze_ConfigCall(t *testing.T) {
	matcher := newTestMatcher(t)

	result := matcher.Analyze(`this.flipperService.loadFlippers();`)
	if len(result.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d: %+v", len(result.Detections), result.Detections)
	}
	d := result.Detections[0]
	if d.Category != domain.CategoryConfigCall {
		t.Errorf("Expected category %s, got %s", domain.CategoryConfigCall, d.Category)
	}
	if d.FlagName != "" {
		t.Errorf("Config-call detections carry no flag name, got %q", d.FlagName)
	}
}

func TestAnalyze_StreamCheck(t *testing.T) {
	matcher := newTestMatcher(t)

	text := `switchMap(user => this.flipperService.flipperEnabled('usage_based_billing'))`
	result := matcher.Analyze(text)

	var found bool
	for _, d := range result.Detections {
		if d.Category == domain.CategoryStreamCheck {
			found = true
			if d.FlagName != "usage_based_billing" {
				t.Errorf("Expected flag 'usage_based_billing', got %q", d.FlagName)
			}
		}
	}
	if !found {
		t.Errorf("Expected a stream-check detection, got %v", categoriesOf(result.Detections))
	}
}

func TestAnalyze_TemplateConditional(t *testing.T) {
	matcher := newTestMatcher(t)

	text := `<div *ngIf="flipperService.flipperEnabled('new_checkout_flow')">`
	result := matcher.Analyze(text)

	var found bool
	for _, d := range result.Detections {
		if d.Category == domain.CategoryTemplateCheck {
			found = true
			if d.FlagName != "new_checkout_flow" {
				t.Errorf("Expected flag 'new_checkout_flow', got %q", d.FlagName)
			}
		}
	}
	if !found {
		t.Errorf("Expected a template-conditional detection, got %v", categoriesOf(result.Detections))
	}
}

func TestAnalyze_OverlappingRulesAllFire(t *testing.T) {
	matcher := newTestMatcher(t)

	// One line triggers the direct call, the known-literal and the
	// conditional rules at once. All three must be reported, in registry
	// order.
	text := `if (this.flipperService.flipperEnabled('zuora_maintenance')) {`
	result := matcher.Analyze(text)

	expected := []domain.RuleCategory{
		domain.CategoryDirectCall,
		domain.CategoryStringLiteral,
		domain.CategoryConditionalCheck,
	}
	got := categoriesOf(result.Detections)
	if len(got) != len(expected) {
		t.Fatalf("Expected categories %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Detection %d: expected category %s, got %s", i, expected[i], got[i])
		}
	}
	for _, d := range result.Detections {
		if d.FlagName != "zuora_maintenance" {
			t.Errorf("Expected every detection to resolve 'zuora_maintenance', got %q", d.FlagName)
		}
	}
}

func TestAnalyze_PredefinedStreamAliasResolution(t *testing.T) {
	matcher := newTestMatcher(t)

	tests := []struct {
		token    string
		expected string
	}{
		{"zuoraMaintenance", "zuora_maintenance"},
		{"fullstory", "allow_fullstory_tracking"},
		{"sepaMandates", "sepa_mandates"},
		{"newCheckoutFlow", "new_checkout_flow"},
		{"usageBasedBilling", "usage_based_billing"},
		{"darkLaunchReporting", "dark_launch_reporting"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			result := matcher.Analyze("value = this." + tt.token + "$ | whatever")
			if len(result.Detections) != 1 {
				t.Fatalf("Expected 1 detection, got %d: %+v", len(result.Detections), result.Detections)
			}
			d := result.Detections[0]
			if d.Category != domain.CategoryPredefinedStream {
				t.Errorf("Expected category %s, got %s", domain.CategoryPredefinedStream, d.Category)
			}
			if d.FlagName != tt.expected {
				t.Errorf("Expected flag %q, got %q", tt.expected, d.FlagName)
			}
		})
	}
}

func TestAnalyze_StreamDeclarationUsesRawToken(t *testing.T) {
	matcher := newTestMatcher(t)

	// The declaration binding name is always taken as-is, even when it
	// happens to collide with a predefined stream token. Canonical alias
	// resolution belongs to the predefined-stream rule alone.
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"custom name", `betaBanner$ = this.flipperService.select(flagKey)`, "betaBanner"},
		{"predefined token", `fullstory$ = this.flipperService.select(flagKey)`, "fullstory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := matcher.Analyze(tt.text)

			var found bool
			for _, d := range result.Detections {
				if d.Category == domain.CategoryStreamDeclaration {
					found = true
					if d.FlagName != tt.expected {
						t.Errorf("Expected raw token %q, got %q", tt.expected, d.FlagName)
					}
				}
			}
			if !found {
				t.Errorf("Expected a stream-declaration detection, got %v", categoriesOf(result.Detections))
			}
		})
	}
}

func TestAnalyze_LineAndColumnAttribution(t *testing.T) {
	matcher := newTestMatcher(t)

	text := "const a = 1;\nif (svc.flipperEnabled('sepa_mandates')) {\n}"
	result := matcher.Analyze(text)

	if len(result.Detections) < 1 {
		t.Fatal("Expected detections")
	}
	first := result.Detections[0]
	if first.Category != domain.CategoryDirectCall {
		t.Fatalf("Expected first detection to be the direct call, got %s", first.Category)
	}
	if first.Line != 2 {
		t.Errorf("Expected line 2, got %d", first.Line)
	}
	if first.Column != 7 {
		t.Errorf("Expected column 7, got %d", first.Column)
	}
}

func TestAnalyze_ContextWindowClipping(t *testing.T) {
	matcher, err := NewMatcherWithRadius(Rules(), NewResultCache(), 10)
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}

	// Match at the very start of the text: the left side of the window has
	// nothing to capture.
	result := matcher.Analyze(`'zuora_maintenance' everywhere else is padding text`)
	if len(result.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(result.Detections))
	}
	ctx := result.Detections[0].Context
	if len(ctx) != 10 {
		t.Errorf("Expected clipped 10-char context, got %d chars: %q", len(ctx), ctx)
	}
	if !strings.HasPrefix(ctx, "'zuora") {
		t.Errorf("Expected context to start at the match, got %q", ctx)
	}

	// Match in the middle gets the full window on both sides.
	padded := strings.Repeat("x", 30) + `'sepa_mandates'` + strings.Repeat("y", 30)
	result = matcher.Analyze(padded)
	if len(result.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(result.Detections))
	}
	if got := len(result.Detections[0].Context); got != 20 {
		t.Errorf("Expected a 20-char window, got %d", got)
	}
}

func TestAnalyze_ContextValidUTF8NearMultibyteRunes(t *testing.T) {
	matcher, err := NewMatcherWithRadius(Rules(), NewResultCache(), 10)
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}

	// The window edge lands inside a three-byte rune on the left side.
	text := "日本語日本語" + "ab.flipperEnabled('sepa_mandates')"
	result := matcher.Analyze(text)
	if len(result.Detections) == 0 {
		t.Fatal("Expected detections")
	}
	for _, d := range result.Detections {
		if !utf8.ValidString(d.Context) {
			t.Errorf("Detection %s: context is not valid UTF-8: %q", d.Category, d.Context)
		}
	}
}

func TestContextWindow_SnapsToRuneBoundaries(t *testing.T) {
	text := strings.Repeat("日", 6) + ".flipperEnabled('a')" + strings.Repeat("語", 6)
	start := strings.Index(text, ".")

	for radius := 1; radius <= 40; radius++ {
		got := contextWindow(text, start, radius)
		if !utf8.ValidString(got) {
			t.Errorf("Radius %d: window is not valid UTF-8: %q", radius, got)
		}
		if !strings.Contains(got, ".") {
			t.Errorf("Radius %d: window lost the match start: %q", radius, got)
		}
	}
}

func TestAnalyze_SummaryCountsCategories(t *testing.T) {
	matcher := newTestMatcher(t)

	text := `if (this.flipperService.flipperEnabled('zuora_maintenance')) {`
	result := matcher.Analyze(text)

	if result.Summary != "Found 3 flipper usage(s) in 3 categories" {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}
}

func TestAnalyze_CacheHitReturnsSameResult(t *testing.T) {
	cache := NewResultCache()
	matcher, err := NewMatcher(Rules(), cache)
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}

	text := `this.flipperService.flipperEnabled('dark_launch_reporting')`
	first := matcher.Analyze(text)
	if cache.Len() != 1 {
		t.Fatalf("Expected 1 cache entry, got %d", cache.Len())
	}

	second := matcher.Analyze(text)
	if first != second {
		t.Error("Expected the cached result instance on the second analysis")
	}
	if cache.Len() != 1 {
		t.Errorf("Expected cache size to stay at 1, got %d", cache.Len())
	}
}

func TestAnalyze_IdempotentAcrossCacheClear(t *testing.T) {
	cache := NewResultCache()
	matcher, err := NewMatcher(Rules(), cache)
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}

	text := "stream$ = this.flipper.watch\nif (x.flipperEnabled('sepa_mandates')) {}"
	first := matcher.Analyze(text)
	cache.Clear()
	second := matcher.Analyze(text)

	if len(first.Detections) != len(second.Detections) {
		t.Fatalf("Detection count changed across cache clear: %d vs %d",
			len(first.Detections), len(second.Detections))
	}
	for i := range first.Detections {
		if first.Detections[i] != second.Detections[i] {
			t.Errorf("Detection %d changed across cache clear: %+v vs %+v",
				i, first.Detections[i], second.Detections[i])
		}
	}
	if first.Summary != second.Summary {
		t.Errorf("Summary changed across cache clear: %q vs %q", first.Summary, second.Summary)
	}
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	a := Fingerprint("flipperEnabled('a')")
	b := Fingerprint("flipperEnabled('b')")
	if a == b {
		t.Error("Expected different fingerprints for different content")
	}
	if Fingerprint("same") != Fingerprint("same") {
		t.Error("Expected identical fingerprints for identical content")
	}
}

func TestNewMatcher_InvalidRules(t *testing.T) {
	broken := []Rule{{Name: "broken"}}
	if _, err := NewMatcher(broken, nil); err == nil {
		t.Error("Expected error for invalid rule registry")
	}
}

func TestNewMatcher_NilCache(t *testing.T) {
	matcher, err := NewMatcher(Rules(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if matcher.Cache() == nil {
		t.Error("Expected matcher to create its own cache")
	}
}
