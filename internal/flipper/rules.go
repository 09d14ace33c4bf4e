package flipper

import (
	"fmt"
	"regexp"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// Rule is one entry in the detection rule registry. Rules are static
// configuration: created once at startup, never mutated.
type Rule struct {
	// Name is a stable identifier for the rule.
	Name string

	// Category tags the flag-usage idiom the rule recognizes.
	Category domain.RuleCategory

	// Pattern is the compiled match pattern. Patterns are RE2, so matching
	// is linear in input size with no backtracking.
	Pattern *regexp.Regexp

	// Description is a human-readable explanation shown with detections.
	Description string

	// ExtractsFlag reports whether a match yields a flag name.
	ExtractsFlag bool

	// CaptureGroup is the 1-based submatch index holding the raw flag
	// token. Only meaningful when ExtractsFlag is true.
	CaptureGroup int

	// Aliases maps a raw captured token to its canonical flag identifier.
	// A token absent from the map is used as-is.
	Aliases map[string]string
}

// PredefinedStreamAliases maps the known camelCase flag stream tokens to
// their canonical snake_case flag identifiers.
var PredefinedStreamAliases = map[string]string{
	"zuoraMaintenance":    "zuora_maintenance",
	"fullstory":           "allow_fullstory_tracking",
	"sepaMandates":        "sepa_mandates",
	"newCheckoutFlow":     "new_checkout_flow",
	"usageBasedBilling":   "usage_based_billing",
	"darkLaunchReporting": "dark_launch_reporting",
}

// knownFlagLiterals is the allow-list for the string-literal rule. Flags are
// sometimes referenced without any method call, e.g. passed as a variable,
// so known names are matched anywhere they appear as a quoted string.
const knownFlagLiterals = "zuora_maintenance|allow_fullstory_tracking|sepa_mandates|new_checkout_flow|usage_based_billing|dark_launch_reporting"

// predefinedStreamTokens must stay in sync with PredefinedStreamAliases.
const predefinedStreamTokens = "zuoraMaintenance|fullstory|sepaMandates|newCheckoutFlow|usageBasedBilling|darkLaunchReporting"

// defaultRules is the ordered rule catalog. Registration order determines
// detection order, so it must stay stable across releases.
var defaultRules = []Rule{
	{
		Name:        "flipper-import",
		Category:    domain.CategoryImportReference,
		Pattern:     regexp.MustCompile(`import\s+\{[^}]*Flipper[^}]*\}\s+from\s+['"][^'"]+['"]`),
		Description: "Imports flipper service or flipper utilities",
	},
	{
		Name:        "flipper-injection",
		Category:    domain.CategoryInjection,
		Pattern:     regexp.MustCompile(`(?:private|protected|public|readonly)\s+(?:readonly\s+)?\w*[fF]lipper\w*\s*:\s*\w*Flipper\w*`),
		Description: "Injects a flipper service dependency",
	},
	{
		Name:         "flipper-enabled-call",
		Category:     domain.CategoryDirectCall,
		Pattern:      regexp.MustCompile(`\.(?:flipperEnabled|isFlipperEnabledEagerly)\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`),
		Description:  "Checks whether a named flag is enabled",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
	{
		Name:         "flag-stream-declaration",
		Category:     domain.CategoryStreamDeclaration,
		Pattern:      regexp.MustCompile(`(\w+)\$\s*=\s*this\.\w*[fF]lipper\w*\.(?:flipperEnabled|select|watch)`),
		Description:  "Declares an observable bound to a flag pipeline",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
	{
		Name:         "flag-stream-check",
		Category:     domain.CategoryStreamCheck,
		Pattern:      regexp.MustCompile(`(?:map|switchMap|mergeMap|filter|tap)\(\s*[^)]*?\.flipperEnabled\(\s*['"]([^'"]+)['"]`),
		Description:  "Checks a flag inside a stream operator",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
	{
		Name:         "predefined-flag-stream",
		Category:     domain.CategoryPredefinedStream,
		Pattern:      regexp.MustCompile(`\b(` + predefinedStreamTokens + `)\$`),
		Description:  "References a predefined flag stream",
		ExtractsFlag: true,
		CaptureGroup: 1,
		Aliases:      PredefinedStreamAliases,
	},
	{
		Name:        "flipper-config-call",
		Category:    domain.CategoryConfigCall,
		Pattern:     regexp.MustCompile(`\.(?:loadFlippers|preloadFlippers|enableAllFlippers|refreshFlippers)\(`),
		Description: "Loads or enables whole flag sets",
	},
	{
		Name:         "known-flag-literal",
		Category:     domain.CategoryStringLiteral,
		Pattern:      regexp.MustCompile(`['"` + "`" + `](` + knownFlagLiterals + `)['"` + "`" + `]`),
		Description:  "References a known flag name as a string literal",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
	{
		Name:         "flag-conditional",
		Category:     domain.CategoryConditionalCheck,
		Pattern:      regexp.MustCompile(`if\s*\(\s*[^)]*?\.(?:flipperEnabled|isFlipperEnabledEagerly)\(\s*['"]([^'"]+)['"]`),
		Description:  "Branches on a named flag inside an if condition",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
	{
		Name:         "flag-template-conditional",
		Category:     domain.CategoryTemplateCheck,
		Pattern:      regexp.MustCompile(`\*ngIf\s*=\s*"[^"]*flipperEnabled\(\s*'([^']+)'`),
		Description:  "Branches on a named flag inside a template conditional",
		ExtractsFlag: true,
		CaptureGroup: 1,
	},
}

// Rules returns the ordered detection rule catalog. The returned slice is
// shared and must be treated as read-only.
func Rules() []Rule {
	return defaultRules
}

// ValidateRules checks that every rule's extraction configuration is
// consistent with its compiled pattern. The capture group index is an
// explicit field precisely so that editing a pattern cannot silently shift
// which group the flag is read from.
func ValidateRules(rules []Rule) error {
	for _, r := range rules {
		if r.Name == "" {
			return fmt.Errorf("rule with category %s has no name", r.Category)
		}
		if r.Pattern == nil {
			return fmt.Errorf("rule %s has no compiled pattern", r.Name)
		}
		if !r.ExtractsFlag {
			continue
		}
		if r.CaptureGroup < 1 {
			return fmt.Errorf("rule %s extracts a flag but capture group is %d", r.Name, r.CaptureGroup)
		}
		if n := r.Pattern.NumSubexp(); r.CaptureGroup > n {
			return fmt.Errorf("rule %s capture group %d exceeds pattern group count %d", r.Name, r.CaptureGroup, n)
		}
	}
	return nil
}
