package flipper

import (
	"fmt"
	"strings"
)

// ReportSections holds the two markdown blocks synthesized for a flag-gated
// change. Both are intended for insertion, unmodified, into a pull-request
// description.
type ReportSections struct {
	QA      string
	Details string
}

// BuildSections renders the QA checklist and the environment-setup brief for
// the given ordered flag names. It is pure string formatting: all business
// branching happens in the diff analyzer before this is invoked, and an
// empty flag list yields empty sections rather than a "no flags" message.
func BuildSections(flagNames []string) ReportSections {
	if len(flagNames) == 0 {
		return ReportSections{}
	}
	return ReportSections{
		QA:      buildQASection(flagNames),
		Details: buildDetailsSection(flagNames),
	}
}

func buildQASection(flagNames []string) string {
	var sb strings.Builder
	sb.WriteString("## QA\n\n")
	sb.WriteString("This change is gated behind the following feature flags:\n\n")
	for _, flag := range flagNames {
		sb.WriteString(fmt.Sprintf("- `%s`\n", flag))
	}
	sb.WriteString("\n### Verification\n\n")
	for _, flag := range flagNames {
		sb.WriteString(fmt.Sprintf("- [ ] Test with `%s` **enabled**\n", flag))
		sb.WriteString(fmt.Sprintf("- [ ] Test with `%s` **disabled**\n", flag))
	}
	sb.WriteString("\n### Cleanup\n\n")
	for _, flag := range flagNames {
		sb.WriteString(fmt.Sprintf("- [ ] Schedule removal of `%s` after full rollout\n", flag))
	}
	return sb.String()
}

func buildDetailsSection(flagNames []string) string {
	var sb strings.Builder
	sb.WriteString("## Environment Setup\n\n")
	sb.WriteString("### Staging\n\n")
	step := 1
	for _, flag := range flagNames {
		sb.WriteString(fmt.Sprintf("%d. Enable `%s` in the staging flipper dashboard\n", step, flag))
		step++
	}
	sb.WriteString(fmt.Sprintf("%d. Verify the gated behavior end to end before promoting\n\n", step))
	sb.WriteString("### Production\n\n")
	step = 1
	for _, flag := range flagNames {
		sb.WriteString(fmt.Sprintf("%d. Roll out `%s` gradually per the release plan\n", step, flag))
		step++
	}
	sb.WriteString(fmt.Sprintf("%d. Monitor error rates during rollout\n\n", step))
	sb.WriteString("### Coordination\n\n")
	sb.WriteString("- Flipper dashboard: see the team runbook for environment links\n")
	sb.WriteString("- Notify QA before toggling flags in shared environments\n")
	return sb.String()
}
