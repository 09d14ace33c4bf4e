package flipper

import (
	"strings"
	"testing"
)

func TestBuildSections_EmptyFlagList(t *testing.T) {
	sections := BuildSections(nil)
	if sections.QA != "" {
		t.Errorf("Expected empty QA section, got %q", sections.QA)
	}
	if sections.Details != "" {
		t.Errorf("Expected empty details section, got %q", sections.Details)
	}

	sections = BuildSections([]string{})
	if sections.QA != "" || sections.Details != "" {
		t.Error("Expected empty sections for an empty slice")
	}
}

func TestBuildSections_QAContent(t *testing.T) {
	sections := BuildSections([]string{"zuora_maintenance", "sepa_mandates"})

	qa := sections.QA
	if !strings.HasPrefix(qa, "## QA\n") {
		t.Errorf("Expected QA section to open with its heading, got %q", qa[:20])
	}
	for _, flag := range []string{"zuora_maintenance", "sepa_mandates"} {
		if !strings.Contains(qa, "- `"+flag+"`") {
			t.Errorf("Expected flag listing for %q", flag)
		}
		if !strings.Contains(qa, "- [ ] Test with `"+flag+"` **enabled**") {
			t.Errorf("Expected enabled checkbox for %q", flag)
		}
		if !strings.Contains(qa, "- [ ] Test with `"+flag+"` **disabled**") {
			t.Errorf("Expected disabled checkbox for %q", flag)
		}
		if !strings.Contains(qa, "Schedule removal of `"+flag+"`") {
			t.Errorf("Expected cleanup item for %q", flag)
		}
	}
	if !strings.Contains(qa, "### Verification") {
		t.Error("Expected a Verification subsection")
	}
	if !strings.Contains(qa, "### Cleanup") {
		t.Error("Expected a Cleanup subsection")
	}
}

func TestBuildSections_DetailsContent(t *testing.T) {
	sections := BuildSections([]string{"new_checkout_flow"})

	details := sections.Details
	if !strings.HasPrefix(details, "## Environment Setup\n") {
		t.Error("Expected details section to open with its heading")
	}
	if !strings.Contains(details, "### Staging") {
		t.Error("Expected a Staging subsection")
	}
	if !strings.Contains(details, "### Production") {
		t.Error("Expected a Production subsection")
	}
	if !strings.Contains(details, "### Coordination") {
		t.Error("Expected a Coordination subsection")
	}
	if !strings.Contains(details, "1. Enable `new_checkout_flow` in the staging flipper dashboard") {
		t.Error("Expected a numbered staging step for the flag")
	}
	if !strings.Contains(details, "1. Roll out `new_checkout_flow` gradually") {
		t.Error("Expected a numbered production step for the flag")
	}
}

func TestBuildSections_StepNumbering(t *testing.T) {
	sections := BuildSections([]string{"a_flag", "b_flag"})

	// Two flag steps plus the trailing verification step.
	if !strings.Contains(sections.Details, "2. Enable `b_flag`") {
		t.Error("Expected sequential staging step numbers")
	}
	if !strings.Contains(sections.Details, "3. Verify the gated behavior") {
		t.Error("Expected the verification step after the flag steps")
	}
	if !strings.Contains(sections.Details, "3. Monitor error rates") {
		t.Error("Expected the monitoring step after the rollout steps")
	}
}

func TestBuildSections_PreservesFlagOrder(t *testing.T) {
	sections := BuildSections([]string{"zebra_flag", "alpha_flag"})

	zebra := strings.Index(sections.QA, "`zebra_flag`")
	alpha := strings.Index(sections.QA, "`alpha_flag`")
	if zebra < 0 || alpha < 0 {
		t.Fatal("Expected both flags in the QA section")
	}
	if zebra > alpha {
		t.Error("Expected flags to be rendered in input order")
	}
}
