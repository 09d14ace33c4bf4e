package domain

// RuleCategory identifies the flag-usage idiom a detection rule recognizes.
type RuleCategory string

const (
	CategoryImportReference   RuleCategory = "import-reference"
	CategoryInjection         RuleCategory = "dependency-injection"
	CategoryDirectCall        RuleCategory = "direct-call"
	CategoryStreamDeclaration RuleCategory = "reactive-stream-declaration"
	CategoryStreamCheck       RuleCategory = "reactive-stream-check"
	CategoryPredefinedStream  RuleCategory = "predefined-stream-usage"
	CategoryConfigCall        RuleCategory = "configuration-call"
	CategoryStringLiteral     RuleCategory = "string-literal"
	CategoryConditionalCheck  RuleCategory = "conditional-check"
	CategoryTemplateCheck     RuleCategory = "template-conditional"
)

// ChangeStatus describes how a diff touched a file.
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
)

// Detection is one located occurrence of a flag-usage idiom in a block of
// text. Line is 1-based, Column is the 0-based offset from the start of the
// line. FlagName is empty for rules that signal flag infrastructure without
// naming a specific flag. Detections are immutable once created.
type Detection struct {
	Category    RuleCategory `json:"category"`
	Description string       `json:"description"`
	Line        int          `json:"line"`
	Column      int          `json:"column"`
	Match       string       `json:"match"`
	FlagName    string       `json:"flag_name,omitempty"`
	Context     string       `json:"context"`
}

// AnalysisResult is the outcome of matching the rule registry against one
// block of text. Results are cached by content fingerprint and must never be
// mutated by callers.
type AnalysisResult struct {
	Detections []Detection `json:"detections"`
	Summary    string      `json:"summary"`
}

// FileChangeRecord is one per-file section of a parsed unified diff.
// Content is the file "as it now reads", rebuilt from added and context
// lines only; it is always empty for deleted files.
type FileChangeRecord struct {
	Path    string       `json:"path"`
	Status  ChangeStatus `json:"status"`
	Content string       `json:"content"`
}

// FileAnalysisResult holds the detections found in one changed file.
// Unavailable is true when neither the diff nor the content source could
// supply any text for the file, so an empty detection list means "could not
// be analyzed" rather than "analyzed, found nothing".
type FileAnalysisResult struct {
	Path        string       `json:"path"`
	Status      ChangeStatus `json:"status"`
	Detections  []Detection  `json:"detections"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

// DiffAnalysisResult aggregates the analysis of a whole change set.
// UniqueFlagNames preserves first-appearance order and contains no
// duplicates. QASection and DetailsSection are empty strings when no flag
// was detected anywhere in the diff.
type DiffAnalysisResult struct {
	Files           []FileAnalysisResult `json:"files"`
	UniqueFlagNames []string             `json:"unique_flag_names"`
	Summary         string               `json:"summary"`
	QASection       string               `json:"qa_section"`
	DetailsSection  string               `json:"details_section"`
}

// FlagUsageDocument represents one indexed flag detection in the workspace.
// It is the primary data structure stored in the Bleve usage index.
type FlagUsageDocument struct {
	// ID uniquely identifies the detection within the index.
	// Format: "path/to/file.ts:<line>:<column>"
	ID string `json:"id"`

	// FilePath is the file path relative to the workspace root.
	FilePath string `json:"file_path"`

	// Extension is the file extension without the leading dot.
	Extension string `json:"extension"`

	// Flag is the canonical flag identifier the detection resolved to.
	Flag string `json:"flag"`

	// Category is the detection rule category.
	Category string `json:"category"`

	// Line is the 1-based line number of the detection.
	Line int `json:"line"`

	// Context is the text window around the match, used for snippets.
	Context string `json:"context"`
}

// Bleve field name constants for consistent field references in queries and
// mappings.
const (
	UsageFieldID        = "id"
	UsageFieldFilePath  = "file_path"
	UsageFieldExtension = "extension"
	UsageFieldFlag      = "flag"
	UsageFieldCategory  = "category"
	UsageFieldLine      = "line"
	UsageFieldContext   = "context"
)
