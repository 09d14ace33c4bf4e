package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.StringP("workspace-dir", "w", "", "Workspace root to scan for flag usage")
	flags.Bool("index-enabled", false, "Build the workspace flag-usage index on startup")
	flags.String("index-dir", "", "Directory for the usage index")
	flags.Bool("watch-enabled", false, "Watch the workspace and invalidate cached results on change")
	flags.Int64("max-file-size", 0, "Maximum file size in bytes for indexing")
	flags.Int("max-results", 0, "Maximum number of search results")
	flags.Int("context-radius", 0, "Characters of context captured around each detection")
}
