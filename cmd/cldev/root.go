package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cldev",
	Short: "Personal development knowledge base",
	Long: `cldev keeps a searchable index of your debugging and learning sessions.

Each session is a markdown file with YAML frontmatter, mirrored into an
embedded SQLite index for fast querying. The markdown files are the source
of truth; the index can always be rebuilt from them.

Core capabilities:
- Full-text and TF-IDF search over past sessions
- Fuzzy matching of error messages against recorded failures
- File hotspot analysis across sessions
- Context-aware suggestions for the problem you're working on now`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(lrCmd)
	rootCmd.AddCommand(versionCmd)
}
