package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/importer"
	"github.com/mindwell/recall/internal/privacy"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <directory>",
		Short: "Import a Markdown or Obsidian note collection",
		Long: "Walks a directory of Markdown files and stores each one as a note,\n" +
			"classified for privacy. Wiki links between notes become entity\n" +
			"relationships. Re-running the import updates notes in place.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	imp := importer.New(store, privacy.MustNewAnalyzer())
	report, err := imp.Import(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("imported %d of %d files (%d skipped, %d failed), %d links resolved in %s\n",
		report.NotesCreated, report.FilesFound, report.Skipped, report.Failed,
		report.LinksResolved, report.Duration.Round(time.Millisecond))
	for _, msg := range report.Errors {
		fmt.Printf("  %s\n", msg)
	}
	return nil
}
