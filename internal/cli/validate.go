package cli

import (
	"errors"
	"fmt"
	"io"

	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/surveydoc"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ErrInvalidFlow = errors.New("survey flow is invalid")

// NewValidateCommand creates the validate subcommand
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate the question flow of a survey document",
		Long: `Load a survey document and report:
  - steps pointing at missing questions
  - cycles, with the path that closes the loop
  - questions that can never reach the end of the survey

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFile(args[0], cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
}

func validateFile(path string, out io.Writer) error {
	doc, err := surveydoc.Load(path)
	if err != nil {
		return err
	}
	g, err := doc.Graph()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	report := flow.Validate(g)
	printReport(out, doc, report)
	if !report.Valid {
		return ErrInvalidFlow
	}
	return nil
}

func printReport(out io.Writer, doc *surveydoc.Document, report flow.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(out, "%s", doc.Title)
	fmt.Fprintf(out, " (%d questions)\n", len(doc.Questions))

	if report.Valid {
		green.Fprintln(out, "✓ flow is valid")
		return
	}

	red.Fprintf(out, "✗ flow is invalid (%d errors)\n", len(report.Errors))
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	if len(report.CyclePath) > 0 {
		yellow.Fprintf(out, "  cycle: %s\n", cyclePath(report.CyclePath))
	}
}

func cyclePath(ids []uint) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += " → "
		}
		s += fmt.Sprintf("Q%d", id)
	}
	return s
}
