package cli

import (
	"fmt"
	"io"

	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/surveydoc"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph subcommand
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file>",
		Short: "Print where each question leads",
		Long: `Print every question of a survey document with its resolved outgoing steps.
Options without an explicit step fall back to the next question in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGraphFile(args[0], cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
}

func printGraphFile(path string, out io.Writer) error {
	doc, err := surveydoc.Load(path)
	if err != nil {
		return err
	}
	g, err := doc.Graph()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	printGraph(out, doc, g)
	return nil
}

func printGraph(out io.Writer, doc *surveydoc.Document, g *flow.Graph) {
	cyan := color.New(color.FgCyan, color.Bold)

	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		q := doc.Questions[id-1]
		cyan.Fprintf(out, "Q%d", id)
		fmt.Fprintf(out, " [%s] %s\n", q.Kind, q.Text)

		if node.Branching() && len(node.Options) > 0 {
			for _, opt := range node.Options {
				step := g.Sequential(id)
				if opt.Next.Present() {
					step = *opt.Next
				}
				fmt.Fprintf(out, "  %q → %s\n", opt.Text, stepLabel(step))
			}
			continue
		}
		for _, step := range g.Edges(id) {
			fmt.Fprintf(out, "  → %s\n", stepLabel(step))
		}
	}
}

func stepLabel(s flow.Step) string {
	if id, ok := s.Target(); ok {
		return fmt.Sprintf("Q%d", id)
	}
	return color.New(color.FgGreen).Sprint("end")
}
