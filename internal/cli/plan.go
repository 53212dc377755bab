// internal/cli/plan.go
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var planFlags packFlags

var planCmd = &cobra.Command{
	Use:   "plan [source...]",
	Short: "Show what a build would package",
	Long: `Run placement without writing anything and print the resulting
operations in order.`,
	RunE: runPlan,
}

func init() {
	planFlags.register(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, req, err := planFlags.request(cmd, args)
	if err != nil {
		return err
	}

	ops, summary, err := p.Plan(req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printSection(w, "Summary")
	printLabelValue(w, "Platform", p.Platform().String())
	printLabelValue(w, "Interpreter", summary.Interpreter)
	printLabelValue(w, "Script", summary.Script)
	printLabelValue(w, "Root", summary.Root)

	printSection(w, "Operations")
	for _, op := range ops {
		name, detail, _ := strings.Cut(op.String(), " ")
		printOp(w, name, detail)
	}
	return nil
}
