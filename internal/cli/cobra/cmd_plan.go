package cobra

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Infineon/mpy-test-ext/internal/plan"
)

func newPlanCmd() *cobra.Command {
	var planFile string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the suites in the test plan",
		Long:  "Parse the test plan and list each suite with its kind and script count.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := plan.LoadFile(planFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range suites {
				scripts := "script"
				if len(s.Scripts) != 1 {
					scripts = "scripts"
				}
				fmt.Fprintf(out, "%-24s %-18s %d %s\n", s.Name, s.Kind, len(s.Scripts), scripts)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", defaultPlanFile, "test plan file")

	return cmd
}
