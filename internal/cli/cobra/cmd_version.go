package cobra

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Infineon/mpy-test-ext/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print mpytest version",
		Long:  "Print the mpytest version string.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mpytest %s\n", version.FullVersion())
		},
	}

	return cmd
}
