package cobra

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
	"github.com/Infineon/mpy-test-ext/internal/power"
)

const defaultDevsFile = "hil-devs.yml"

func newDevsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devs",
		Short: "Inspect and control the HIL device pool",
	}

	cmd.AddCommand(
		newDevsQueryCmd(),
		newDevsPowerCmd(),
	)

	return cmd
}

func newDevsQueryCmd() *cobra.Command {
	var devsFile string
	var filterArgs []string
	var notConnected bool

	cmd := &cobra.Command{
		Use:   "query <attribute>",
		Short: "Print one attribute of the pooled devices",
		Long: `Print one attribute of every device in the pool, one value per line.

Valid attributes: ` + strings.Join(devpool.QueryAttrs(), ", ") + `.
Filters narrow the device set by exact attribute match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := devpool.ParseFilters(filterArgs)
			if err != nil {
				return err
			}

			pool, err := devpool.LoadFile(devsFile)
			if err != nil {
				return err
			}
			if err := pool.ResolvePorts(devpool.NewSerialLocator()); err != nil {
				return err
			}

			values, err := pool.Query(args[0], filters, notConnected)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range values {
				fmt.Fprintln(out, v)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&devsFile, "devs", defaultDevsFile, "device pool file")
	cmd.Flags().StringArrayVarP(&filterArgs, "filter", "f", nil, "attribute=value filter (repeatable)")
	cmd.Flags().BoolVar(&notConnected, "not-connected", false, "include devices without a resolved serial port")

	return cmd
}

func newDevsPowerCmd() *cobra.Command {
	var uid string
	var all bool

	cmd := &cobra.Command{
		Use:   "power <on|off|cycle|status>",
		Short: "Switch USB power of a pooled device",
		Long: `Switch USB power of the hub port a device is connected to, via uhubctl.

The device is located by its USB serial id (--uid). With --all, cycle
power-cycles every controllable hub instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ctl := power.New(exec.NewRealRunner())
			out := cmd.OutOrStdout()

			if all {
				if args[0] != "cycle" {
					return errors.New(errors.EUsage, "--all only supports the cycle action")
				}
				return power.ResetAll(ctx, ctl)
			}

			if uid == "" {
				_ = cmd.Help()
				return errors.New(errors.EUsage, "--uid is required without --all")
			}

			sw, found, err := power.SwitchForDevice(ctx, ctl, uid)
			if err != nil {
				return err
			}
			if !found {
				return errors.NewWithDetails(errors.ESwitchNotFound,
					"device is not behind a controllable USB hub",
					map[string]string{"uid": uid})
			}

			switch args[0] {
			case "on":
				return sw.On(ctx)
			case "off":
				return sw.Off(ctx)
			case "cycle":
				return sw.Reset(ctx)
			case "status":
				status, err := sw.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", sw, status)
				return nil
			default:
				return errors.New(errors.EUsage,
					fmt.Sprintf("unknown power action %q (valid: on, off, cycle, status)", args[0]))
			}
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "USB serial id of the device")
	cmd.Flags().BoolVar(&all, "all", false, "power-cycle every controllable hub")

	return cmd
}
