package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewPollerCmd создаёт группу команд для poller'ов работающего процесса.
func NewPollerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pollers",
		Aliases: []string{"poller"},
		Short:   "Inspect and trigger pollers",
	}

	cmd.AddCommand(
		newPollerListCmd(clientFn, outputFn),
		newPollerShowCmd(clientFn, outputFn),
		newPollerTickCmd(clientFn, outputFn),
	)

	return cmd
}

var pollerHeaders = []string{"NAME", "STATE", "INTERVAL", "LOCK", "LEADER", "TICKS", "FAILURES", "LAST", "LAST_ERROR"}

func pollerRow(p PollerResponse) []string {
	return []string{
		p.Name, p.State, p.Interval, p.Lock,
		strconv.FormatBool(p.Leader),
		strconv.FormatUint(p.Ticks, 10),
		strconv.FormatUint(p.Failures, 10),
		p.LastOutcome, p.LastError,
	}
}

func newPollerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pollers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollers, err := clientFn().ListPollers()
			if err != nil {
				return err
			}

			rows := make([][]string, len(pollers))
			for i, p := range pollers {
				rows[i] = pollerRow(p)
			}

			outputFn().Print(pollerHeaders, rows, pollers)
			return nil
		},
	}
}

func newPollerShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show poller status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := clientFn().GetPoller(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(pollerHeaders, [][]string{pollerRow(*p)}, p)
			return nil
		},
	}
}

func newPollerTickCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tick NAME",
		Short: "Run one tick now (skipped unless this instance leads)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			tick, err := clientFn().TickPoller(args[0])
			if err != nil {
				return err
			}

			out.Print([]string{"POLLER", "OUTCOME"}, [][]string{{tick.Poller, tick.Outcome}}, tick)
			out.Success(fmt.Sprintf("Tick of %s finished: %s", tick.Poller, tick.Outcome))
			return nil
		},
	}
}
