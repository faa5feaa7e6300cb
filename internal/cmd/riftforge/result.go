package riftforge

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/riftforge/internal/forge/service"
	"github.com/spf13/cobra"
)

func newResultCmd(svc *service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Manage cached optimizer results",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save <mode> <file|->",
			Short: "Cache a result payload for a mode",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := readInput(cmd, args[1])
				if err != nil {
					return err
				}
				result, err := svc.SaveResult(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Cached %s result %s", result.Mode, result.ID)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <mode>",
			Short: "Print the cached result for a mode",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				result, ok, err := svc.LatestResult(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, mutedStyle.Render(iconInfo+" No cached result for "+args[0]))
					return nil
				}
				fmt.Fprintln(out, heading(iconBox, result.Mode+" result"))
				fmt.Fprintln(out, labelValue("Cached", humanize.Time(result.CreatedAt)))
				fmt.Fprintln(out, string(result.Payload))
				return nil
			},
		},
	)
	return cmd
}
