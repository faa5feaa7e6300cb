package riftforge

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/riftforge/internal/forge/service"
	"github.com/louisbranch/riftforge/internal/forge/storage"
	"github.com/spf13/cobra"
)

func newStateCmd(svc *service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the active profile's saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := svc.ActiveProfile(cmd.Context())
			if err != nil {
				return err
			}
			state, ok, err := svc.LoadState(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading(iconProfile, profile.Name))
			if !ok {
				fmt.Fprintln(out, mutedStyle.Render("No data yet. Import a save file to get started."))
				return nil
			}
			fmt.Fprintln(out, panelStyle.Render(renderState(state)))
			return nil
		},
	}
}

func newResetCmd(svc *service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the active profile's defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.ResetActiveProfile(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Active profile reset to defaults"))
			return nil
		},
	}
}

func renderState(state storage.State) string {
	var b strings.Builder
	fmt.Fprintln(&b, labelValue("Engineer level", state.General.EngineerLevel))
	fmt.Fprintln(&b, labelValue("Scarab level", state.General.ScarabLevel))
	fmt.Fprintln(&b, labelValue("Rift rank", state.General.RiftRank))
	if state.AppVersion != "" {
		fmt.Fprintln(&b, labelValue("App version", state.AppVersion))
	}

	fmt.Fprintln(&b, h2Style.Render(fmt.Sprintf("Machines (%d)", len(state.Machines))))
	for _, machine := range state.Machines {
		fmt.Fprintf(&b, "  %s %s lvl %d  bp %d/%d/%d\n", machine.ID, machine.Rarity, machine.Level,
			machine.Blueprints.Damage, machine.Blueprints.Health, machine.Blueprints.Armor)
	}

	fmt.Fprintln(&b, h2Style.Render(fmt.Sprintf("Heroes (%d)", len(state.Heroes))))
	for _, hero := range state.Heroes {
		fmt.Fprintf(&b, "  %s  %d%%/%d%%/%d%%\n", hero.ID,
			hero.Percentages.Damage, hero.Percentages.Health, hero.Percentages.Armor)
	}

	fmt.Fprint(&b, h2Style.Render("Artifacts"))
	for _, artifact := range state.Artifacts {
		total := 0
		for _, count := range artifact.Values {
			total += count
		}
		fmt.Fprintf(&b, "\n  %s  %s owned", artifact.Stat, humanize.Comma(int64(total)))
	}
	return b.String()
}
