package riftforge

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/riftforge/internal/forge/service"
	"github.com/spf13/cobra"
)

func newProfileCmd(svc *service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				profile, err := svc.CreateProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Created profile %d %q", profile.ID, profile.Name)))
				if profile.IsActive {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("It is now the active profile."))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				profiles, err := svc.ListProfiles(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, heading(iconProfile, "Profiles"))
				if len(profiles) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No profiles yet. Run `riftforge profile create <name>`."))
					return nil
				}
				for _, profile := range profiles {
					marker := "  "
					name := profile.Name
					if profile.IsActive {
						marker = iconActive
						name = goldStyle.Render(name) + " " + h2Style.Render("active")
					}
					fmt.Fprintf(out, "%s %3d  %s  %s\n", marker, profile.ID, name,
						mutedStyle.Render("updated "+humanize.Time(profile.UpdatedAt)))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "switch <id>",
			Short: "Make a profile active",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProfileID(args[0])
				if err != nil {
					return err
				}
				if err := svc.SwitchProfile(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Switched to profile %d", id)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a profile",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProfileID(args[0])
				if err != nil {
					return err
				}
				if err := svc.RenameProfile(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Renamed profile %d to %q", id, args[1])))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a profile and all of its data",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProfileID(args[0])
				if err != nil {
					return err
				}
				if err := svc.DeleteProfile(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Deleted profile %d", id)))
				active, err := svc.ActiveProfile(cmd.Context())
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), labelValue("Active", fmt.Sprintf("%d %q", active.ID, active.Name)))
				}
				return nil
			},
		},
	)
	return cmd
}
