package riftforge

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/riftforge/internal/forge/service"
	apperrors "github.com/louisbranch/riftforge/internal/platform/errors"
	"github.com/spf13/cobra"
)

func newImportCmd(svc *service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the active profile with a save file",
		Long:  "Import reads a legacy, intermediate or final save file, migrates it and replaces the active profile's data. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			report, err := svc.Import(cmd.Context(), raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, success(fmt.Sprintf("Imported %s of save data", humanize.Bytes(uint64(len(raw))))))
			fmt.Fprintln(out, labelValue("Format", report.Format))
			if report.AppVersion != "" {
				fmt.Fprintln(out, labelValue("App version", report.AppVersion))
			}
			fmt.Fprintln(out, labelValue("Machines", report.Machines))
			fmt.Fprintln(out, labelValue("Heroes", report.Heroes))
			return nil
		},
	}
}

func newExportCmd(svc *service.Service) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the active profile as a save file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := svc.Export(cmd.Context())
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return apperrors.WrapWithMetadata(apperrors.CodeInvalidArgument, "write export",
					map[string]string{"Reason": fmt.Sprintf("cannot write %s", outPath)}, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Exported %s to %s", humanize.Bytes(uint64(len(data)+1)), outPath)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the save file to this path instead of stdout")
	return cmd
}
