package riftforge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/louisbranch/riftforge/internal/forge/service"
	entrypoint "github.com/louisbranch/riftforge/internal/platform/cmd"
	apperrors "github.com/louisbranch/riftforge/internal/platform/errors"
	"github.com/louisbranch/riftforge/internal/platform/timeouts"
	"github.com/spf13/cobra"
)

// Version is the command version reported by --version.
const Version = "0.1.0"

// Streams carries the command's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process standard streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Run opens the store described by cfg and executes the subcommand in args
// within timeouts.Command.
func Run(ctx context.Context, cfg Config, args []string, streams Streams) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRiftforge, cfg.Telemetry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Command)
		defer cancel()

		svc, err := service.Open(ctx, cfg.serviceConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				log.Printf("riftforge: close store: %v", err)
			}
		}()

		root := newRootCmd(svc)
		root.SetArgs(args)
		if streams.In != nil {
			root.SetIn(streams.In)
		}
		if streams.Out != nil {
			root.SetOut(streams.Out)
		}
		if streams.Err != nil {
			root.SetErr(streams.Err)
		}
		return root.ExecuteContext(ctx)
	})
}

// Render formats err for the terminal. Coded errors use the localized
// message for locale.
func Render(err error, locale string) string {
	if err == nil {
		return ""
	}
	if _, ok := apperrors.As(err); !ok {
		return badStyle.Render(iconError + " " + err.Error())
	}
	notice := service.Notice(err, locale)
	if notice.Level == apperrors.SeverityWarning {
		return warnStyle.Render(iconWarn + " " + notice.Message)
	}
	return badStyle.Render(iconError + " " + notice.Message)
}

func newRootCmd(svc *service.Service) *cobra.Command {
	root := &cobra.Command{
		Use:           "riftforge",
		Short:         "Riftforge local profile storage",
		Long:          "Riftforge keeps optimizer profiles, their game state and cached results in a local database.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	root.AddCommand(
		newProfileCmd(svc),
		newImportCmd(svc),
		newExportCmd(svc),
		newStateCmd(svc),
		newResetCmd(svc),
		newResultCmd(svc),
	)
	return root
}

func parseProfileID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "parse profile id",
			map[string]string{"Reason": fmt.Sprintf("profile id %q must be a positive number", arg)})
	}
	return id, nil
}

// readInput reads the file at path, or the command input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeInvalidArgument, "read input",
			map[string]string{"Reason": fmt.Sprintf("cannot read %s", path)}, err)
	}
	return data, nil
}
