// Package cli implements the filedrop command line tool: batch uploads from
// the local disk with per-file retry, and access tokens for the gRPC API.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filedrop/internal/logging"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// environ is a test seam for os.Environ.
var environ = os.Environ

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "filedrop",
		Short:        "Upload batches of files to S3-compatible storage",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log upload progress to stderr")

	root.AddCommand(newUploadCmd(), newTokenCmd())
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newLogger(cmd *cobra.Command) logging.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

