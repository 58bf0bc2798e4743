// Package cli wires the storyvideo commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ivlev/storyvideo/internal/logging"
	"github.com/ivlev/storyvideo/internal/system"
)

// BuildVersion is set by main.
var BuildVersion = "dev"

// Environment variables that provide defaults for unset flags.
const (
	EnvFFmpeg    = "STORYVIDEO_FFMPEG"
	EnvFont      = "STORYVIDEO_FONT"
	EnvOutputDir = "STORYVIDEO_OUTPUT_DIR"
)

// globals are the persistent flags shared by every command.
type globals struct {
	verbose   bool
	logFormat string
	logger    zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "storyvideo",
		Short: "Render illustrated stories into narrated videos",
		Long: `storyvideo turns a story file (pages of illustration, caption and
narration) into a video with motion, cross-fades and an AAC narration track.`,
		Version:       BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.logger = logging.NewWriter(cmd.ErrOrStderr(), g.verbose, g.logFormat)
			system.InitResourceLimits(g.logger)
		},
	}

	root.PersistentFlags().
		BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().
		StringVar(&g.logFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newRenderCmd(g),
		newBatchCmd(g),
		newPlanCmd(g),
		newEncodeAudioCmd(g),
		newInitCmd(g),
	)
	return root
}

// Execute runs the CLI. Variables from a .env file in the working directory
// become defaults; the environment itself wins.
func Execute() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[!] .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %s: %v\n", cmd.CommandPath(), err)
	}
	return err
}
