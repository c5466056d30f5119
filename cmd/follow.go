package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tkrenek/fbmask/internal/config"
	"github.com/tkrenek/fbmask/internal/output"
	"github.com/tkrenek/fbmask/internal/parser"
	"github.com/tkrenek/fbmask/internal/pseudonym"
	"github.com/tkrenek/fbmask/internal/tail"
)

var followCmd = &cobra.Command{
	Use:   "follow [flags] <file>",
	Short: "Follow a growing trace log, masking events live",
	Long: `Watch a trace log that is still being written and emit each completed
event with sensitive content masked. Stops on interrupt; the trailing
unfinished event is flushed on exit.

Examples:
  fbmask follow --keyword Muster /var/log/firebird/trace.log
  fbmask follow --from-start --follow-rotate trace.log`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	addMaskingFlags(followCmd)
	followCmd.Flags().Bool("from-start", false, "process existing content before following")
	followCmd.Flags().Bool("follow-rotate", false, "keep following through log rotations")
	followCmd.Flags().String("rotate-wait", "", "how long to wait for a rotated file (e.g. 30s, 2m)")

	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	engine, err := pseudonym.NewEngine(cfg.EngineOptions())
	if err != nil {
		return err
	}

	opts := tail.Options{FilePath: args[0]}
	opts.FromStart, _ = cmd.Flags().GetBool("from-start")
	opts.FollowRotate, _ = cmd.Flags().GetBool("follow-rotate")
	if s, _ := cmd.Flags().GetString("rotate-wait"); s != "" {
		d, err := config.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid --rotate-wait value: %w", err)
		}
		opts.RotateWait = d
	}

	writer := output.New(cmd.OutOrStdout(), output.FormatText, output.ParseColorMode(cfg.Color))
	opts.OutputFunc = func(rec parser.TraceRecord) error {
		return writer.WriteRecord(engine.Transform(rec))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return tail.New(opts).Run(ctx)
}
