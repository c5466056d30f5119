package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkrenek/fbmask/internal/config"
	"github.com/tkrenek/fbmask/internal/output"
	"github.com/tkrenek/fbmask/internal/parser"
	"github.com/tkrenek/fbmask/internal/pseudonym"
)

var maskCmd = &cobra.Command{
	Use:   "mask [flags] <file|glob>...",
	Short: "Pseudonymize trace logs",
	Long: `Parse trace logs and write them back with sensitive content replaced by
deterministic hashes. The input files are never modified.

Examples:
  fbmask mask --keyword Muster trace.log
  fbmask mask --redact-all-literals --hash-length 16 trace.log
  fbmask mask --since 2h --output clean.log "traces/*.log"
  fbmask mask --analyze --keyword Muster trace.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMask,
}

func init() {
	addMaskingFlags(maskCmd)
	maskCmd.Flags().Bool("analyze", false, "analyze only: report would-be-redacted content instead of records")
	maskCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	maskCmd.Flags().String("since", "", "only events at or after this time (absolute or relative, e.g. 2h)")
	maskCmd.Flags().String("until", "", "only events before this time")

	rootCmd.AddCommand(maskCmd)
}

func runMask(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if analyze, _ := cmd.Flags().GetBool("analyze"); analyze {
		cfg.AnalyzeOnly = true
	}

	engine, err := pseudonym.NewEngine(cfg.EngineOptions())
	if err != nil {
		return err
	}

	filter, err := timeFilter(cmd)
	if err != nil {
		return err
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	out := io.Writer(cmd.OutOrStdout())
	colorMode := output.ParseColorMode(cfg.Color)
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		colorMode = output.ColorNever
	}

	format := output.ParseFormat(cfg.Format)
	writer := output.New(out, format, colorMode)
	p := parser.New()

	if cfg.AnalyzeOnly {
		return runMaskAnalysis(p, engine, writer, files, filter)
	}

	// Text output streams record by record; JSON and table need the
	// whole sequence.
	var collected []parser.TraceRecord
	processed := 0
	for _, file := range files {
		err := p.ParseFileStream(file, func(rec parser.TraceRecord) error {
			if !filter(rec) {
				return nil
			}
			processed++
			masked := engine.Transform(rec)
			if format == output.FormatText {
				return writer.WriteRecord(masked)
			}
			collected = append(collected, masked)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if format != output.FormatText {
		if err := writer.WriteRecords(collected); err != nil {
			return err
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Masked %d events from %d file(s)\n", processed, len(files))
	}
	return nil
}

func runMaskAnalysis(p *parser.Parser, engine *pseudonym.Engine, writer *output.Writer,
	files []string, filter func(parser.TraceRecord) bool) error {

	agg := pseudonym.NewAggregator()
	for _, file := range files {
		err := p.ParseFileStream(file, func(rec parser.TraceRecord) error {
			if filter(rec) {
				agg.Observe(engine.Analyze(rec))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return writer.WriteReport(agg.Report(pseudonym.DefaultTopN))
}

// timeFilter builds the --since/--until record predicate. Events without a
// parseable timestamp always pass: we cannot filter what we cannot
// classify.
func timeFilter(cmd *cobra.Command) (func(parser.TraceRecord) bool, error) {
	var since, until time.Time

	if s, _ := cmd.Flags().GetString("since"); s != "" {
		t, err := config.ParseTimeRef(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --since value: %w", err)
		}
		since = t
	}
	if s, _ := cmd.Flags().GetString("until"); s != "" {
		t, err := config.ParseTimeRef(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --until value: %w", err)
		}
		until = t
	}

	return func(rec parser.TraceRecord) bool {
		ts := rec.Time()
		if ts.IsZero() {
			return true
		}
		if !since.IsZero() && ts.Before(since) {
			return false
		}
		if !until.IsZero() && ts.After(until) {
			return false
		}
		return true
	}, nil
}
