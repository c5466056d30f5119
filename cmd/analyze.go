package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkrenek/fbmask/internal/config"
	"github.com/tkrenek/fbmask/internal/output"
	"github.com/tkrenek/fbmask/internal/parser"
	"github.com/tkrenek/fbmask/internal/pseudonym"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file|glob>...",
	Short: "Preview what masking would redact",
	Long: `Scan trace logs without modifying anything and report the string
literals, WHERE clauses and HAVING clauses a masking run would see,
ranked by frequency. Literals that would be redacted show their hash
placeholder.

Examples:
  fbmask analyze trace.log
  fbmask analyze --keyword Muster --top 20 trace.log
  fbmask analyze --redact-all-literals --format json "traces/*.log"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	addMaskingFlags(analyzeCmd)
	analyzeCmd.Flags().Int("top", pseudonym.DefaultTopN, "number of entries to report per category")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	topN, _ := cmd.Flags().GetInt("top")
	if topN <= 0 {
		return fmt.Errorf("--top must be positive, got %d", topN)
	}

	engine, err := pseudonym.NewEngine(cfg.EngineOptions())
	if err != nil {
		return err
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	p := parser.New()
	agg := pseudonym.NewAggregator()
	records := 0

	for _, file := range files {
		err := p.ParseFileStream(file, func(rec parser.TraceRecord) error {
			records++
			agg.Observe(engine.Analyze(rec))
			return nil
		})
		if err != nil {
			return err
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Analyzed %d events from %d file(s)\n", records, len(files))
	}

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format), output.ParseColorMode(cfg.Color))
	return writer.WriteReport(agg.Report(topN))
}
