package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkrenek/fbmask/internal/config"
	"github.com/tkrenek/fbmask/internal/output"
	"github.com/tkrenek/fbmask/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file|glob>...",
	Short: "Parse trace logs into structured records",
	Long: `Parse trace logs and emit the structured records without any masking.
Useful for inspecting what the field grammars extract from a log.

Examples:
  fbmask parse trace.log
  fbmask parse --format json trace.log
  fbmask parse --format table "traces/*.log"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	p := parser.New()
	var records []parser.TraceRecord
	withStatement := 0

	for _, file := range files {
		err := p.ParseFileStream(file, func(rec parser.TraceRecord) error {
			if rec.HasStatement() {
				withStatement++
			}
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return err
		}
	}

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format), output.ParseColorMode(cfg.Color))
	if err := writer.WriteRecords(records); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Parsed %d events (%d with SQL) from %d file(s)\n",
			len(records), withStatement, len(files))
	}
	return nil
}
