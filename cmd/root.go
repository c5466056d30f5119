package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkrenek/fbmask/internal/config"
	"github.com/tkrenek/fbmask/internal/pseudonym"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fbmask",
	Short: "Pseudonymize database trace logs",
	Long: `Fbmask parses database trace logs into structured events and replaces
sensitive content (users, addresses, SQL literal values) with stable,
deterministic hashes. Identical values keep identical digests, so
correlations across the log survive while the values themselves do not.

Examples:
  fbmask mask --keyword Muster trace.log
  fbmask mask --redact-all-literals --output clean.log trace.log
  fbmask analyze --keyword Muster --top 20 trace.log
  fbmask parse --format json trace.log
  fbmask follow --keyword Muster /var/log/firebird/trace.log`,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fbmask.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto, always, never)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".fbmask")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FBMASK")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("color", "auto")
	viper.SetDefault("verbose", false)
	viper.SetDefault("hash_length", pseudonym.DefaultHashLength)
	viper.SetDefault("sensitive_keywords", []string{})
	viper.SetDefault("redact_all_literals", false)
	viper.SetDefault("analyze_only", false)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig unmarshals the viper state into the typed config and applies
// the masking flags a command may override. Validation runs after the
// overrides so a bad flag value is rejected the same way as a bad config
// file, before any file is read.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	if flags := cmd.Flags(); flags.Lookup("keyword") != nil {
		keywords, _ := flags.GetStringArray("keyword")
		cfg.SensitiveKeywords = append(cfg.SensitiveKeywords, keywords...)

		if flags.Changed("redact-all-literals") {
			cfg.RedactAllLiterals, _ = flags.GetBool("redact-all-literals")
		}
		if flags.Changed("hash-length") {
			cfg.HashLength, _ = flags.GetInt("hash-length")
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// addMaskingFlags registers the flags shared by every command that runs
// the pseudonymization engine.
func addMaskingFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("keyword", "k", nil, "sensitive keyword (repeatable, substring match)")
	cmd.Flags().Bool("redact-all-literals", false, "redact every SQL string literal")
	cmd.Flags().Int("hash-length", pseudonym.DefaultHashLength, "hex characters kept from each digest (8-64)")
}
