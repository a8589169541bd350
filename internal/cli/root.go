// Package cli provides the command-line interface for spantap.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spantap/spantap/internal/config"
)

var cfgFile string
var cfg *config.Config

// logger emits diagnostics to stderr when debug logging is enabled;
// otherwise it is silent.
var logger = log.New(io.Discard, "spantap: ", 0)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spantap",
	Short: "A provenance-preserving HTTP/1.1 transcript parser",
	Long: `Spantap parses HTTP/1.1 transcripts into span-annotated trees: every
parsed element records the exact byte ranges of the transcript that
produced it, so individual fields can be disclosed or redacted by byte
position.

Examples:
  # Extract request/response transcripts from a packet capture
  spantap extract capture.pcap -o transcripts/

  # Parse a request transcript and summarize its messages
  spantap parse transcripts/conv-000.req.http

  # Export a span-annotated parse tree
  spantap export transcripts/conv-000.res.http -d responses -o tree.json`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/spantap/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Use defaults if config load fails
		cfg = config.DefaultConfig()
	}

	if viper.IsSet("logging.level") {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if cfg.Logging.Level == "debug" {
		logger.SetOutput(os.Stderr)
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}
