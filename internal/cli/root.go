// Package cli implements the agent-router command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/bootstrap"
	log "github.com/sashabogi/agent-router/internal/logging"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "agent-router",
	Short: "Translate and route LLM requests across Claude, OpenAI and Gemini",
	Long: `agent-router speaks one canonical message format and translates it to and
from the Anthropic, OpenAI and Gemini wire protocols, including tool schemas,
streaming responses and provider errors.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log.SetupBaseLogger()
		log.SetDebug(debug)
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (default: "+bootstrap.DefaultConfigPath()+")")
	f.BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newCompleteCmd(),
		newTranslateCmd(),
		newCountTokensCmd(),
		newInitCmd(),
	)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig bootstraps configuration for commands that need providers.
func loadConfig() (*bootstrap.Result, error) {
	res, err := bootstrap.Bootstrap(cfgFile)
	if err != nil {
		return nil, err
	}
	if res.Config.Debug {
		log.SetDebug(true)
	}
	return res, nil
}
