package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/bootstrap"
)

const sampleConfig = `# agent-router configuration
host: 127.0.0.1
port: 8317
debug: false
logging-to-file: false

# Applied to every provider without its own proxy-url.
# proxy-url: socks5://127.0.0.1:1080

providers:
  - type: claude
    api-key: ${ANTHROPIC_API_KEY}
    model: claude-sonnet-4-5
    max-retries: 2

  - type: openai
    api-key: ${OPENAI_API_KEY}
    model: gpt-4o
    max-retries: 2

  - type: gemini
    api-key: ${GEMINI_API_KEY}
    model: gemini-2.5-flash
    enabled: false

  # Any OpenAI compatible endpoint works with a custom base-url.
  # - type: openai
  #   name: deepseek
  #   api-key: ${DEEPSEEK_API_KEY}
  #   base-url: https://api.deepseek.com/v1
  #   model: deepseek-chat
  #   rate-limit: 2
  #   burst: 4
`

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = bootstrap.DefaultConfigPath()
			}
			path, err := bootstrap.ResolvePath(path)
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
