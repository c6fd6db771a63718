package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/tokens"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

func newCountTokensCmd() *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "count-tokens [file]",
		Short: "Estimate prompt tokens for a canonical request",
		Long: `Estimate prompt tokens for a canonical request read from a file or stdin.
With --text the arguments are counted as plain text instead.`,
		RunE: func(c *cobra.Command, args []string) error {
			if text {
				n, err := tokens.CountText(strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(c.OutOrStdout(), n)
				return nil
			}
			if len(args) > 1 {
				return fmt.Errorf("accepts at most one file, received %d", len(args))
			}
			req, err := readCanonicalRequest(c, args)
			if err != nil {
				return err
			}
			if err := ir.ValidateMessages(req.Messages); err != nil {
				return err
			}
			b, err := tokens.Count(req.ToIR())
			if err != nil {
				return err
			}
			return writeJSON(c.OutOrStdout(), b)
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "count the arguments as plain text")
	return cmd
}
