package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/runtime/stream"
	"github.com/sashabogi/agent-router/internal/translator"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

const canonical = "canonical"

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate tools, requests, responses and streams offline",
	}
	cmd.AddCommand(
		newTranslateToolsCmd(),
		newTranslateRequestCmd(),
		newTranslateResponseCmd(),
		newTranslateStreamCmd(),
	)
	return cmd
}

func newTranslateToolsCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "tools [file]",
		Short: "Convert a tool definition array between formats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := readInput(c, args)
			if err != nil {
				return err
			}

			var tools []ir.Tool
			if from == canonical {
				if err := json.Unmarshal(data, &tools); err != nil {
					return fmt.Errorf("decode tools: %w", err)
				}
				if err := ir.ValidateTools(tools); err != nil {
					return err
				}
			} else {
				f, err := parseFormatFlag("from", from)
				if err != nil {
					return err
				}
				if tools, err = translator.FromProviderTools(data, f); err != nil {
					return err
				}
			}

			if to == canonical {
				return writeJSON(c.OutOrStdout(), tools)
			}
			f, err := parseFormatFlag("to", to)
			if err != nil {
				return err
			}
			out, err := translator.ToProviderTools(tools, f)
			if err != nil {
				return err
			}
			return writeRawJSON(c.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&from, "from", canonical, "input format: canonical, claude, openai or gemini")
	cmd.Flags().StringVar(&to, "to", canonical, "output format: canonical, claude, openai or gemini")
	return cmd
}

func newTranslateRequestCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "request [file]",
		Short: "Render the provider request body for a canonical request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := parseFormatFlag("to", to)
			if err != nil {
				return err
			}
			req, err := readCanonicalRequest(c, args)
			if err != nil {
				return err
			}
			out, err := translator.BuildRequest(req.ToIR(), f)
			if err != nil {
				return err
			}
			return writeRawJSON(c.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "provider format: claude, openai or gemini")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTranslateResponseCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "response [file]",
		Short: "Parse a captured provider response into canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := parseFormatFlag("from", from)
			if err != nil {
				return err
			}
			data, err := readInput(c, args)
			if err != nil {
				return err
			}
			resp, err := translator.ParseResponse(data, f)
			if err != nil {
				return err
			}
			return writeJSON(c.OutOrStdout(), messageOutput(resp.Message, resp.Meta))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "provider format: claude, openai or gemini")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newTranslateStreamCmd() *cobra.Command {
	var (
		from    string
		collect bool
	)
	cmd := &cobra.Command{
		Use:   "stream [file]",
		Short: "Normalize a captured provider SSE stream",
		Long: `Normalize a captured provider SSE stream into canonical chunks. The output
is content-block protocol SSE, or with --collect the reassembled message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := parseFormatFlag("from", from)
			if err != nil {
				return err
			}
			body, err := openInput(c, args)
			if err != nil {
				return err
			}
			st, err := stream.New(c.Context(), body, f)
			if err != nil {
				return err
			}
			defer st.Close()

			if collect {
				msg, meta, err := st.Collect()
				if err != nil {
					return err
				}
				return writeJSON(c.OutOrStdout(), messageOutput(msg, meta))
			}

			w := c.OutOrStdout()
			for chunk, err := range st.All() {
				if err != nil {
					return err
				}
				frame, err := ir.EncodeChunkSSE(chunk)
				if err != nil {
					return err
				}
				if _, err := w.Write(frame); err != nil {
					return err
				}
			}
			if n := st.Skipped(); n > 0 {
				fmt.Fprintf(c.ErrOrStderr(), "skipped %d malformed frames\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "provider format: claude, openai or gemini")
	cmd.Flags().BoolVar(&collect, "collect", false, "print the reassembled message instead of chunks")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func messageOutput(msg ir.Message, meta ir.StreamMeta) map[string]any {
	return map[string]any{
		"id":          meta.MessageID,
		"model":       meta.Model,
		"message":     msg,
		"stop_reason": string(meta.StopReason),
		"usage": map[string]int{
			"input_tokens":  meta.Usage.InputTokens,
			"output_tokens": meta.Usage.OutputTokens,
		},
	}
}
