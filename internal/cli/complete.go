package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/runtime/executor"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

type completeOptions struct {
	provider    string
	model       string
	system      string
	maxTokens   int
	temperature float64
	toolsFile   string
	stream      bool
	jsonOut     bool
}

func newCompleteCmd() *cobra.Command {
	var opts completeOptions
	cmd := &cobra.Command{
		Use:   "complete [prompt]",
		Short: "Send a single prompt to a configured provider",
		Long: `Send a single user prompt to a configured provider. The prompt is taken from
the arguments, or from stdin when none are given.`,
		RunE: func(c *cobra.Command, args []string) error {
			res, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := executor.NewPool(res.Config)
			if err != nil {
				return err
			}
			client, err := pool.Get(opts.provider)
			if err != nil {
				return err
			}

			req, err := opts.request(c, args)
			if err != nil {
				return err
			}

			if opts.stream {
				return runStream(c, client, req, opts.jsonOut)
			}
			resp, err := client.Complete(c.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(c.OutOrStdout(), messageOutput(resp.Message, resp.Meta))
			}
			printMessage(c.OutOrStdout(), resp.Message)
			printMeta(c.ErrOrStderr(), client.Name(), resp.Meta)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", "", "provider name (default: first configured)")
	f.StringVarP(&opts.model, "model", "m", "", "model override")
	f.StringVarP(&opts.system, "system", "s", "", "system prompt")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum output tokens")
	f.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature")
	f.StringVar(&opts.toolsFile, "tools", "", "JSON file with canonical tool definitions")
	f.BoolVar(&opts.stream, "stream", false, "stream the response")
	f.BoolVar(&opts.jsonOut, "json", false, "print the canonical message as JSON")
	return cmd
}

func (o *completeOptions) request(c *cobra.Command, args []string) (*ir.Request, error) {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		data, err := io.ReadAll(c.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return nil, ir.NewTranslationError(-1, "empty prompt")
	}

	req := &ir.Request{
		Model:     o.model,
		System:    o.system,
		Messages:  []ir.Message{ir.UserText(prompt)},
		MaxTokens: o.maxTokens,
		Stream:    o.stream,
	}
	if c.Flags().Changed("temperature") {
		t := o.temperature
		req.Temperature = &t
	}
	if o.toolsFile != "" {
		data, err := os.ReadFile(o.toolsFile)
		if err != nil {
			return nil, fmt.Errorf("read tools: %w", err)
		}
		if err := json.Unmarshal(data, &req.Tools); err != nil {
			return nil, fmt.Errorf("decode tools: %w", err)
		}
		if err := ir.ValidateTools(req.Tools); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func runStream(c *cobra.Command, client *executor.Client, req *ir.Request, jsonOut bool) error {
	st, err := client.Stream(c.Context(), req)
	if err != nil {
		return err
	}
	defer st.Close()

	out := c.OutOrStdout()
	acc := ir.NewAccumulator()
	for chunk, err := range st.All() {
		if err != nil {
			return err
		}
		if err := acc.Add(chunk); err != nil {
			return err
		}
		if jsonOut {
			continue
		}
		if d, ok := chunk.(ir.ContentBlockDelta); ok {
			if t, ok := d.Delta.(ir.TextDelta); ok {
				fmt.Fprint(out, t.Text)
			}
		}
	}

	msg := acc.Message()
	if jsonOut {
		return writeJSON(out, messageOutput(msg, st.Meta()))
	}
	fmt.Fprintln(out)
	printToolUses(out, msg)
	printMeta(c.ErrOrStderr(), client.Name(), st.Meta())
	return nil
}

func printMessage(w io.Writer, msg ir.Message) {
	if msg.Content.IsText() {
		fmt.Fprintln(w, msg.Content.Text)
		return
	}
	for _, b := range msg.Content.Blocks {
		if t, ok := b.(ir.TextBlock); ok {
			fmt.Fprintln(w, t.Text)
		}
	}
	printToolUses(w, msg)
}

func printToolUses(w io.Writer, msg ir.Message) {
	for _, b := range msg.Content.Blocks {
		tu, ok := b.(ir.ToolUseBlock)
		if !ok {
			continue
		}
		args, err := json.Marshal(tu.Input)
		if err != nil {
			args = []byte("{}")
		}
		fmt.Fprintf(w, "tool_use %s %s %s\n", tu.ID, tu.Name, args)
	}
}

func printMeta(w io.Writer, name string, meta ir.StreamMeta) {
	fmt.Fprintf(w, "[%s] model=%s stop=%s in=%d out=%d\n",
		name, meta.Model, meta.StopReason, meta.Usage.InputTokens, meta.Usage.OutputTokens)
}
