package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/fs"
	edajson "github.com/fwojciec/edabot/json"
	"github.com/fwojciec/edabot/markdown"
)

const askLongDesc = `Ask one question about a dataset and print the answer.

The dataset is a path, a glob matching exactly one file, or an http(s) URL.
CSV, TSV and XLSX files are supported. Add --plot to the question to get a
chart link (requires imgur.client_id).

Examples:
  edabot ask sales.csv "total revenue by region"
  edabot ask 'exports/**/q3.xlsx' "monthly trend --plot"
  edabot ask --history thread.json sales.csv "and by product?"`

type askCommander struct {
	history string
	asJSON  bool
	width   int
}

func newAskCmd(a *app) *cobra.Command {
	cmder := &askCommander{}
	cmd := &cobra.Command{
		Use:   "ask <dataset> <question>...",
		Short: "Ask a question about a dataset",
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := resolveProvider(cmd.Context(), a.cfg.LLM, a.keys)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), a.pipeline(provider, a.localLoader()), args[0], strings.Join(args[1:], " "))
		},
	}
	cmd.Flags().StringVar(&cmder.history, "history", "", "Conversation file to continue and update")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the answer envelope as JSON")
	cmd.Flags().IntVarP(&cmder.width, "width", "w", 100, "Wrap width for terminal output")
	return cmd
}

// answerer is the part of the pipeline ask needs.
type answerer interface {
	Answer(ctx context.Context, conv edabot.Conversation) (edabot.Envelope, error)
}

func (c *askCommander) run(ctx context.Context, out io.Writer, p answerer, dataset, question string) error {
	att, err := fs.Resolve(dataset)
	if err != nil {
		return err
	}

	conv, err := loadHistory(c.history)
	if err != nil {
		return err
	}
	conv = append(conv, edabot.Turn{
		Role:        edabot.RoleUser,
		Content:     question,
		Attachments: []edabot.Attachment{att},
	})

	env, answerErr := p.Answer(ctx, conv)
	if answerErr != nil {
		env = edabot.FormatStreamFailure(answerErr)
	}

	if c.asJSON {
		data, err := edajson.MarshalEnvelope(env)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintln(out, markdown.RenderEnvelope(env, c.width, markdown.DefaultTheme()))
	}

	if answerErr != nil {
		return answerErr
	}
	if c.history != "" {
		conv = append(conv, edabot.Turn{Role: edabot.RoleAssistant, Content: env.Text})
		if err := edajson.SaveConversation(c.history, conv); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}
	return nil
}

// loadHistory reads a saved conversation. An empty path or a missing file
// yields an empty conversation.
func loadHistory(path string) (edabot.Conversation, error) {
	if path == "" {
		return nil, nil
	}
	conv, err := edajson.LoadConversation(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return conv, nil
}
