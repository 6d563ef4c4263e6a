package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bt "github.com/fwojciec/edabot/bubbletea"
	"github.com/fwojciec/edabot/fs"
	edajson "github.com/fwojciec/edabot/json"
	"github.com/fwojciec/edabot/logger"
	"github.com/fwojciec/edabot/markdown"
)

type chatCommander struct {
	history string
	logFile string
}

func newChatCmd(a *app) *cobra.Command {
	cmder := &chatCommander{}
	cmd := &cobra.Command{
		Use:   "chat <dataset>",
		Short: "Ask follow-up questions about a dataset interactively",
		Long: `Open an interactive session over one dataset. Each answer is kept as
context for the next question. With --history the session starts from a
saved conversation and writes the updated one back on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the TUI, so logs go to a file or nowhere.
			log, closeLog, err := cmder.logger(a.cfg.Debug)
			if err != nil {
				return err
			}
			defer closeLog()
			a.logger = log

			provider, err := resolveProvider(cmd.Context(), a.cfg.LLM, a.keys)
			if err != nil {
				return err
			}
			p := a.pipeline(provider, a.localLoader())
			return cmder.run(cmd.Context(), p.Answer, args[0], func(ctx context.Context, m bt.Model) (bt.Model, error) {
				return bt.Run(ctx, m)
			})
		},
	}
	cmd.Flags().StringVar(&cmder.history, "history", "", "Conversation file to continue and update")
	cmd.Flags().StringVar(&cmder.logFile, "log", "", "Write logs to this file while the session runs")
	return cmd
}

// runFunc drives a chat model to completion.
type runFunc func(ctx context.Context, m bt.Model) (bt.Model, error)

func (c *chatCommander) run(ctx context.Context, answer bt.AnswerFunc, dataset string, drive runFunc) error {
	att, err := fs.Resolve(dataset)
	if err != nil {
		return err
	}
	conv, err := loadHistory(c.history)
	if err != nil {
		return err
	}

	final, err := drive(ctx, bt.New(answer, att, conv, markdown.DefaultTheme()))
	if err != nil {
		return err
	}

	if c.history == "" {
		return nil
	}
	if got := final.Conversation(); len(got) > len(conv) {
		if err := edajson.SaveConversation(c.history, got); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}
	return nil
}

func (c *chatCommander) logger(debug bool) (*zap.Logger, func(), error) {
	if c.logFile == "" {
		return zap.NewNop(), func() {}, nil
	}
	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := logger.NewWithWriter(f, debug, false)
	return l, func() {
		_ = l.Sync()
		_ = f.Close()
	}, nil
}
