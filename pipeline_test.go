package edabot_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func askConversation(query string) edabot.Conversation {
	return edabot.Conversation{{
		Role:        edabot.RoleUser,
		Content:     query,
		Attachments: []edabot.Attachment{{URL: "https://files.example/data.csv", Name: "data.csv"}},
	}}
}

func staticLoader(ds *edabot.Dataset) *mock.DatasetLoader {
	return &mock.DatasetLoader{
		LoadFn: func(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
			return ds, nil
		},
	}
}

func replyProvider(reply string, gotReq *edabot.Request) *mock.Provider {
	return &mock.Provider{
		StreamFn: func(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
			if gotReq != nil {
				*gotReq = req
			}
			// Split the reply into small deltas to exercise aggregation.
			var deltas []string
			rest := reply
			for len(rest) > 7 {
				deltas = append(deltas, rest[:7])
				rest = rest[7:]
			}
			return mock.TextStream(append(deltas, rest)...), nil
		},
	}
}

// sumInterpreter emulates running generated code that sums column a and
// binds it to the result name, printing the chart probe line when asked.
func sumInterpreter() *mock.Interpreter {
	return &mock.Interpreter{
		RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
			sum := 0
			for _, r := range ec.Dataset.Rows {
				var n int
				_, _ = fmt.Sscan(r[0], &n)
				sum += n
			}
			out := fmt.Sprintf("%d\n", sum)
			var chart []byte
			if ec.Plot {
				out += "chart.png\n"
				chart = []byte("\x89PNG")
			}
			return edabot.Capture{Stdout: out, Chart: chart}, nil
		},
	}
}

func TestPipeline_Answer(t *testing.T) {
	t.Parallel()

	const sumReply = "I will sum the column.\n```python\nresult = df['a'].sum()\n```\nThe sum of a is 6."

	t.Run("sum without plot marker", func(t *testing.T) {
		t.Parallel()
		var req edabot.Request
		conv := askConversation("sum column a")
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider(sumReply, &req),
			edabot.NewEngine(sumInterpreter(), nil),
			edabot.WithModel("test-model"),
		)

		env, err := p.Answer(context.Background(), conv)
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeAnswered, env.Outcome)
		assert.Contains(t, env.Text, "```\n6\n```")
		assert.Contains(t, env.Text, "The sum of a is 6.")
		assert.NotContains(t, env.Text, "![chart]")
		assert.Empty(t, env.ImageURL)

		assert.Equal(t, "test-model", req.Model)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.1, *req.Temperature, 1e-9)
		require.Len(t, req.Turns, 2)
		assert.Equal(t, edabot.RoleSystem, req.Turns[0].Role)
		assert.Contains(t, req.Turns[1].Content, "Question: sum column a")
		assert.Equal(t, "sum column a", conv[0].Content, "caller conversation must not change")
	})

	t.Run("plot marker embeds chart link", func(t *testing.T) {
		t.Parallel()
		exporter := &mock.ChartExporter{
			ExportFn: func(ctx context.Context, png []byte) (string, error) {
				return "https://i.example/chart.png", nil
			},
		}
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider(sumReply, nil),
			edabot.NewEngine(sumInterpreter(), exporter),
		)

		env, err := p.Answer(context.Background(), askConversation("plot a vs b --plot"))
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeAnswered, env.Outcome)
		assert.Contains(t, env.Text, "```\n6\n```")
		assert.NotContains(t, env.Text, "\nchart.png\n")
		assert.Contains(t, env.Text, "![chart](https://i.example/chart.png)")
		assert.Equal(t, "https://i.example/chart.png", env.ImageURL)
	})

	t.Run("plot marker with failed export", func(t *testing.T) {
		t.Parallel()
		exporter := &mock.ChartExporter{
			ExportFn: func(ctx context.Context, png []byte) (string, error) {
				return "", edabot.ErrExport
			},
		}
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider(sumReply, nil),
			edabot.NewEngine(sumInterpreter(), exporter),
		)

		env, err := p.Answer(context.Background(), askConversation("plot a vs b --plot"))
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeAnswered, env.Outcome)
		assert.Contains(t, env.Text, edabot.NoChartLink)
		assert.Empty(t, env.ImageURL)
	})

	t.Run("retrieval failure skips the model", func(t *testing.T) {
		t.Parallel()
		loader := &mock.DatasetLoader{
			LoadFn: func(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
				return nil, fmt.Errorf("http: HTTP 404: %w", edabot.ErrNoDataset)
			},
		}
		p := edabot.NewPipeline(loader, &mock.Provider{}, edabot.NewEngine(&mock.Interpreter{}, nil))

		env, err := p.Answer(context.Background(), askConversation("sum column a"))
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeRetrievalFailed, env.Outcome)
		assert.Contains(t, env.Text, "404")
	})

	t.Run("no code produced", func(t *testing.T) {
		t.Parallel()
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider("The sum of column a is 6.", nil),
			edabot.NewEngine(&mock.Interpreter{}, nil),
		)

		env, err := p.Answer(context.Background(), askConversation("sum column a"))
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeNoCode, env.Outcome)
		assert.Contains(t, env.Text, "did not produce any code")
	})

	t.Run("execution failure shows attempted code", func(t *testing.T) {
		t.Parallel()
		interp := &mock.Interpreter{
			RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
				return edabot.Capture{}, errors.New("KeyError: 'z'")
			},
		}
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider("```python\nresult = df['z']\n```", nil),
			edabot.NewEngine(interp, nil),
		)

		env, err := p.Answer(context.Background(), askConversation("show z"))
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeExecutionFailed, env.Outcome)
		assert.Contains(t, env.Text, "result = df['z']")
		assert.Contains(t, env.Text, "KeyError: 'z'")
	})

	t.Run("stream failure is an error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("overloaded")
		provider := &mock.Provider{
			StreamFn: func(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
				return nil, wantErr
			},
		}
		p := edabot.NewPipeline(staticLoader(sampleDataset()), provider, edabot.NewEngine(&mock.Interpreter{}, nil))

		_, err := p.Answer(context.Background(), askConversation("sum column a"))
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("empty completion is an error", func(t *testing.T) {
		t.Parallel()
		p := edabot.NewPipeline(staticLoader(sampleDataset()), replyProvider("", nil), edabot.NewEngine(&mock.Interpreter{}, nil))

		_, err := p.Answer(context.Background(), askConversation("sum column a"))
		assert.ErrorIs(t, err, edabot.ErrEmptyCompletion)
	})

	t.Run("no attachment", func(t *testing.T) {
		t.Parallel()
		p := edabot.NewPipeline(&mock.DatasetLoader{}, &mock.Provider{}, edabot.NewEngine(&mock.Interpreter{}, nil))

		env, err := p.Answer(context.Background(), edabot.Conversation{{Role: edabot.RoleUser, Content: "hello"}})
		require.NoError(t, err)
		assert.Equal(t, edabot.OutcomeNoAttachment, env.Outcome)
	})

	t.Run("response text bounded", func(t *testing.T) {
		t.Parallel()
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			replyProvider(sumReply+strings.Repeat(" more", 100), nil),
			edabot.NewEngine(sumInterpreter(), nil),
			edabot.WithResponseLimit(50),
		)

		env, err := p.Answer(context.Background(), askConversation("sum column a"))
		require.NoError(t, err)
		assert.LessOrEqual(t, len([]rune(env.Text)), 50)
	})

	t.Run("completion timeout applied", func(t *testing.T) {
		t.Parallel()
		provider := &mock.Provider{
			StreamFn: func(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
				_, ok := ctx.Deadline()
				assert.True(t, ok)
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		p := edabot.NewPipeline(
			staticLoader(sampleDataset()),
			provider,
			edabot.NewEngine(&mock.Interpreter{}, nil),
			edabot.WithCompletionTimeout(10*time.Millisecond),
		)

		_, err := p.Answer(context.Background(), askConversation("sum column a"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("concurrent requests see their own dataset", func(t *testing.T) {
		t.Parallel()
		loader := &mock.DatasetLoader{
			LoadFn: func(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
				return &edabot.Dataset{Columns: []string{"a"}, Rows: [][]string{{a.Name}}}, nil
			},
		}
		p := edabot.NewPipeline(loader, replyProvider(sumReply, nil), edabot.NewEngine(sumInterpreter(), nil))

		var wg sync.WaitGroup
		for i := 1; i <= 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				conv := edabot.Conversation{{
					Role:        edabot.RoleUser,
					Content:     "sum column a",
					Attachments: []edabot.Attachment{{Name: fmt.Sprint(i)}},
				}}
				env, err := p.Answer(context.Background(), conv)
				assert.NoError(t, err)
				assert.Contains(t, env.Text, fmt.Sprintf("```\n%d\n```", i))
			}()
		}
		wg.Wait()
	})
}

func TestPipeline_Settings(t *testing.T) {
	t.Parallel()
	p := edabot.NewPipeline(nil, nil, nil, edabot.WithModel("gpt-4o-mini"))
	s := p.Settings()
	assert.True(t, s.AllowAttachments)
	assert.Equal(t, edabot.IntroductionMessage, s.IntroductionMessage)
	assert.Equal(t, map[string]int{"gpt-4o-mini": 1}, s.Dependencies)
}
