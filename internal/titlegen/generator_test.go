package titlegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/headliner/internal/decode"
	"github.com/samcharles93/headliner/internal/logger"
	"github.com/samcharles93/headliner/internal/vocab"
)

var testTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[Content]", "[Title]", "[Space]",
	"新", "闻", "hello", "##world",
}

const (
	idCLS     = 2
	idSep     = 3
	idContent = 4
	idTitle   = 5
	idSpace   = 6
	idHello   = 9
	idWorld   = 10
)

func newTestVocab(t *testing.T) *vocab.Vocab {
	t.Helper()
	v, err := vocab.New(testTokens)
	require.NoError(t, err)
	return v
}

func quietLogger() logger.Logger {
	return logger.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptScorer emits script[n] for a row holding n generated tokens, and the
// separator once the script runs out.
func scriptScorer(script ...int) decode.ScorerFunc {
	return func(_ context.Context, ids, segs [][]int) ([][]float32, error) {
		out := make([][]float32, len(ids))
		for r := range ids {
			n := 0
			for _, s := range segs[r] {
				if s == idTitle {
					n++
				}
			}
			next := idSep
			if n < len(script) {
				next = script[n]
			}
			row := make([]float32, len(testTokens))
			row[next] = 50
			out[r] = row
		}
		return out, nil
	}
}

func testConfig() decode.Config {
	cfg := decode.DefaultConfig()
	cfg.Seed = 7
	return cfg
}

func TestGenerateAssemblesTitles(t *testing.T) {
	t.Parallel()

	g, err := New(newTestVocab(t), scriptScorer(idHello, idWorld, idSpace, 7, 8), testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	titles, err := g.Generate(context.Background(), "新闻 hello", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"helloworld 新闻", "helloworld 新闻"}, titles)

	titles, err = g.Generate(context.Background(), "新闻", 0)
	require.NoError(t, err)
	assert.Len(t, titles, g.Config().BatchSize)
}

func TestGenerateWithReportsRun(t *testing.T) {
	t.Parallel()

	g, err := New(newTestVocab(t), scriptScorer(idHello), testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := g.GenerateWith(context.Background(), "新闻", testConfig())
	require.NoError(t, err)
	assert.Equal(t, decode.OutcomeAllComplete, res.Outcome)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, 2, res.PromptTokens)
	assert.False(t, res.Truncated)
	assert.Equal(t, []string{"hello", "hello", "hello"}, res.Titles)
}

func TestPromptFramingAndTruncation(t *testing.T) {
	t.Parallel()

	g, err := New(newTestVocab(t), scriptScorer(), testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	ids, kept, truncated := g.Prompt("新\u200b闻", testConfig())
	assert.Equal(t, []int{idCLS, 7, 8, idSep}, ids)
	assert.Equal(t, 2, kept)
	assert.False(t, truncated)

	cfg := testConfig()
	cfg.GenerateMaxLen = 4
	cfg.MaxLen = 9
	ids, kept, truncated = g.Prompt("新闻新闻", cfg)
	assert.Equal(t, []int{idCLS, 7, 8, idSep}, ids)
	assert.Equal(t, 2, kept)
	assert.True(t, truncated)

	cfg.MaxLen = cfg.GenerateMaxLen + 3
	ids, kept, truncated = g.Prompt("新闻", cfg)
	assert.Equal(t, []int{idCLS, idSep}, ids)
	assert.Zero(t, kept)
	assert.True(t, truncated)
}

func TestGenerateFirstStepSegments(t *testing.T) {
	t.Parallel()

	var seen [][]int
	s := decode.ScorerFunc(func(ctx context.Context, ids, segs [][]int) ([][]float32, error) {
		if seen == nil {
			seen = segs
		}
		return scriptScorer()(ctx, ids, segs)
	})
	g, err := New(newTestVocab(t), s, testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "新闻", 1)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, []int{idContent, idContent, idContent, idContent}, seen[0])
}

func TestGenerateScorerFailure(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	boom := errors.New("gpu node unreachable")
	s := decode.ScorerFunc(func(context.Context, [][]int, [][]int) ([][]float32, error) {
		return nil, boom
	})
	g, err := New(newTestVocab(t), s, testConfig(), WithLogger(quietLogger()), WithMetrics(m))
	require.NoError(t, err)

	titles, err := g.Generate(context.Background(), "新闻", 3)
	require.Error(t, err)
	assert.Nil(t, titles)
	assert.ErrorIs(t, err, decode.ErrScorer)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScorerFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("scorer_error")))
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	g, err := New(newTestVocab(t), scriptScorer(), testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.TopP = 2
	_, err = g.GenerateWith(context.Background(), "新闻", cfg)
	assert.ErrorIs(t, err, decode.ErrInvalidConfig)

	_, err = New(newTestVocab(t), nil, testConfig())
	assert.Error(t, err)
	_, err = New(nil, scriptScorer(), testConfig())
	assert.Error(t, err)
}

func TestMetricsRecordRuns(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	cfg := testConfig()
	cfg.GenerateMaxLen = 2
	cfg.MaxLen = 6

	g, err := New(newTestVocab(t), scriptScorer(idHello, idHello, idHello), cfg, WithLogger(quietLogger()), WithMetrics(m))
	require.NoError(t, err)

	res, err := g.GenerateWith(context.Background(), "新闻", cfg)
	require.NoError(t, err)
	assert.Equal(t, decode.OutcomeMaxLenReached, res.Outcome)
	assert.True(t, res.Truncated)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("max_len_reached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Truncations))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Steps))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.truncated()
	m.failed(decode.ErrScorer)
	m.observe(Result{}, 0)
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestID(ctx))
	assert.NotEmpty(t, requestID(context.Background()))
}
