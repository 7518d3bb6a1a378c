package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchSeedsIndependentSequences(t *testing.T) {
	t.Parallel()

	prompt := []int{testCLS, 7, testSep}
	b := NewBatch(prompt, testContent, testTitle, 3)
	prompt[1] = 99

	require.Equal(t, 3, b.Size())
	assert.Equal(t, []int{testCLS, 7, testSep}, b.Prompt(), "prompt is copied")
	assert.Equal(t, []int{0, 1, 2}, b.Live())
	assert.False(t, b.AllCompleted())

	b.append(1, 9)
	assert.Empty(t, b.Sequence(0).Tokens)
	assert.Equal(t, []int{9}, b.Sequence(1).Tokens)

	ids, segs := b.History(1)
	assert.Equal(t, []int{testCLS, 7, testSep, 9}, ids)
	assert.Equal(t, []int{testContent, testContent, testContent, testTitle}, segs)
}

func TestCompleteIsIdempotent(t *testing.T) {
	t.Parallel()

	b := testBatch(2)
	assert.True(t, b.complete(0))
	b.step = 4
	assert.False(t, b.complete(0))
	assert.Equal(t, 1, b.Sequence(0).CompletedAt)
	assert.Equal(t, []int{1}, b.Live())

	assert.True(t, b.complete(1))
	assert.Equal(t, 5, b.Sequence(1).CompletedAt)
	assert.True(t, b.AllCompleted())
	assert.Empty(t, b.Live())
}

func TestAssembleStripsMarkersAndRestoresSpaces(t *testing.T) {
	t.Parallel()

	b := testBatch(3)
	for _, id := range []int{7, 8, testSpace, 9, 10, testSep, 9} {
		b.append(0, id)
	}
	for _, id := range []int{9, 10} {
		b.append(1, id)
	}

	out := Assemble(b, testDetok{})
	assert.Equal(t, []string{"新闻 helloworld", "helloworld", ""}, out)
	for _, s := range out {
		assert.False(t, strings.Contains(s, "[SEP]"))
		assert.False(t, strings.Contains(s, "[Space]"))
		assert.False(t, strings.Contains(s, ContinuationMarker))
	}
}

func TestAssembleKeepsDuplicates(t *testing.T) {
	t.Parallel()

	b := testBatch(2)
	b.append(0, 9)
	b.append(1, 9)
	assert.Equal(t, []string{"hello", "hello"}, Assemble(b, testDetok{}))
}
