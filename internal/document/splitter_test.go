package document

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(contents []Content) []string {
	out := make([]string, 0, len(contents))
	for _, c := range contents {
		out = append(out, c.Text)
	}
	return out
}

// TestSplitByParagraph 测试按段落累积分块
func TestSplitByParagraph(t *testing.T) {
	t.Run("default chunk size", func(t *testing.T) {
		splitter := NewTextSplitter(SplitterConfig{})
		assert.Equal(t, DefaultChunkSize, splitter.ChunkSize())
	})

	t.Run("paragraphs accumulate until the limit", func(t *testing.T) {
		splitter := NewTextSplitter(SplitterConfig{ChunkSize: 10})
		chunks, err := splitter.Split("aaa\nbbb\nccc\nddd")
		require.NoError(t, err)

		// "aaa\nbbb\n" 占8个字符，再加入"ccc\n"会超过10
		assert.Equal(t, []string{"aaa\nbbb", "ccc\nddd"}, texts(chunks))
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	})

	t.Run("oversized paragraph is kept whole", func(t *testing.T) {
		long := strings.Repeat("x", 25)
		splitter := NewTextSplitter(SplitterConfig{ChunkSize: 10})
		chunks, err := splitter.Split("ab\n" + long + "\ncd")
		require.NoError(t, err)

		assert.Equal(t, []string{"ab", long, "cd"}, texts(chunks))
	})

	t.Run("oversized first paragraph yields no empty chunk", func(t *testing.T) {
		long := strings.Repeat("y", 20)
		splitter := NewTextSplitter(SplitterConfig{ChunkSize: 10})
		chunks, err := splitter.Split(long)
		require.NoError(t, err)

		assert.Equal(t, []string{long}, texts(chunks))
	})

	t.Run("blank paragraphs are absorbed by trimming", func(t *testing.T) {
		splitter := NewTextSplitter(SplitterConfig{ChunkSize: 100})
		chunks, err := splitter.Split("\n\nfirst\n\nsecond\n\n")
		require.NoError(t, err)

		assert.Equal(t, []string{"first\n\nsecond"}, texts(chunks))
	})

	t.Run("size is counted in characters", func(t *testing.T) {
		// 每个汉字占3个字节，但只算1个字符
		splitter := NewTextSplitter(SplitterConfig{ChunkSize: 8})
		chunks, err := splitter.Split("一二三\n四五六")
		require.NoError(t, err)

		assert.Equal(t, []string{"一二三\n四五六"}, texts(chunks))
	})
}

func TestSplitEmptyInput(t *testing.T) {
	splitter := NewTextSplitter(DefaultSplitterConfig())

	for _, text := range []string{"", "\n", "   \n\t\n"} {
		chunks, err := splitter.Split(text)
		require.NoError(t, err)
		assert.Empty(t, chunks, "input %q", text)
	}
}

func TestSplitSevenThousandCharacters(t *testing.T) {
	paragraphs := make([]string, 7)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat(string(rune('a'+i)), 999)
	}
	text := strings.Join(paragraphs, "\n")
	require.Equal(t, 6999, len(text))

	chunks, err := NewTextSplitter(DefaultSplitterConfig()).Split(text)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestSplitProperties(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		if i > 0 {
			sb.WriteString("\n")
		}
		// 段落长度在1到400之间变化，其中第57段超过上限
		n := (i*37)%400 + 1
		if i == 57 {
			n = 1200
		}
		sb.WriteString(strings.Repeat(string(rune('a'+i%26)), n))
	}
	text := sb.String()
	splitter := NewTextSplitter(SplitterConfig{ChunkSize: 1000})

	first, err := splitter.Split(text)
	require.NoError(t, err)
	second, err := splitter.Split(text)
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, first, second)
	})

	t.Run("size bound", func(t *testing.T) {
		for _, c := range first {
			if utf8.RuneCountInString(c.Text) > 1000 {
				assert.NotContains(t, c.Text, "\n", "only a single paragraph may exceed the limit")
			}
		}
	})

	t.Run("paragraphs preserved", func(t *testing.T) {
		assert.Equal(t, text, strings.Join(texts(first), "\n"))
	})
}
