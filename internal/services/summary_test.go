package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-summary-agent/internal/document"
	"github.com/fyerfyer/doc-summary-agent/internal/llm"
	"github.com/fyerfyer/doc-summary-agent/pkg/storage"
)

// summarizeCall 记录一次摘要调用
type summarizeCall struct {
	Text    string
	Purpose string
}

// recordingSummarizer 记录所有调用并返回可预测结果的摘要器
type recordingSummarizer struct {
	mu     sync.Mutex
	calls  []summarizeCall
	failOn func(call summarizeCall) error
}

func (r *recordingSummarizer) SummarizeBlock(ctx context.Context, text, purpose string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := summarizeCall{Text: text, Purpose: purpose}
	r.calls = append(r.calls, call)
	if r.failOn != nil {
		if err := r.failOn(call); err != nil {
			return "", err
		}
	}

	if purpose == llm.PurposeCombine {
		return "FINAL(" + text + ")", nil
	}
	return fmt.Sprintf("S%d", len(r.calls)), nil
}

func (r *recordingSummarizer) Calls() []summarizeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]summarizeCall(nil), r.calls...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupSummaryTestEnv(t *testing.T, chunkSize int) (*SummaryService, *recordingSummarizer, *storage.LocalStorage) {
	t.Helper()

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	summarizer := &recordingSummarizer{}
	splitter := document.NewTextSplitter(document.SplitterConfig{ChunkSize: chunkSize})

	return NewSummaryService(store, splitter, summarizer, WithLogger(quietLogger())), summarizer, store
}

// TestSummarize 测试分层摘要的调用顺序与结果
func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("multiple chunks", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 10)

		text := "aaaaaaaa\n\nbbbbbbbb\n\ncccccccc"
		summary, err := srv.Summarize(ctx, text)
		require.NoError(t, err)

		calls := rec.Calls()
		require.Len(t, calls, 4)
		assert.Equal(t, summarizeCall{"aaaaaaaa", llm.PurposeChunk}, calls[0])
		assert.Equal(t, summarizeCall{"bbbbbbbb", llm.PurposeChunk}, calls[1])
		assert.Equal(t, summarizeCall{"cccccccc", llm.PurposeChunk}, calls[2])
		assert.Equal(t, summarizeCall{"S1\nS2\nS3", llm.PurposeCombine}, calls[3])

		assert.Equal(t, "FINAL(S1\nS2\nS3)", summary.Text)
		assert.Equal(t, 3, summary.ChunkCount)
		assert.Equal(t, []string{"S1", "S2", "S3"}, summary.ChunkSummaries)
	})

	t.Run("single chunk still combines", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 3000)

		summary, err := srv.Summarize(ctx, "short document")
		require.NoError(t, err)

		calls := rec.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, llm.PurposeChunk, calls[0].Purpose)
		assert.Equal(t, summarizeCall{"S1", llm.PurposeCombine}, calls[1])
		assert.Equal(t, "FINAL(S1)", summary.Text)
	})

	t.Run("empty document", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 3000)

		summary, err := srv.Summarize(ctx, "  \n\n  ")
		require.NoError(t, err)

		calls := rec.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, summarizeCall{"", llm.PurposeCombine}, calls[0])
		assert.Equal(t, 0, summary.ChunkCount)
		assert.Equal(t, "FINAL()", summary.Text)
	})

	t.Run("chunk failure aborts", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 10)
		boom := errors.New("boom")
		rec.failOn = func(call summarizeCall) error {
			if call.Text == "bbbbbbbb" {
				return boom
			}
			return nil
		}

		_, err := srv.Summarize(ctx, "aaaaaaaa\n\nbbbbbbbb\n\ncccccccc")
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "chunk 2/3")

		// 失败后不再处理后续分块，也不做合并
		assert.Len(t, rec.Calls(), 2)
	})

	t.Run("combine failure aborts", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 3000)
		boom := errors.New("combine failed")
		rec.failOn = func(call summarizeCall) error {
			if call.Purpose == llm.PurposeCombine {
				return boom
			}
			return nil
		}

		_, err := srv.Summarize(ctx, "text")
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv, rec, _ := setupSummaryTestEnv(t, 10)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := srv.Summarize(cctx, "aaaaaaaa\n\nbbbbbbbb")
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rec.Calls())
	})
}

// TestProcessFile 测试单个文件的完整处理流程
func TestProcessFile(t *testing.T) {
	ctx := context.Background()
	srv, rec, store := setupSummaryTestEnv(t, 3000)

	watchDir := t.TempDir()
	path := filepath.Join(watchDir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Paragraph one.\n\nParagraph two."), 0644))

	result, err := srv.ProcessFile(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", result.FileName)
	assert.Equal(t, "notes.txt_summary.md", result.OutputName)
	assert.Equal(t, 1, result.Summary.ChunkCount)
	assert.Equal(t, "Paragraph one.\n\nParagraph two.", rec.Calls()[0].Text)

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "notes.txt_summary.md"))
	require.NoError(t, err)
	assert.Equal(t, "FINAL(S1)", string(data))

	content, err := srv.GetSummary("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "FINAL(S1)", content)

	_, err = srv.GetSummary("missing.txt")
	assert.True(t, storage.IsNotFound(err))
}

func TestProcessFileErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		srv, rec, store := setupSummaryTestEnv(t, 3000)

		_, err := srv.ProcessFile(ctx, filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
		assert.Empty(t, rec.Calls())

		files, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("summarizer failure writes nothing", func(t *testing.T) {
		srv, rec, store := setupSummaryTestEnv(t, 3000)
		rec.failOn = func(summarizeCall) error { return errors.New("api down") }

		path := filepath.Join(t.TempDir(), "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

		_, err := srv.ProcessFile(ctx, path)
		require.Error(t, err)

		exists, err := store.Exists("a.txt_summary.md")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unsupported file under skip policy", func(t *testing.T) {
		store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
		require.NoError(t, err)
		rec := &recordingSummarizer{}
		srv := NewSummaryService(store, document.NewTextSplitter(document.DefaultSplitterConfig()), rec,
			WithLogger(quietLogger()),
			WithUnsupportedPolicy(document.PolicySkip),
		)

		path := filepath.Join(t.TempDir(), "image.png")
		png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
		require.NoError(t, os.WriteFile(path, png, 0644))

		_, err = srv.ProcessFile(ctx, path)
		require.ErrorIs(t, err, document.ErrUnsupported)
		assert.Empty(t, rec.Calls())
	})

	t.Run("extractor factory is used", func(t *testing.T) {
		store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
		require.NoError(t, err)
		rec := &recordingSummarizer{}
		var gotPolicy document.UnsupportedPolicy
		srv := NewSummaryService(store, document.NewTextSplitter(document.DefaultSplitterConfig()), rec,
			WithLogger(quietLogger()),
			WithExtractorFactory(func(path string, policy document.UnsupportedPolicy) (document.Extractor, error) {
				gotPolicy = policy
				return staticExtractor("from factory"), nil
			}),
		)

		summary, err := srv.SummarizeFile(ctx, "virtual.doc")
		require.NoError(t, err)
		assert.Equal(t, document.PolicyText, gotPolicy)
		assert.Equal(t, "from factory", rec.Calls()[0].Text)
		assert.Equal(t, "FINAL(S1)", summary.Text)
	})
}

// staticExtractor 返回固定文本的提取器
type staticExtractor string

func (s staticExtractor) Extract(string) (string, error) {
	return string(s), nil
}

// TestListSummaries 测试从存储恢复已摘要的文件
func TestListSummaries(t *testing.T) {
	srv, _, store := setupSummaryTestEnv(t, 3000)

	for _, name := range []string{"b.pdf_summary.md", "a.txt_summary.md", "unrelated.md"} {
		_, err := store.Save(strings.NewReader("x"), name)
		require.NoError(t, err)
	}

	entries, err := srv.ListSummaries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].FileName)
	assert.Equal(t, "a.txt_summary.md", entries[0].SummaryName)
	assert.Equal(t, int64(1), entries[0].Size)

	names, err := srv.SummarizedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, names)
}
