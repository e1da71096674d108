package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/fyerfyer/doc-summary-agent/config"
	"github.com/fyerfyer/doc-summary-agent/internal/watcher"
	"github.com/fyerfyer/doc-summary-agent/pkg/storage"
)

func testConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	base := t.TempDir()
	t.Setenv("SUMMARIZER_WATCH_BASE_DIR", base)
	t.Setenv("SUMMARIZER_LLM_PROVIDER", "tongyi")
	t.Setenv("SUMMARIZER_LLM_API_KEY", "test-key")

	cfg, err := appconfig.Load("")
	require.NoError(t, err)
	return cfg
}

func TestSetupStorage(t *testing.T) {
	dir := t.TempDir()

	store, err := setupStorage(appconfig.StorageConfig{Type: "local", Path: dir})
	require.NoError(t, err)
	local, ok := store.(*storage.LocalStorage)
	require.True(t, ok)
	assert.Equal(t, dir, local.BasePath())

	_, err = setupStorage(appconfig.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}

func TestSetupLLM(t *testing.T) {
	client, err := setupLLM(appconfig.LLMConfig{Provider: "tongyi", Model: "qwen-turbo", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "qwen-turbo", client.Name())

	_, err = setupLLM(appconfig.LLMConfig{Provider: "tongyi", Model: "qwen-turbo"})
	assert.Error(t, err)

	_, err = setupLLM(appconfig.LLMConfig{Provider: "ollama", Model: "llama3"})
	assert.Error(t, err)
}

func TestSetupApp(t *testing.T) {
	cfg := testConfig(t)

	a, err := setupApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.service)
	assert.NotNil(t, a.logger)

	w, err := setupWatcher(a)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Processed().Len())
}

func TestApplyWatchOptions(t *testing.T) {
	cfg := testConfig(t)
	a := &app{cfg: cfg}

	cmd := &cobra.Command{Use: "watch"}
	var opts watchOptions
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--notify", "--serve"}))

	applyWatchOptions(cmd, a, opts)
	assert.True(t, a.cfg.Watch.Notify)
	assert.True(t, a.cfg.Server.Enable)
	assert.False(t, a.cfg.Watch.FailFast)

	// 未注册标志的命令不做任何覆盖
	a.cfg.Watch.Notify = false
	applyWatchOptions(&cobra.Command{Use: "root"}, a, watchOptions{notify: true})
	assert.False(t, a.cfg.Watch.Notify)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, printResults(&buf, nil))
	assert.Contains(t, buf.String(), "No pending files.")

	buf.Reset()
	failed := printResults(&buf, []watcher.Result{
		{FileName: "a.txt", OutputName: "a.txt_summary.md", Status: watcher.StatusProcessed, ChunkCount: 2},
		{FileName: "b.pdf", Status: watcher.StatusFailed, Err: errors.New("llm unavailable")},
		{FileName: "c.png", Status: watcher.StatusSkipped},
	})
	assert.Equal(t, 1, failed)
	out := buf.String()
	assert.Contains(t, out, "a.txt_summary.md")
	assert.Contains(t, out, "llm unavailable")
	assert.Contains(t, out, "skipped")
}

func TestLoadEnvFile(t *testing.T) {
	orig := envFile
	defer func() { envFile = orig }()

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "")

	t.Run("missing default is ignored", func(t *testing.T) {
		envFile = filepath.Join(t.TempDir(), ".env")
		assert.NoError(t, loadEnvFile(cmd))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.env")
		require.NoError(t, os.WriteFile(path, []byte("DOC_SUMMARY_TEST_VAR=loaded\n"), 0644))
		t.Setenv("DOC_SUMMARY_TEST_VAR", "")
		os.Unsetenv("DOC_SUMMARY_TEST_VAR")

		envFile = path
		require.NoError(t, loadEnvFile(cmd))
		assert.Equal(t, "loaded", os.Getenv("DOC_SUMMARY_TEST_VAR"))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		explicit := &cobra.Command{Use: "test"}
		explicit.Flags().StringVar(&envFile, "env-file", ".env", "")
		missing := filepath.Join(t.TempDir(), "absent.env")
		require.NoError(t, explicit.Flags().Parse([]string{"--env-file", missing}))

		assert.Error(t, loadEnvFile(explicit))
	})
}
