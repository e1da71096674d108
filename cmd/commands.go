package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/doc-summary-agent/internal/watcher"
)

// watchOptions watch命令的命令行覆盖项
type watchOptions struct {
	notify   bool
	failFast bool
	serve    bool
}

var watchOpts watchOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured directory and summarize new files until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, watchOpts)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Summarize every pending file in the watch directory once and exit",
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize a single file and print the result to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOpts.notify, "notify", false, "Also react to filesystem events instead of polling only")
	watchCmd.Flags().BoolVar(&watchOpts.failFast, "fail-fast", false, "Stop on the first file that fails")
	watchCmd.Flags().BoolVar(&watchOpts.serve, "serve", false, "Start the status API alongside the watcher")

	rootCmd.AddCommand(watchCmd, onceCmd, summarizeCmd)
}

// applyWatchOptions 仅覆盖命令行中显式设置的选项
func applyWatchOptions(cmd *cobra.Command, a *app, opts watchOptions) {
	flags := cmd.Flags()
	if flags.Lookup("notify") != nil && flags.Changed("notify") {
		a.cfg.Watch.Notify = opts.notify
	}
	if flags.Lookup("fail-fast") != nil && flags.Changed("fail-fast") {
		a.cfg.Watch.FailFast = opts.failFast
	}
	if flags.Lookup("serve") != nil && flags.Changed("serve") {
		a.cfg.Server.Enable = opts.serve
	}
}

// runWatch 启动监听循环，收到SIGINT或SIGTERM后退出
func runWatch(cmd *cobra.Command, opts watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := setupApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	applyWatchOptions(cmd, a, opts)

	w, err := setupWatcher(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Server.Enable {
		shutdown := startServer(a)
		defer shutdown()
	}

	a.logger.WithField("dir", a.cfg.Watch.Dir).Info("Starting document summary agent")
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watcher stopped: %w", err)
	}
	a.logger.Info("Document summary agent stopped")
	return nil
}

// runOnce 执行一次目录对账
func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := setupApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := setupWatcher(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Seed(); err != nil {
		return err
	}

	results, passErr := w.Reconcile(ctx)
	failed := printResults(cmd.OutOrStdout(), results)

	if passErr != nil {
		return passErr
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

// printResults 输出处理结果表格，返回失败数量
func printResults(out io.Writer, results []watcher.Result) int {
	if len(results) == 0 {
		fmt.Fprintln(out, "No pending files.")
		return 0
	}

	failed := 0
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tCHUNKS\tOUTPUT\tDETAIL")
	for _, r := range results {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		if r.Status == watcher.StatusFailed {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.FileName, r.Status, r.ChunkCount, r.OutputName, detail)
	}
	_ = tw.Flush()
	return failed
}

// runSummarize 摘要单个文件并输出到标准输出，不写入存储
func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := setupApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := a.service.SummarizeFile(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Text)
	return nil
}
