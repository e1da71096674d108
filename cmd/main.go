package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// 全局命令行参数
var (
	configFile string // 配置文件路径
	envFile    string // .env 文件路径
	logLevel   string // 覆盖配置中的日志级别
)

var rootCmd = &cobra.Command{
	Use:   "doc-summary-agent",
	Short: "Watch a directory and summarize new documents with an LLM",
	Long: `doc-summary-agent watches a directory for new plain-text and PDF files,
summarizes each one with a chunk-then-combine LLM pipeline and writes
<file>_summary.md next to the other summaries.

Running without a subcommand is the same as "watch".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, watchOptions{})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file (defaults and environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// loadEnvFile 加载.env文件，默认路径不存在时忽略
func loadEnvFile(cmd *cobra.Command) error {
	if envFile == "" {
		return nil
	}

	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
