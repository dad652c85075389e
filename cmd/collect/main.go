package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/LJTian/WarriorNews/internal/config"
	"github.com/LJTian/WarriorNews/internal/ingest"
	"github.com/LJTian/WarriorNews/internal/processor"
	"github.com/LJTian/WarriorNews/internal/scheduler"
	"github.com/LJTian/WarriorNews/internal/storage"
	"github.com/spf13/cobra"
)

var (
	sourcesFlag string
	dryRun      bool
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one ingestion pass over the warrior news sources",
	Long:  "collect fetches posts from /r/wow, /r/classicwow, Icy Veins and MMO Champion once, normalizes them and saves them to Postgres.",
	RunE:  collectAction,

	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&sourcesFlag, "sources", "", "comma separated source codes (rwow,rclass,icy,mmo), empty for all")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print posts instead of saving them")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func collectAction(cmd *cobra.Command, _ []string) error {
	kinds, err := collector.ParseSourceList(sourcesFlag)
	if err != nil {
		return err
	}

	cfg := config.Load()

	extractors := collector.NewExtractors(collector.Options{
		URLs:          cfg.SourceURLs,
		RenderTimeout: cfg.RenderTimeout,
		ChromePath:    cfg.ChromePath,
		UserAgent:     cfg.UserAgent,
	})
	runner := ingest.New(extractors, cfg.ConcurrencyLimit, log.Default())

	if dryRun {
		return printPosts(cmd.Context(), runner, kinds)
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	// 确保各个来源存在（与 cmd/api 保持一致）
	if err := store.EnsureChannels(cfg.SourceURLs); err != nil {
		return err
	}

	p := processor.NewSimpleProcessor()
	s, err := scheduler.New(cfg.CronSpec, runner, kinds, p, store)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// 只执行一轮采集任务后退出
	res, err := s.RunOnce(cmd.Context())
	report(res)
	return err
}

func printPosts(ctx context.Context, runner *ingest.Runner, kinds []collector.SourceKind) error {
	res := runner.Run(ctx, kinds)
	for _, p := range res.Posts {
		fmt.Printf("[%s] %s  %s\n    %s\n", p.Source, p.PostedAt, p.Title, p.Link)
	}
	report(res)
	return nil
}

func report(res ingest.Result) {
	fmt.Printf("posts: %d\n", len(res.Posts))
	for _, k := range res.Unimplemented {
		fmt.Printf("  %-6s not implemented\n", k)
	}
	for k, err := range res.Errors {
		fmt.Printf("  %-6s failed: %v\n", k, err)
	}
}
