package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/LJTian/WarriorNews/internal/ingest"
	"github.com/LJTian/WarriorNews/internal/processor"
	"github.com/robfig/cron/v3"
)

// Ingester 执行一轮采集，由 ingest.Runner 实现
type Ingester interface {
	Run(ctx context.Context, kinds []collector.SourceKind) ingest.Result
}

// Sink 接收处理后的帖子，由 storage.Store 实现
type Sink interface {
	SaveBatch(items []processor.ProcessedPost) error
}

// 单轮采集的上限，避免某个来源卡住导致任务堆积
const jobTimeout = 5 * time.Minute

type Scheduler struct {
	cron      *cron.Cron
	runner    Ingester
	sources   []collector.SourceKind
	processor *processor.SimpleProcessor
	store     Sink

	// 上一轮未结束时跳过本轮
	running sync.Mutex
}

func New(spec string, runner Ingester, sources []collector.SourceKind, p *processor.SimpleProcessor, store Sink) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:      c,
		runner:    runner,
		sources:   sources,
		processor: p,
		store:     store,
	}

	_, err := c.AddFunc(spec, func() { s.runOnce(context.Background()) })
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce(context.Background())
	})
}

// Stop 停止定时任务，等待正在执行的一轮结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

// ErrBusy 上一轮采集尚未结束
var ErrBusy = errors.New("previous collect run still in progress")

// RunOnce 对外暴露的单次执行入口，方便手动触发采集。
// 单个来源失败记录在 Result.Errors 中；返回的 error 只表示整轮未完成（忙或保存失败）。
func (s *Scheduler) RunOnce(ctx context.Context) (ingest.Result, error) {
	return s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) (ingest.Result, error) {
	if !s.running.TryLock() {
		log.Println("skip collect job: previous run still in progress")
		return ingest.Result{}, ErrBusy
	}
	defer s.running.Unlock()

	log.Println("start collect job...")

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	res := s.runner.Run(ctx, s.sources)
	for kind, err := range res.Errors {
		log.Printf("collect %s failed: %v", kind, err)
	}

	processed := s.processor.Process(res.Posts)
	if len(processed) == 0 {
		log.Println("collect job done: nothing to save")
		return res, nil
	}
	if err := s.store.SaveBatch(processed); err != nil {
		log.Printf("save batch error: %v", err)
		return res, fmt.Errorf("save batch: %w", err)
	}

	// 条数 = 本轮解析到的数量（非“新增数”，已存在会更新）
	log.Printf("collect job done, extracted=%d saved=%d posts", len(res.Posts), len(processed))
	return res, nil
}
