package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/LJTian/WarriorNews/internal/collector"
	"golang.org/x/sync/semaphore"
)

const (
	defaultConcurrency = 4
	// 渲染会话开销大，同一时刻只允许一个
	renderedConcurrency = 1
)

// Result 一轮采集的汇总：成功的帖子 + 各来源的失败原因
type Result struct {
	Posts  []collector.RawPost
	Errors map[collector.SourceKind]error
	// Unimplemented 已注册但尚未实现解析的来源
	Unimplemented []collector.SourceKind
}

// Runner 并发执行各来源的 Extractor，单个来源失败不影响其它来源
type Runner struct {
	extractors map[collector.SourceKind]collector.Extractor
	static     *semaphore.Weighted
	rendered   *semaphore.Weighted
	logger     *log.Logger

	// 同一来源可能被重叠的多轮同时采集，按轮次编号分别登记
	mu      sync.Mutex
	seq     uint64
	cancels map[collector.SourceKind]map[uint64]context.CancelFunc
}

// New concurrency 为静态抓取的并发上限，<=0 时使用默认值
func New(extractors map[collector.SourceKind]collector.Extractor, concurrency int, logger *log.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		extractors: extractors,
		static:     semaphore.NewWeighted(int64(concurrency)),
		rendered:   semaphore.NewWeighted(renderedConcurrency),
		logger:     logger,
		cancels:    make(map[collector.SourceKind]map[uint64]context.CancelFunc),
	}
}

type implementer interface {
	Implemented() bool
}

type sourceResult struct {
	posts         []collector.RawPost
	err           error
	unimplemented bool
}

// Run 每个来源一个 goroutine，全部结束后按 kinds 的顺序合并结果。
// kinds 为空时采集全部已注册来源。
func (r *Runner) Run(ctx context.Context, kinds []collector.SourceKind) Result {
	if len(kinds) == 0 {
		kinds = r.registered()
	}
	kinds = dedupe(kinds)

	r.logger.Println("start ingest job...")

	results := make([]sourceResult, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind collector.SourceKind) {
			defer wg.Done()
			results[i] = r.runSource(ctx, kind)
		}(i, kind)
	}
	wg.Wait()

	res := Result{Errors: make(map[collector.SourceKind]error)}
	for i, kind := range kinds {
		sr := results[i]
		switch {
		case sr.err != nil:
			r.logger.Printf("ingest %s error: %v", kind, sr.err)
			res.Errors[kind] = sr.err
		case sr.unimplemented:
			res.Unimplemented = append(res.Unimplemented, kind)
		default:
			r.logger.Printf("%s done, extracted=%d posts", kind, len(sr.posts))
			res.Posts = append(res.Posts, sr.posts...)
		}
	}

	r.logger.Printf("ingest job done: posts=%d failed_sources=%d", len(res.Posts), len(res.Errors))
	return res
}

func (r *Runner) runSource(parent context.Context, kind collector.SourceKind) (out sourceResult) {
	ex, ok := r.extractors[kind]
	if !ok {
		return sourceResult{err: fmt.Errorf("source %q is not configured", kind)}
	}
	if im, ok := ex.(implementer); ok && !im.Implemented() {
		r.logger.Printf("%s: source not implemented yet, skipped", kind)
		return sourceResult{posts: []collector.RawPost{}, unimplemented: true}
	}

	ctx, cancel := context.WithCancel(parent)
	id := r.setCancel(kind, cancel)
	defer func() {
		r.clearCancel(kind, id)
		cancel()
	}()

	sem := r.static
	if ex.Mode() == collector.ModeRendered {
		sem = r.rendered
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return sourceResult{err: fmt.Errorf("%s: wait for worker: %w", kind, err)}
	}
	defer sem.Release(1)

	defer func() {
		if p := recover(); p != nil {
			out = sourceResult{err: fmt.Errorf("%s: extractor panic: %v", kind, p)}
		}
	}()

	r.logger.Printf("ingest from %s (%s)...", kind, ex.Mode())
	posts, err := ex.Extract(ctx)
	if err != nil {
		return sourceResult{err: err}
	}
	return sourceResult{posts: posts}
}

// Abort 取消某个来源正在进行的全部采集（会关闭其浏览器会话），其它来源不受影响。
// 该来源当前没有在运行时返回 false。
func (r *Runner) Abort(kind collector.SourceKind) bool {
	r.mu.Lock()
	runs := make([]context.CancelFunc, 0, len(r.cancels[kind]))
	for _, cancel := range r.cancels[kind] {
		runs = append(runs, cancel)
	}
	r.mu.Unlock()

	for _, cancel := range runs {
		cancel()
	}
	return len(runs) > 0
}

func (r *Runner) setCancel(kind collector.SourceKind, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if r.cancels[kind] == nil {
		r.cancels[kind] = make(map[uint64]context.CancelFunc)
	}
	r.cancels[kind][r.seq] = cancel
	return r.seq
}

// clearCancel 只删除本轮登记的 cancel，不影响同一来源的其它轮次
func (r *Runner) clearCancel(kind collector.SourceKind, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels[kind], id)
	if len(r.cancels[kind]) == 0 {
		delete(r.cancels, kind)
	}
}

func (r *Runner) registered() []collector.SourceKind {
	kinds := make([]collector.SourceKind, 0, len(r.extractors))
	for _, k := range collector.AllSources {
		if _, ok := r.extractors[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func dedupe(kinds []collector.SourceKind) []collector.SourceKind {
	seen := make(map[collector.SourceKind]struct{}, len(kinds))
	out := make([]collector.SourceKind, 0, len(kinds))
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Ingest 对外的单一入口：返回成功的帖子以及各来源的错误
func (r *Runner) Ingest(ctx context.Context, kinds []collector.SourceKind) ([]collector.RawPost, map[collector.SourceKind]error) {
	res := r.Run(ctx, kinds)
	return res.Posts, res.Errors
}
