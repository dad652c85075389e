package ingest

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/PuerkitoBio/goquery"
)

type fakeExtractor struct {
	kind  collector.SourceKind
	mode  collector.FetchMode
	posts []collector.RawPost
	err   error
	delay time.Duration

	active  *int32
	peak    *int32
	started chan struct{}
}

func (f *fakeExtractor) Source() collector.SourceKind { return f.kind }
func (f *fakeExtractor) Mode() collector.FetchMode    { return f.mode }

func (f *fakeExtractor) Fetch(context.Context) (*goquery.Document, error) {
	return nil, errors.New("not used")
}

func (f *fakeExtractor) Extract(ctx context.Context) ([]collector.RawPost, error) {
	if f.active != nil {
		n := atomic.AddInt32(f.active, 1)
		defer atomic.AddInt32(f.active, -1)
		for {
			p := atomic.LoadInt32(f.peak)
			if n <= p || atomic.CompareAndSwapInt32(f.peak, p, n) {
				break
			}
		}
	}
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return nil, &collector.FetchError{URL: "https://r.test", Err: ctx.Err()}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.posts, f.err
}

type stubExtractor struct{ fakeExtractor }

func (s *stubExtractor) Implemented() bool { return false }

func post(kind collector.SourceKind, title, at string) collector.RawPost {
	return collector.RawPost{Title: title, Link: "https://x.test/" + title, PostedAt: at, Source: kind}
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestRunCollectsPartialResults(t *testing.T) {
	icy := &fakeExtractor{kind: collector.IcyVeins, posts: []collector.RawPost{
		post(collector.IcyVeins, "a", "2021-03-14 21:30"),
		post(collector.IcyVeins, "b", "2021-03-14 20:00"),
	}}
	mmo := &fakeExtractor{kind: collector.MMOChampion, err: &collector.FetchError{URL: "https://mmo.test", StatusCode: 503}}
	rwow := &fakeExtractor{kind: collector.RedditWoW, mode: collector.ModeRendered, posts: []collector.RawPost{
		post(collector.RedditWoW, "c", "2021-01-01 09:00"),
	}}
	exs := map[collector.SourceKind]collector.Extractor{
		collector.IcyVeins:    icy,
		collector.MMOChampion: mmo,
		collector.RedditWoW:   rwow,
	}
	r := New(exs, 2, quietLogger())

	res := r.Run(context.Background(), []collector.SourceKind{collector.IcyVeins, collector.MMOChampion, collector.RedditWoW})
	if len(res.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(res.Posts))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 source error, got %v", res.Errors)
	}
	var fe *collector.FetchError
	if !errors.As(res.Errors[collector.MMOChampion], &fe) {
		t.Fatalf("expected FetchError for mmo, got %v", res.Errors[collector.MMOChampion])
	}

	// 各来源内部顺序保持不变，来源之间按请求顺序拼接
	titles := []string{res.Posts[0].Title, res.Posts[1].Title, res.Posts[2].Title}
	if titles[0] != "a" || titles[1] != "b" || titles[2] != "c" {
		t.Fatalf("unexpected order: %v", titles)
	}
}

func TestRunPreservesRequestedOrder(t *testing.T) {
	exs := map[collector.SourceKind]collector.Extractor{
		collector.IcyVeins:    &fakeExtractor{kind: collector.IcyVeins, posts: []collector.RawPost{post(collector.IcyVeins, "icy", "2021-01-01 00:00")}},
		collector.MMOChampion: &fakeExtractor{kind: collector.MMOChampion, delay: 20 * time.Millisecond, posts: []collector.RawPost{post(collector.MMOChampion, "mmo", "2021-01-01 00:00")}},
	}
	r := New(exs, 4, quietLogger())

	posts, errs := r.Ingest(context.Background(), []collector.SourceKind{collector.MMOChampion, collector.IcyVeins, collector.MMOChampion})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(posts) != 2 || posts[0].Title != "mmo" || posts[1].Title != "icy" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestRunUnknownAndUnimplementedSources(t *testing.T) {
	exs := map[collector.SourceKind]collector.Extractor{
		collector.RedditClassicWoW: &stubExtractor{fakeExtractor{kind: collector.RedditClassicWoW, mode: collector.ModeRendered, err: errors.New("must not run")}},
		collector.IcyVeins:         &fakeExtractor{kind: collector.IcyVeins, posts: []collector.RawPost{post(collector.IcyVeins, "a", "2021-01-01 00:00")}},
	}
	r := New(exs, 0, quietLogger())

	res := r.Run(context.Background(), []collector.SourceKind{collector.RedditClassicWoW, collector.IcyVeins, collector.MMOChampion})
	if len(res.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(res.Posts))
	}
	if len(res.Unimplemented) != 1 || res.Unimplemented[0] != collector.RedditClassicWoW {
		t.Fatalf("Unimplemented = %v", res.Unimplemented)
	}
	if _, ok := res.Errors[collector.RedditClassicWoW]; ok {
		t.Fatalf("unimplemented source must not be reported as error")
	}
	if res.Errors[collector.MMOChampion] == nil {
		t.Fatalf("expected error for unconfigured source, got %v", res.Errors)
	}
}

func TestRunDefaultsToAllRegistered(t *testing.T) {
	exs := map[collector.SourceKind]collector.Extractor{
		collector.MMOChampion: &fakeExtractor{kind: collector.MMOChampion, posts: []collector.RawPost{post(collector.MMOChampion, "m", "2021-01-01 00:00")}},
		collector.IcyVeins:    &fakeExtractor{kind: collector.IcyVeins, posts: []collector.RawPost{post(collector.IcyVeins, "i", "2021-01-01 00:00")}},
	}
	res := New(exs, 0, quietLogger()).Run(context.Background(), nil)
	// AllSources 中 icy 排在 mmo 之前
	if len(res.Posts) != 2 || res.Posts[0].Title != "i" || res.Posts[1].Title != "m" {
		t.Fatalf("unexpected posts: %+v", res.Posts)
	}
}

func TestRunCapsRenderedSessions(t *testing.T) {
	var active, peak int32
	mk := func(kind collector.SourceKind) *fakeExtractor {
		return &fakeExtractor{kind: kind, mode: collector.ModeRendered, delay: 30 * time.Millisecond, active: &active, peak: &peak}
	}
	exs := map[collector.SourceKind]collector.Extractor{
		collector.RedditWoW:        mk(collector.RedditWoW),
		collector.RedditClassicWoW: mk(collector.RedditClassicWoW),
	}
	r := New(exs, 8, quietLogger())
	res := r.Run(context.Background(), nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if peak != 1 {
		t.Fatalf("rendered sessions peak = %d, want 1", peak)
	}
}

func TestRunCapsStaticConcurrency(t *testing.T) {
	var active, peak int32
	mk := func(kind collector.SourceKind) *fakeExtractor {
		return &fakeExtractor{kind: kind, delay: 30 * time.Millisecond, active: &active, peak: &peak}
	}
	exs := map[collector.SourceKind]collector.Extractor{
		collector.IcyVeins:    mk(collector.IcyVeins),
		collector.MMOChampion: mk(collector.MMOChampion),
	}
	New(exs, 1, quietLogger()).Run(context.Background(), nil)
	if peak != 1 {
		t.Fatalf("static peak = %d, want 1", peak)
	}
}

func TestAbortCancelsOnlyThatSource(t *testing.T) {
	started := make(chan struct{})
	exs := map[collector.SourceKind]collector.Extractor{
		collector.RedditWoW: &fakeExtractor{kind: collector.RedditWoW, mode: collector.ModeRendered, started: started},
		collector.IcyVeins:  &fakeExtractor{kind: collector.IcyVeins, delay: 10 * time.Millisecond, posts: []collector.RawPost{post(collector.IcyVeins, "a", "2021-01-01 00:00")}},
	}
	r := New(exs, 2, quietLogger())

	if r.Abort(collector.RedditWoW) {
		t.Fatalf("Abort should report false when source is idle")
	}

	done := make(chan Result)
	go func() { done <- r.Run(context.Background(), nil) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("reddit extractor never started")
	}
	if !r.Abort(collector.RedditWoW) {
		t.Fatalf("Abort should report true while running")
	}

	var res Result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Abort")
	}
	if !errors.Is(res.Errors[collector.RedditWoW], context.Canceled) {
		t.Fatalf("expected reddit cancelled, got %v", res.Errors)
	}
	if len(res.Posts) != 1 || res.Posts[0].Source != collector.IcyVeins {
		t.Fatalf("icy posts should be unaffected: %+v", res.Posts)
	}
}

// gatedExtractor 每次 Extract 都阻塞，直到被放行或 ctx 取消
type gatedExtractor struct {
	fakeExtractor
	entered chan struct{}
	release chan struct{}
}

func (g *gatedExtractor) Extract(ctx context.Context) ([]collector.RawPost, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return g.posts, nil
	case <-ctx.Done():
		return nil, &collector.FetchError{URL: "https://icy.test", Err: ctx.Err()}
	}
}

func TestAbortWithOverlappingRuns(t *testing.T) {
	ex := &gatedExtractor{
		fakeExtractor: fakeExtractor{kind: collector.IcyVeins, posts: []collector.RawPost{post(collector.IcyVeins, "a", "2021-01-01 00:00")}},
		entered:       make(chan struct{}, 2),
		release:       make(chan struct{}),
	}
	r := New(map[collector.SourceKind]collector.Extractor{collector.IcyVeins: ex}, 2, quietLogger())

	done := make(chan Result, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- r.Run(context.Background(), []collector.SourceKind{collector.IcyVeins}) }()
		select {
		case <-ex.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never started", i)
		}
	}

	// 放行其中一轮，另一轮仍在进行
	ex.release <- struct{}{}
	var first Result
	select {
	case first = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("released run did not finish")
	}
	if len(first.Posts) != 1 || len(first.Errors) != 0 {
		t.Fatalf("released run: %+v", first)
	}

	if !r.Abort(collector.IcyVeins) {
		t.Fatalf("Abort should still see the remaining run")
	}
	var second Result
	select {
	case second = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("aborted run did not finish")
	}
	if !errors.Is(second.Errors[collector.IcyVeins], context.Canceled) {
		t.Fatalf("expected remaining run cancelled, got %v", second.Errors)
	}
	if r.Abort(collector.IcyVeins) {
		t.Fatalf("Abort should report false once all runs are done")
	}
}
