package collector

import (
	"context"
	"strings"
	"time"

	"github.com/LJTian/WarriorNews/internal/datefmt"
	"github.com/PuerkitoBio/goquery"
)

const (
	// RedditWoWURL /r/wow 标题含 "warrior" 的帖子，按时间排序
	RedditWoWURL = "https://www.reddit.com/r/wow/search/?q=title%3A%22warrior%22&restrict_sr=1&sort=new"
	// RedditClassicWoWURL /r/classicwow 同样的搜索
	RedditClassicWoWURL = "https://www.reddit.com/r/classicwow/search/?q=title%3A%22warrior%22&restrict_sr=1&sort=new"
	redditBaseURL       = "https://www.reddit.com"

	// 搜索结果由前端渲染，需要等帖子容器出现
	redditContainerSelector = `div[data-testid="post-container"]`
	redditTitleSelector     = "h3"
	redditLinkSelector      = `a[data-click-id="body"]`
	redditTimeSelector      = `a[data-click-id="timestamp"]`
)

// RedditWoWExtractor 抓取 /r/wow 搜索结果，时间为 "3 hours ago" 这类相对时间
type RedditWoWExtractor struct {
	Site
}

// NewRedditWoWExtractor fetcher 为空时使用 RenderedFetcher（等待帖子容器可见）
func NewRedditWoWExtractor(pageURL string, fetcher DocumentFetcher) *RedditWoWExtractor {
	if pageURL == "" {
		pageURL = RedditWoWURL
	}
	if fetcher == nil {
		fetcher = &RenderedFetcher{WaitSelector: redditContainerSelector}
	}
	return &RedditWoWExtractor{Site: Site{URL: pageURL, Fetcher: fetcher}}
}

func (e *RedditWoWExtractor) Source() SourceKind {
	return RedditWoW
}

func (e *RedditWoWExtractor) Extract(ctx context.Context) ([]RawPost, error) {
	e.logf("fetch Reddit /r/wow...")

	doc, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	containers, err := findContainers(RedditWoW, doc, redditContainerSelector)
	if err != nil {
		return nil, err
	}
	// 同一轮内的相对时间都以同一个时刻为基准
	now := e.now()
	return e.collect(RedditWoW, containers, func(res *goquery.Selection) (RawPost, error) {
		return parseRedditPost(RedditWoW, res, now)
	}), nil
}

func parseRedditPost(kind SourceKind, res *goquery.Selection, now time.Time) (RawPost, error) {
	title := strings.Join(strings.Fields(res.Find(redditTitleSelector).First().Text()), " ")
	if title == "" {
		return RawPost{}, &MissingFieldError{Source: kind, Field: "title"}
	}
	href, _ := res.Find(redditLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return RawPost{}, &MissingFieldError{Source: kind, Field: "link"}
	}

	raw := strings.TrimSpace(res.Find(redditTimeSelector).First().Text())
	if raw == "" {
		return RawPost{}, &MissingFieldError{Source: kind, Field: "posted_at"}
	}
	clean, err := datefmt.ResolveRelative(raw, now)
	if err != nil {
		return RawPost{}, err
	}

	return RawPost{
		Title:    title,
		Link:     resolveLink(redditBaseURL, href),
		PostedAt: clean,
		RawDate:  raw,
	}, nil
}

// RedditClassicWoWExtractor /r/classicwow 尚未实现解析，Extract 恒返回空结果
type RedditClassicWoWExtractor struct {
	Site
}

func NewRedditClassicWoWExtractor(pageURL string, fetcher DocumentFetcher) *RedditClassicWoWExtractor {
	if pageURL == "" {
		pageURL = RedditClassicWoWURL
	}
	if fetcher == nil {
		fetcher = &RenderedFetcher{WaitSelector: redditContainerSelector}
	}
	return &RedditClassicWoWExtractor{Site: Site{URL: pageURL, Fetcher: fetcher}}
}

func (e *RedditClassicWoWExtractor) Source() SourceKind {
	return RedditClassicWoW
}

// Implemented 供 ingest 区分“未实现”与“抓到 0 条”
func (e *RedditClassicWoWExtractor) Implemented() bool {
	return false
}

func (e *RedditClassicWoWExtractor) Extract(ctx context.Context) ([]RawPost, error) {
	e.logf("%s: extraction not implemented, returning no posts", RedditClassicWoW)
	return []RawPost{}, nil
}
