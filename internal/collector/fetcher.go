package collector

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

const (
	defaultUserAgent     = "WarriorNewsBot/1.0"
	defaultStaticTimeout = 15 * time.Second
	defaultRenderTimeout = 10 * time.Second
)

// FetchMode 抓取方式：静态 GET 或浏览器渲染
type FetchMode int

const (
	ModeStatic FetchMode = iota
	ModeRendered
)

func (m FetchMode) String() string {
	if m == ModeRendered {
		return "rendered"
	}
	return "static"
}

// DocumentFetcher 抽象“给一个 URL 返回可查询的 DOM”
type DocumentFetcher interface {
	Mode() FetchMode
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// StaticFetcher 用 colly 直接 GET 页面，不重试
type StaticFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

func (f *StaticFetcher) Mode() FetchMode { return ModeStatic }

func (f *StaticFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultStaticTimeout
	}

	c := colly.NewCollector(colly.UserAgent(ua))
	c.SetRequestTimeout(timeout)
	// 状态码统一在下面判断，colly 默认会把 203 及以上都当成错误
	c.ParseHTTPErrorResponse = true

	var (
		body   []byte
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: errors.New("unexpected status")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}
	return doc, nil
}

// RenderedFetcher 用 headless Chrome 打开页面，等待 WaitSelector 可见后取整页 HTML。
// 每次 Fetch 独立启动并释放浏览器，不在进程内共享会话。
type RenderedFetcher struct {
	WaitSelector string
	Timeout      time.Duration
	// ExecPath 可选，指定 Chrome/Chromium 可执行文件
	ExecPath  string
	UserAgent string
}

func (f *RenderedFetcher) Mode() FetchMode { return ModeRendered }

func (f *RenderedFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(ua))
	if f.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 先启动浏览器，启动耗时不计入等待超时
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, timeout)
	defer cancelWait()

	var html string
	err := chromedp.Run(waitCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(f.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, renderError(ctx, waitCtx, pageURL, f.WaitSelector, timeout, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return doc, nil
}

// renderError 区分等待超时与调用方取消/浏览器错误
func renderError(parent, wait context.Context, pageURL, selector string, timeout time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(wait.Err(), context.DeadlineExceeded) {
		return &RenderTimeoutError{URL: pageURL, Selector: selector, Timeout: timeout}
	}
	if perr := parent.Err(); perr != nil {
		err = perr
	}
	return &FetchError{URL: pageURL, Err: err}
}
