package collector

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Extractor 每个来源一个实现：知道自己页面的结构，产出已规范化日期的帖子
type Extractor interface {
	Source() SourceKind
	Mode() FetchMode
	Fetch(ctx context.Context) (*goquery.Document, error)
	Extract(ctx context.Context) ([]RawPost, error)
}

// Site 各来源共用的抓取参数；Fetcher 在构造时绑定，决定静态/渲染抓取
type Site struct {
	URL     string
	Fetcher DocumentFetcher
	// Logger 为空时使用 log.Default()
	Logger *log.Logger
	// Now 为空时使用 time.Now，测试中注入固定时间
	Now func() time.Time
}

func (s *Site) Mode() FetchMode {
	return s.Fetcher.Mode()
}

func (s *Site) Fetch(ctx context.Context) (*goquery.Document, error) {
	return s.Fetcher.Fetch(ctx, s.URL)
}

func (s *Site) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (s *Site) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// collect 逐条解析帖子容器；单条失败只记日志并跳过，不影响整批
func (s *Site) collect(kind SourceKind, containers *goquery.Selection, parse func(*goquery.Selection) (RawPost, error)) []RawPost {
	posts := make([]RawPost, 0, containers.Length())
	containers.Each(func(i int, sel *goquery.Selection) {
		p, err := parse(sel)
		if err != nil {
			s.logf("%s: skip post #%d: %v", kind, i, err)
			return
		}
		p.Source = kind
		posts = append(posts, p)
	})
	return posts
}

// findContainers 定位帖子列表，一个都没有时视为结构变化
func findContainers(kind SourceKind, doc *goquery.Document, selector string) (*goquery.Selection, error) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, &ContainerNotFoundError{Source: kind, Selector: selector}
	}
	return sel, nil
}

// anchorOf 取标题与 href，二者缺一即为 MissingFieldError
func anchorOf(kind SourceKind, a *goquery.Selection) (title, href string, err error) {
	if a.Length() == 0 {
		return "", "", &MissingFieldError{Source: kind, Field: "title"}
	}
	title = strings.Join(strings.Fields(a.Text()), " ")
	if title == "" {
		return "", "", &MissingFieldError{Source: kind, Field: "title"}
	}
	href, _ = a.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return "", "", &MissingFieldError{Source: kind, Field: "link"}
	}
	return title, href, nil
}

// resolveLink 将相对 href 补全为绝对地址
func resolveLink(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
	}
	return b.ResolveReference(ref).String()
}

// stripQuery 去掉站点追加的跟踪参数
func stripQuery(link string) string {
	if i := strings.IndexAny(link, "?#"); i != -1 {
		return link[:i]
	}
	return link
}
