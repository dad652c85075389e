package collector

import (
	"context"
	"strings"

	"github.com/LJTian/WarriorNews/internal/datefmt"
	"github.com/PuerkitoBio/goquery"
)

const (
	// IcyVeinsURL 论坛搜索：标题含 warrior 的主题，按最新排序
	IcyVeinsURL = "https://www.icy-veins.com/forums/search/?q=warrior&type=forums_topic&updated_after=any&sortby=newest&search_and_or=or&search_in=titles"

	icyContainerSelector = ".ipsStreamItem_container"
	icyTitleSelector     = ".ipsStreamItem_title a"
	icyTimeSelector      = "ul li a time"
	// 页面 time[title] 形如 "03/14/2021 09:30 PM"，AM/PM 单独处理
	icyDateLayout = "01/02/2006 15:04"
)

// IcyVeinsExtractor 抓取 Icy Veins 论坛搜索结果（静态页面）
type IcyVeinsExtractor struct {
	Site
}

func NewIcyVeinsExtractor(pageURL string, fetcher DocumentFetcher) *IcyVeinsExtractor {
	if pageURL == "" {
		pageURL = IcyVeinsURL
	}
	if fetcher == nil {
		fetcher = &StaticFetcher{}
	}
	return &IcyVeinsExtractor{Site: Site{URL: pageURL, Fetcher: fetcher}}
}

func (e *IcyVeinsExtractor) Source() SourceKind {
	return IcyVeins
}

func (e *IcyVeinsExtractor) Extract(ctx context.Context) ([]RawPost, error) {
	e.logf("fetch Icy Veins forums...")

	doc, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	containers, err := findContainers(IcyVeins, doc, icyContainerSelector)
	if err != nil {
		return nil, err
	}
	return e.collect(IcyVeins, containers, e.parsePost), nil
}

func (e *IcyVeinsExtractor) parsePost(res *goquery.Selection) (RawPost, error) {
	title, href, err := anchorOf(IcyVeins, res.Find(icyTitleSelector).First())
	if err != nil {
		return RawPost{}, err
	}

	raw, ok := res.Find(icyTimeSelector).First().Attr("title")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return RawPost{}, &MissingFieldError{Source: IcyVeins, Field: "posted_at"}
	}

	dateTime, suffix := datefmt.SplitSuffix(raw)
	clean, err := datefmt.ParseAbsolute(dateTime, icyDateLayout)
	if err != nil {
		return RawPost{}, err
	}
	if clean, err = datefmt.ResolveMeridiem(clean, suffix); err != nil {
		return RawPost{}, err
	}

	return RawPost{
		Title:    title,
		Link:     stripQuery(resolveLink(e.URL, href)),
		PostedAt: clean,
		RawDate:  raw,
	}, nil
}
