package collector

import (
	"context"
	"strings"

	"github.com/LJTian/WarriorNews/internal/datefmt"
	"github.com/PuerkitoBio/goquery"
)

const (
	// MMOChampionURL Warrior 职业版块，按最后回复倒序
	MMOChampionURL = "https://www.mmo-champion.com/forums/278-Warrior?sort=lastpost&order=desc"
	mmoBaseURL     = "https://www.mmo-champion.com"

	mmoListSelector   = "ol#threads"
	mmoThreadSelector = "li.threadbit"
	mmoTitleSelector  = "a.title"
	// 最后回复时间，形如 "2021-03-14, 09:30 PM" 或 "Today, 09:30 PM"
	mmoDateLayout = "2006-01-02, 15:04"
	mmoDayLayout  = "2006-01-02"
)

// MMOChampionExtractor 抓取 MMO Champion Warrior 版块主题列表（vBulletin，静态页面）
type MMOChampionExtractor struct {
	Site
}

func NewMMOChampionExtractor(pageURL string, fetcher DocumentFetcher) *MMOChampionExtractor {
	if pageURL == "" {
		pageURL = MMOChampionURL
	}
	if fetcher == nil {
		fetcher = &StaticFetcher{}
	}
	return &MMOChampionExtractor{Site: Site{URL: pageURL, Fetcher: fetcher}}
}

func (e *MMOChampionExtractor) Source() SourceKind {
	return MMOChampion
}

func (e *MMOChampionExtractor) Extract(ctx context.Context) ([]RawPost, error) {
	e.logf("fetch MMO Champion forums...")

	doc, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	list, err := findContainers(MMOChampion, doc, mmoListSelector)
	if err != nil {
		return nil, err
	}
	threads := list.First().Find(mmoThreadSelector)
	if threads.Length() == 0 {
		return nil, &ContainerNotFoundError{Source: MMOChampion, Selector: mmoListSelector + " " + mmoThreadSelector}
	}
	return e.collect(MMOChampion, threads, e.parsePost), nil
}

func (e *MMOChampionExtractor) parsePost(res *goquery.Selection) (RawPost, error) {
	title, href, err := anchorOf(MMOChampion, res.Find(mmoTitleSelector).First())
	if err != nil {
		return RawPost{}, err
	}

	dd := res.Find("dl").First().Find("dd")
	if dd.Length() < 2 {
		return RawPost{}, &MissingFieldError{Source: MMOChampion, Field: "posted_at"}
	}
	raw := strings.Join(strings.Fields(dd.Eq(1).Text()), " ")

	dateTime, suffix := datefmt.SplitSuffix(datefmt.ResolveDayAlias(raw, e.now(), mmoDayLayout))
	clean, err := datefmt.ParseAbsolute(dateTime, mmoDateLayout)
	if err != nil {
		return RawPost{}, err
	}
	// 部分皮肤显示 24 小时制，没有 AM/PM 后缀
	if suffix == "AM" || suffix == "PM" {
		if clean, err = datefmt.ResolveMeridiem(clean, suffix); err != nil {
			return RawPost{}, err
		}
	}

	return RawPost{
		Title:    title,
		Link:     resolveLink(mmoBaseURL, href),
		PostedAt: clean,
		RawDate:  raw,
	}, nil
}
