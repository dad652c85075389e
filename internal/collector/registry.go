package collector

import (
	"log"
	"time"
)

// Options 构造全部来源 Extractor 时的公共参数
type Options struct {
	// URLs 覆盖各来源默认地址，未设置的来源使用内置 URL
	URLs          map[SourceKind]string
	RenderTimeout time.Duration
	ChromePath    string
	UserAgent     string
	Logger        *log.Logger
}

// NewExtractors 为每个来源绑定对应的抓取方式：论坛走静态 GET，Reddit 走浏览器渲染
func NewExtractors(opts Options) map[SourceKind]Extractor {
	static := &StaticFetcher{UserAgent: opts.UserAgent}
	rendered := &RenderedFetcher{
		WaitSelector: redditContainerSelector,
		Timeout:      opts.RenderTimeout,
		ExecPath:     opts.ChromePath,
		UserAgent:    opts.UserAgent,
	}

	icy := NewIcyVeinsExtractor(opts.URLs[IcyVeins], static)
	mmo := NewMMOChampionExtractor(opts.URLs[MMOChampion], static)
	rwow := NewRedditWoWExtractor(opts.URLs[RedditWoW], rendered)
	rclass := NewRedditClassicWoWExtractor(opts.URLs[RedditClassicWoW], rendered)
	for _, s := range []*Site{&icy.Site, &mmo.Site, &rwow.Site, &rclass.Site} {
		s.Logger = opts.Logger
	}

	return map[SourceKind]Extractor{
		IcyVeins:         icy,
		MMOChampion:      mmo,
		RedditWoW:        rwow,
		RedditClassicWoW: rclass,
	}
}
