package collector

import (
	"fmt"
	"strings"
)

// SourceKind 固定的四个来源，code 与历史数据中的 source 字段一致
type SourceKind string

const (
	RedditWoW        SourceKind = "rwow"
	RedditClassicWoW SourceKind = "rclass"
	IcyVeins         SourceKind = "icy"
	MMOChampion      SourceKind = "mmo"
)

// AllSources 按默认采集顺序列出全部来源
var AllSources = []SourceKind{RedditWoW, RedditClassicWoW, IcyVeins, MMOChampion}

var sourceLabels = map[SourceKind]string{
	RedditWoW:        "/r/wow/",
	RedditClassicWoW: "/r/classicwow/",
	IcyVeins:         "Icy Veins",
	MMOChampion:      "MMO Champion",
}

// Label 展示用名称
func (k SourceKind) Label() string {
	if l, ok := sourceLabels[k]; ok {
		return l
	}
	return string(k)
}

func (k SourceKind) Valid() bool {
	_, ok := sourceLabels[k]
	return ok
}

// ParseSourceKind 将 code 转为 SourceKind，未知 code 返回错误
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return k, nil
}

// ParseSourceList 解析逗号分隔的 code 列表，例如 "rwow,icy"；空串返回 nil 表示全部
func ParseSourceList(s string) ([]SourceKind, error) {
	var kinds []SourceKind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := ParseSourceKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// RawPost 单轮采集产出的统一帖子结构
type RawPost struct {
	Title string
	Link  string
	// PostedAt 规范时间 YYYY-MM-DD HH:MM（24 小时制，无时区）
	PostedAt string
	Source   SourceKind
	// RawDate 页面上的原始日期片段，仅用于排查
	RawDate string
}
