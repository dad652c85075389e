package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/LJTian/WarriorNews/internal/collector"
)

// ProcessedPost 是写入存储层前的统一结构
type ProcessedPost struct {
	ID       string
	Title    string
	Link     string
	Source   collector.SourceKind
	PostedAt string
	RawData  map[string]any
}

// SimpleProcessor 做最基础的数据清洗与 ID 生成
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 同一批次内按链接去重；与库中已有记录的比对交给存储层
func (p *SimpleProcessor) Process(posts []collector.RawPost) []ProcessedPost {
	out := make([]ProcessedPost, 0, len(posts))
	seen := make(map[string]struct{})

	for _, it := range posts {
		link := strings.TrimSpace(it.Link)
		title := truncateRunes(strings.TrimSpace(it.Title), maxTitleRunes)
		if link == "" || title == "" {
			continue
		}

		id := hashURL(link)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		out = append(out, ProcessedPost{
			ID:       id,
			Title:    title,
			Link:     link,
			Source:   it.Source,
			PostedAt: it.PostedAt,
			RawData:  map[string]any{
				"raw_date":     it.RawDate,
				"source_label": it.Source.Label(),
			},
		})
	}

	return out
}

const maxTitleRunes = 300

// truncateRunes 按 rune 截断，超长时追加省略号
func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
