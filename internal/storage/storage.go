package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/LJTian/WarriorNews/internal/processor"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Channel 描述一个来源，例如 rwow / icy / mmo
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:20;uniqueIndex" json:"code"`
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:512" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Post 持久化的帖子；CreatedAt/UpdatedAt 由存储层维护
type Post struct {
	ID     string `gorm:"primaryKey;size:40" json:"id"`
	Title  string `gorm:"size:512" json:"title"`
	Link   string `gorm:"size:1024;uniqueIndex" json:"link"`
	Source string `gorm:"size:20;index" json:"source"`
	// PostedAt 规范时间 YYYY-MM-DD HH:MM，字符串排序即时间排序
	PostedAt  string            `gorm:"size:16;index" json:"postedAt"`
	ExtraData datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Channel{}, &Post{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// EnsureChannel 确保某个来源存在
func (s *Store) EnsureChannel(code, name, baseURL string) (*Channel, error) {
	ch := &Channel{}
	if err := s.DB.Where("code = ?", code).First(ch).Error; err == nil {
		return ch, nil
	}

	ch = &Channel{
		Code:    code,
		Name:    name,
		BaseURL: baseURL,
		Status:  "active",
	}
	if err := s.DB.Create(ch).Error; err != nil {
		return nil, err
	}
	return ch, nil
}

// EnsureChannels 为每个来源登记一条 Channel，urls 中缺省的来源 BaseURL 留空
func (s *Store) EnsureChannels(urls map[collector.SourceKind]string) error {
	for _, k := range collector.AllSources {
		if _, err := s.EnsureChannel(string(k), k.Label(), urls[k]); err != nil {
			return fmt.Errorf("ensure channel %s: %w", k, err)
		}
	}
	return nil
}

// ListChannels 返回全部来源
func (s *Store) ListChannels() ([]Channel, error) {
	var list []Channel
	err := s.DB.Order("id ASC").Find(&list).Error
	return list, err
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SaveBatch 保存一批帖子，以链接为幂等键；已存在时只更新标题与时间
func (s *Store) SaveBatch(items []processor.ProcessedPost) error {
	for _, it := range items {
		title := truncateRunesDB(toValidUTF8(it.Title), 512)
		p := &Post{
			ID:        it.ID,
			Title:     title,
			Link:      it.Link,
			Source:    string(it.Source),
			PostedAt:  it.PostedAt,
			ExtraData: datatypes.JSONMap(it.RawData),
		}

		if err := s.DB.Where("link = ?", it.Link).FirstOrCreate(p).Error; err != nil {
			return err
		}
		_ = s.DB.Model(p).Updates(map[string]any{
			"title":     title,
			"posted_at": it.PostedAt,
		}).Error
	}

	// 不主动清缓存，依赖短 TTL 自然过期
	return nil
}

// ListQuery 列表查询参数
type ListQuery struct {
	Source string
	// Order: latest(默认) / oldest / title
	Order    string
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	listCacheTTL    = 5 * time.Minute
)

func (q ListQuery) normalize() ListQuery {
	switch q.Order {
	case "latest", "oldest", "title":
	default:
		q.Order = "latest"
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > maxPageSize {
		q.PageSize = defaultPageSize
	}
	return q
}

func (q ListQuery) cacheKey() string {
	return fmt.Sprintf("posts:list:%s:%s:%d:%d", q.Source, q.Order, q.Page, q.PageSize)
}

func (q ListQuery) orderClause() string {
	switch q.Order {
	case "oldest":
		return "posted_at ASC"
	case "title":
		return "title ASC"
	default:
		return "posted_at DESC"
	}
}

// ListPosts 按来源、排序分页返回帖子，并使用 Redis 做简单缓存
func (s *Store) ListPosts(q ListQuery) ([]Post, error) {
	q = q.normalize()

	ctx := context.Background()
	cacheKey := q.cacheKey()

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Post
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Post
	db := s.DB.Model(&Post{})
	if q.Source != "" {
		db = db.Where("source = ?", q.Source)
	}
	err := db.Order(q.orderClause()).Order("id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}
