package api

import (
	"net/http"
	"strconv"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/LJTian/WarriorNews/internal/storage"
	"github.com/gin-gonic/gin"
)

// PostStore 由 storage.Store 实现
type PostStore interface {
	ListPosts(q storage.ListQuery) ([]storage.Post, error)
	ListChannels() ([]storage.Channel, error)
}

type Server struct {
	store PostStore
}

func NewServer(store PostStore) *Server {
	return &Server{store: store}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/posts", s.listPosts)
		v1.GET("/sources", s.listSources)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPosts(c *gin.Context) {
	source := c.Query("source")
	if source != "" {
		if _, err := collector.ParseSourceKind(source); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "invalid_source",
				"message": err.Error(),
			})
			return
		}
	}

	q := storage.ListQuery{
		Source:   source,
		Order:    c.DefaultQuery("order", "latest"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}

	items, err := s.store.ListPosts(q)
	if err != nil {
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listSources(c *gin.Context) {
	channels, err := s.store.ListChannels()
	if err != nil {
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    channels,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
