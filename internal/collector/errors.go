package collector

import (
	"fmt"
	"time"
)

// FetchError 访问来源失败（网络错误或非 2xx），调用方可重试
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderTimeoutError 渲染页面在超时前未出现目标元素
type RenderTimeoutError struct {
	URL      string
	Selector string
	Timeout  time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render %s: %q not visible after %s", e.URL, e.Selector, e.Timeout)
}

// ContainerNotFoundError 页面上找不到帖子列表，通常意味着站点结构变了
type ContainerNotFoundError struct {
	Source   SourceKind
	Selector string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("%s: no post containers matching %q", e.Source, e.Selector)
}

// MissingFieldError 单条帖子缺少标题或链接等必填字段
type MissingFieldError struct {
	Source SourceKind
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: post missing %s", e.Source, e.Field)
}
