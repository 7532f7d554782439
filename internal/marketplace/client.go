// Package marketplace 外部市场系统用户查询客户端
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
)

var (
	ErrConfigInvalid   = errors.New("marketplace config invalid")
	ErrRequestFailed   = errors.New("marketplace request failed")
	ErrUnauthorized    = errors.New("marketplace unauthorized")
	ErrResponseInvalid = errors.New("marketplace response invalid")
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

// User 市场系统用户（仅包含结算引擎使用的字段）
type User struct {
	ID            string    `json:"id"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Client 市场系统 HTTP 客户端
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient 按配置创建客户端
func NewClient(cfg config.MarketplaceConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: timeout,
		// 单次请求超时由调用方 context 控制，此处作为兜底
		httpClient: &http.Client{Timeout: timeout + time.Second},
	}
}

// Timeout 单次查询超时时间
func (c *Client) Timeout() time.Duration {
	if c == nil || c.timeout <= 0 {
		return defaultTimeout
	}
	return c.timeout
}

// GetUserByEmail 按邮箱查询用户；用户不存在时返回 nil, nil
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrConfigInvalid
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}

	endpoint := c.baseURL + "/users/by-email?" + url.Values{"email": []string{normalized}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return &user, nil
}
