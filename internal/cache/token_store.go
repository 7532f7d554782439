package cache

import (
	"context"
	"strings"
	"time"
)

// AttributionTokenStore 基于 Redis 的归因令牌单次使用记录
type AttributionTokenStore struct{}

// NewAttributionTokenStore 创建归因令牌记录器
func NewAttributionTokenStore() *AttributionTokenStore {
	return &AttributionTokenStore{}
}

// Consume 标记令牌已使用；首次使用返回 true。
// Redis 未启用时无法跨请求记录，始终返回 true，单次使用只依赖清除 Cookie。
func (s *AttributionTokenStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	id := strings.TrimSpace(jti)
	if id == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return SetNX(ctx, "attribution:jti:"+id, 1, ttl)
}
