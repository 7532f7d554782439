package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/affiliate-desk/internal/constants"
	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
	// FailOpen Redis 不可用时放行；归因上报走此策略，避免限流组件故障丢失推荐
	FailOpen bool
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

var errRateLimitReply = errors.New("unexpected rate limit reply")

// 计数与过期在同一脚本内完成，首个请求设置窗口
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// hitRateLimit 计数一次，返回窗口内请求数与剩余秒数
func hitRateLimit(ctx context.Context, client *redis.Client, key string, windowSeconds int) (int64, int, error) {
	values, err := rateLimitScript.Run(ctx, client, []string{key}, windowSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, errRateLimitReply
	}
	return values[0], int(values[1]), nil
}

// RateLimitMiddleware Redis 固定窗口限流中间件
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := strings.TrimSpace(keyFunc(c))
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		count, ttl, err := hitRateLimit(c.Request.Context(), client, key, rule.WindowSeconds)
		if err != nil {
			logger.Errorw("rate_limit_script_failed", "key", key, "fail_open", rule.FailOpen, "error", err)
			if rule.FailOpen {
				c.Next()
				return
			}
			response.Abort(c, response.CodeInternal, handlershared.Message("error.rate_limit_unavailable"))
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		waitSeconds := ttl
		if waitSeconds < 1 {
			waitSeconds = rule.WindowSeconds
		}
		c.Header("Retry-After", strconv.Itoa(waitSeconds))
		response.Abort(c, response.CodeTooManyRequests, handlershared.Messagef(msgKey, waitSeconds))
	}
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByLoginEmail 按登录邮箱 + IP 限流
func KeyByLoginEmail(c *gin.Context) string {
	email := strings.ToLower(readJSONField(c, "email"))
	if email == "" {
		return c.ClientIP()
	}
	return email + "|" + c.ClientIP()
}

// KeyByReferralCode 按推荐码 + IP 限流。
// 请求体未带推荐码时按归因凭证 cookie 是否存在分为 cookie / direct 两类。
func KeyByReferralCode(c *gin.Context) string {
	code := strings.ToUpper(readJSONField(c, "referral_code"))
	if code == "" {
		code = "direct"
		if token, err := c.Cookie(constants.AttributionCookieName); err == nil && strings.TrimSpace(token) != "" {
			code = "cookie"
		}
	}
	return code + "|" + c.ClientIP()
}

// readJSONField 读取 JSON 请求体中的字符串字段，并还原请求体供后续绑定
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}
