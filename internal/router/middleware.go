package router

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader         = "X-Request-ID"
	operatorEmailContextKey = "operator_email"
	slowRequestThreshold    = time.Second
)

// 上游传入的请求ID只接受短的可打印标识，避免污染日志
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// OperatorAuthenticator 运营方登录凭证校验
type OperatorAuthenticator interface {
	ParseJWT(tokenString string) (*service.JWTClaims, error)
	ResolveOperatorStatus(ctx context.Context, operatorID uint) (string, error)
}

// corsPolicy 预先计算好的跨域响应头
type corsPolicy struct {
	origins          []string
	allowCredentials bool
	methods          string
	headers          string
	maxAge           string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	policy := corsPolicy{
		origins:          cfg.AllowedOrigins,
		allowCredentials: cfg.AllowCredentials,
		methods:          "GET, POST, PUT, DELETE, OPTIONS",
		headers:          "Content-Type, Authorization, X-Request-ID",
	}
	if len(policy.origins) == 0 {
		policy.origins = []string{"*"}
	}
	if len(cfg.AllowedMethods) > 0 {
		policy.methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	if len(cfg.AllowedHeaders) > 0 {
		policy.headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	if cfg.MaxAge > 0 {
		policy.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return policy
}

// CORSMiddleware 跨域中间件；归因上报由商城前端跨域调用，需暴露请求ID与限流等待时间
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if origin := resolveAllowedOrigin(c.GetHeader("Origin"), policy.origins, policy.allowCredentials); origin != "" {
			header.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if policy.allowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Methods", policy.methods)
		header.Set("Access-Control-Allow-Headers", policy.headers)
		header.Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if policy.maxAge != "" {
			header.Set("Access-Control-Max-Age", policy.maxAge)
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// resolveAllowedOrigin 返回应写回的 Allow-Origin；带凭证时通配符改为回显来源
func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 透传或生成请求ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if !requestIDPattern.MatchString(requestID) {
			requestID = uuid.NewString()
		}
		c.Set(response.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), "request_id", requestID))
		c.Next()
	}
}

// LoggerMiddleware 请求日志；后台请求带上运营方ID，慢请求单独告警
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if operatorID, ok := c.Get(handlershared.ContextKeyOperatorID); ok {
			fields = append(fields, "operator_id", operatorID)
		}
		switch {
		case len(c.Errors) > 0:
			sugar.Errorw("request", append(fields, "errors", c.Errors.String())...)
		case latency >= slowRequestThreshold:
			sugar.Warnw("request_slow", fields...)
		default:
			sugar.Infow("request", fields...)
		}
	}
}

func getRequestID(c *gin.Context) string {
	return response.RequestID(c)
}

// OperatorJWTAuthMiddleware 运营方 JWT 鉴权中间件；通过后写入运营方ID，后续查询均按其隔离
func OperatorJWTAuthMiddleware(secretKey string, auth OperatorAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if auth == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		token, key := bearerToken(c.GetHeader("Authorization"))
		if key != "" {
			abortUnauthorized(c, key)
			return
		}

		claims, err := auth.ParseJWT(token)
		if err != nil || claims == nil || claims.OperatorID == 0 {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		status, err := auth.ResolveOperatorStatus(c.Request.Context(), claims.OperatorID)
		if err != nil {
			logger.Warnw("operator_status_resolve_failed", "operator_id", claims.OperatorID, "error", err)
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		if !strings.EqualFold(strings.TrimSpace(status), constants.OperatorStatusActive) {
			abortUnauthorized(c, "error.operator_disabled")
			return
		}

		c.Set(handlershared.ContextKeyOperatorID, claims.OperatorID)
		c.Set(operatorEmailContextKey, claims.Email)
		c.Next()
	}
}

// bearerToken 解析 Authorization 头；失败时返回错误消息 key
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "error.auth_header_missing"
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || scheme != "Bearer" || token == "" {
		return "", "error.auth_header_invalid"
	}
	return token, ""
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Abort(c, response.CodeUnauthorized, handlershared.Message(key))
}
