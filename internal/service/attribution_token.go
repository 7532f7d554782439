package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAttributionTokenTTL = 30 * 24 * time.Hour

// AttributionTokenStore 归因令牌单次使用记录
type AttributionTokenStore interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// AttributionClaims 归因令牌声明
type AttributionClaims struct {
	Code string `json:"code"`
	jwt.RegisteredClaims
}

// AttributionTokenService 签发与消费归因令牌
type AttributionTokenService struct {
	secret []byte
	ttl    time.Duration
	store  AttributionTokenStore
}

// NewAttributionTokenService 创建归因令牌服务，未配置独立密钥时回退到 JWT 密钥
func NewAttributionTokenService(cfg *config.Config, store AttributionTokenStore) *AttributionTokenService {
	secret := ""
	ttl := defaultAttributionTokenTTL
	if cfg != nil {
		secret = strings.TrimSpace(cfg.Attribution.TokenSecret)
		if secret == "" {
			secret = cfg.JWT.SecretKey
		}
		if cfg.Attribution.TokenTTLDays > 0 {
			ttl = time.Duration(cfg.Attribution.TokenTTLDays) * 24 * time.Hour
		}
	}
	return &AttributionTokenService{secret: []byte(secret), ttl: ttl, store: store}
}

// TTL 令牌有效期
func (s *AttributionTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue 为推荐码签发令牌
func (s *AttributionTokenService) Issue(code string) (string, time.Time, error) {
	normalized := normalizeReferralCode(code)
	if normalized == "" {
		return "", time.Time{}, ErrInvalidReferralCode
	}
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := AttributionClaims{
		Code: normalized,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 校验签名与有效期
func (s *AttributionTokenService) Parse(tokenString string) (*AttributionClaims, error) {
	raw := strings.TrimSpace(tokenString)
	if raw == "" {
		return nil, ErrAttributionTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, &AttributionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrAttributionTokenInvalid, err)
	}
	claims, ok := token.Claims.(*AttributionClaims)
	if !ok || !token.Valid || claims.Code == "" || claims.ID == "" {
		return nil, ErrAttributionTokenInvalid
	}
	return claims, nil
}

// Redeem 解析并消费令牌，返回其中的推荐码。
// 无效、过期或已被使用的令牌视为不存在，返回空串。
func (s *AttributionTokenService) Redeem(ctx context.Context, tokenString string) string {
	if strings.TrimSpace(tokenString) == "" {
		return ""
	}
	claims, err := s.Parse(tokenString)
	if err != nil {
		logger.Debugw("attribution_token_rejected", "error", err)
		return ""
	}
	if s.store == nil {
		return claims.Code
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	first, err := s.store.Consume(ctx, claims.ID, ttl)
	if err != nil {
		// 存储不可用时放行，Cookie 仍会被清除
		logger.Warnw("attribution_token_consume_failed", "jti", claims.ID, "error", err)
		return claims.Code
	}
	if !first {
		logger.Infow("attribution_token_reused", "jti", claims.ID)
		return ""
	}
	return claims.Code
}
