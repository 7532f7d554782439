package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/cache"
	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 运营方认证服务
type AuthService struct {
	cfg          *config.Config
	operatorRepo repository.OperatorRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, operatorRepo repository.OperatorRepository) *AuthService {
	return &AuthService{
		cfg:          cfg,
		operatorRepo: operatorRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims 运营方 JWT 声明
type JWTClaims struct {
	OperatorID uint   `json:"operator_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(operator *models.Operator) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := JWTClaims{
		OperatorID: operator.ID,
		Email:      operator.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.OperatorID != 0 {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Login 运营方登录
func (s *AuthService) Login(email, password string) (*models.Operator, string, time.Time, error) {
	operator, err := s.operatorRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if operator == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(operator.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if operator.Status != constants.OperatorStatusActive {
		return nil, "", time.Time{}, ErrOperatorDisabled
	}

	token, expiresAt, err := s.GenerateJWT(operator)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.operatorRepo.TouchLastLogin(operator.ID, now); err != nil {
		logger.Warnw("operator_touch_last_login_failed", "operator_id", operator.ID, "error", err)
	}
	operator.LastLoginAt = &now
	_ = cache.SetOperatorAuthState(context.Background(), cache.BuildOperatorAuthState(operator))
	return operator, token, expiresAt, nil
}

// ResolveOperatorStatus 获取运营方状态，优先读取缓存快照
func (s *AuthService) ResolveOperatorStatus(ctx context.Context, operatorID uint) (string, error) {
	state, err := cache.GetOperatorAuthState(ctx, operatorID)
	if err != nil {
		logger.Warnw("operator_auth_state_cache_read_failed", "operator_id", operatorID, "error", err)
	}
	if state != nil {
		return state.Status, nil
	}
	operator, err := s.operatorRepo.GetByID(operatorID)
	if err != nil {
		return "", err
	}
	if operator == nil {
		return "", ErrNotFound
	}
	_ = cache.SetOperatorAuthState(ctx, cache.BuildOperatorAuthState(operator))
	return operator.Status, nil
}

// ChangePassword 运营方修改密码
func (s *AuthService) ChangePassword(ctx context.Context, operatorID uint, currentPassword, newPassword string) error {
	operator, err := s.operatorRepo.GetByID(operatorID)
	if err != nil {
		return err
	}
	if operator == nil {
		return ErrNotFound
	}
	if err := s.VerifyPassword(operator.PasswordHash, currentPassword); err != nil {
		return ErrPasswordMismatch
	}
	check := operatorPasswordCheck{policy: s.cfg.Security.PasswordPolicy, operator: operator, current: currentPassword}
	if err := check.validate(newPassword); err != nil {
		return err
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.operatorRepo.UpdatePassword(operator.ID, hash, time.Now()); err != nil {
		return err
	}
	if err := cache.DelOperatorAuthState(ctx, operator.ID); err != nil {
		logger.Warnw("operator_auth_state_cache_delete_failed", "operator_id", operator.ID, "error", err)
	}
	logger.Infow("operator_password_changed", "operator_id", operator.ID)
	return nil
}
