package admin

import (
	"errors"
	"time"

	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/models"

	"github.com/gin-gonic/gin"
)

// LoginRequest 运营方登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 运营方登录结果
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  *models.Operator `json:"operator"`
}

// Login 运营方登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.AuthService == nil {
		respondError(c, response.CodeInternal, "error.login_failed", nil)
		return
	}

	operator, token, expiresAt, err := h.AuthService.Login(req.Email, req.Password)
	if err != nil {
		respondMappedError(c, err, loginErrorRules, "error.login_failed")
		return
	}
	requestLog(c).Infow("operator_login", "operator_id", operator.ID)
	response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Operator:  operator,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type passwordPolicyViolation interface {
	Key() string
	Args() []interface{}
}

// ChangePassword 运营方修改自己的密码
func (h *Handler) ChangePassword(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.AuthService == nil {
		respondError(c, response.CodeInternal, "error.password_change_failed", nil)
		return
	}

	err := h.AuthService.ChangePassword(c.Request.Context(), operatorID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var violation passwordPolicyViolation
		if errors.As(err, &violation) {
			response.Error(c, response.CodeBadRequest, handlershared.Messagef(violation.Key(), violation.Args()...))
			return
		}
		respondMappedError(c, err, passwordErrorRules, "error.password_change_failed")
		return
	}
	response.Success(c, gin.H{"changed": true})
}
