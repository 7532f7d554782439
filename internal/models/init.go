package models

import (
	"strings"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultOperatorEmail    = "admin@example.com"
	defaultOperatorPassword = "admin123"
)

// InitDefaultOperator 初始化默认运营方账号
func InitDefaultOperator(email, password string) error {
	var count int64
	if err := DB.Model(&Operator{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = defaultOperatorEmail
	}
	if password == "" {
		password = defaultOperatorPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	operator := Operator{
		Name:         "default",
		Email:        email,
		PasswordHash: string(hash),
		Status:       constants.OperatorStatusActive,
	}
	if err := DB.Create(&operator).Error; err != nil {
		return err
	}

	if password == defaultOperatorPassword {
		logger.Warnw("default_operator_created_with_default_password", "email", email)
		logger.Warnw("default_operator_password_change_required", "email", email)
	} else {
		logger.Warnw("default_operator_created", "email", email, "password_hidden", true)
	}
	return nil
}
