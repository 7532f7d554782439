package service

import (
	"strings"
	"unicode"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/models"
)

// bcrypt 只使用前 72 字节，更长的密码截断后等价
const passwordMaxBytes = 72

// 邮箱用户名短于该长度时不做包含校验
const passwordIdentityMinLen = 4

// passwordPolicyError 携带提示文案 key 与参数，errors.Is 可匹配 ErrWeakPassword
type passwordPolicyError struct {
	key  string
	args []interface{}
}

func (e passwordPolicyError) Error() string {
	return e.key
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func (e passwordPolicyError) Key() string {
	return e.key
}

func (e passwordPolicyError) Args() []interface{} {
	return e.args
}

// operatorPasswordCheck 运营方改密时的校验上下文
type operatorPasswordCheck struct {
	policy   config.PasswordPolicyConfig
	operator *models.Operator
	current  string
}

// validate 依次校验长度上限、与当前密码相同、包含登录身份，最后执行配置策略
func (c operatorPasswordCheck) validate(password string) error {
	if len(password) > passwordMaxBytes {
		return passwordPolicyError{key: "error.password_max_length", args: []interface{}{passwordMaxBytes}}
	}
	if c.current != "" && password == c.current {
		return passwordPolicyError{key: "error.password_reused"}
	}
	if c.operator != nil && containsOperatorIdentity(c.operator, password) {
		return passwordPolicyError{key: "error.password_contains_identity"}
	}
	return checkCharacterClasses(c.policy, password)
}

// containsOperatorIdentity 密码是否包含邮箱用户名或运营方名称（忽略大小写）
func containsOperatorIdentity(operator *models.Operator, password string) bool {
	lowered := strings.ToLower(password)
	candidates := []string{operator.Name}
	if at := strings.IndexByte(operator.Email, '@'); at > 0 {
		candidates = append(candidates, operator.Email[:at])
	}
	for _, item := range candidates {
		item = strings.ToLower(strings.TrimSpace(item))
		if len([]rune(item)) < passwordIdentityMinLen {
			continue
		}
		if strings.Contains(lowered, item) {
			return true
		}
	}
	return false
}

func checkCharacterClasses(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case policy.RequireUpper && !hasUpper:
		return passwordPolicyError{key: "error.password_require_upper"}
	case policy.RequireLower && !hasLower:
		return passwordPolicyError{key: "error.password_require_lower"}
	case policy.RequireNumber && !hasNumber:
		return passwordPolicyError{key: "error.password_require_number"}
	case policy.RequireSpecial && !hasSpecial:
		return passwordPolicyError{key: "error.password_require_special"}
	}
	return nil
}
