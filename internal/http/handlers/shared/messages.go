package shared

import "fmt"

// messages 错误提示文案，按 key 查找
var messages = map[string]string{
	"error.bad_request":                 "请求参数错误",
	"error.unauthorized":                "未登录或登录已失效",
	"error.forbidden":                   "无权访问",
	"error.not_found":                   "资源不存在",
	"error.internal":                    "服务器内部错误",
	"error.jwt_secret_missing":          "服务端未配置登录密钥",
	"error.auth_header_missing":         "缺少认证信息",
	"error.auth_header_invalid":         "认证信息格式错误",
	"error.token_invalid":               "登录凭证无效",
	"error.operator_disabled":           "运营账号已停用",
	"error.login_invalid":               "邮箱或密码错误",
	"error.login_failed":                "登录失败",
	"error.rate_limited":                "请求过于频繁，请 %d 秒后重试",
	"error.rate_limit_unavailable":      "限流服务不可用",
	"error.missing_fields":              "缺少必填字段",
	"error.event_type_invalid":          "事件类型无效",
	"error.email_invalid":               "邮箱格式错误",
	"error.amount_invalid":              "金额无效",
	"error.referral_code_invalid":       "推荐码无效",
	"error.referral_already_tracked":    "该客户已被此推广用户记录",
	"error.referral_track_failed":       "推荐记录保存失败",
	"error.referral_not_found":          "推荐记录不存在",
	"error.referral_status_invalid":     "推荐记录状态流转无效",
	"error.referral_fetch_failed":       "推荐记录查询失败",
	"error.validation_failed":           "推荐记录校验失败",
	"error.affiliate_not_found":         "推广用户不存在",
	"error.affiliate_invalid":           "推广用户参数无效",
	"error.affiliate_email_exists":      "该邮箱已注册为推广用户",
	"error.affiliate_code_exhausted":    "推荐码生成失败，请重试",
	"error.affiliate_status_invalid":    "推广用户状态无效",
	"error.affiliate_fetch_failed":      "推广用户查询失败",
	"error.program_not_found":           "推广计划不存在",
	"error.program_invalid":             "推广计划参数无效",
	"error.program_fetch_failed":        "推广计划查询失败",
	"error.payout_invalid":              "打款参数无效",
	"error.payout_not_found":            "打款记录不存在",
	"error.payout_status_invalid":       "打款状态流转无效",
	"error.payout_fetch_failed":         "打款记录查询失败",
	"error.ledger_fetch_failed":         "账本查询失败",
	"error.save_failed":                 "保存失败",
	"error.redirect_failed":             "跳转失败",
	"error.attribution_token_failed":    "推荐凭证签发失败",
	"error.marketplace_not_configured":  "外部市场系统未配置",
	"error.external_lookup_unavailable": "外部市场系统不可用",
	"error.dashboard_range_invalid":     "统计时间范围无效",
	"error.dashboard_fetch_failed":      "统计数据查询失败",
	"error.password_mismatch":           "当前密码错误",
	"error.password_weak":               "新密码强度不足",
	"error.password_min_length":         "密码长度不能少于 %d 位",
	"error.password_require_upper":      "密码需包含大写字母",
	"error.password_require_lower":      "密码需包含小写字母",
	"error.password_require_number":     "密码需包含数字",
	"error.password_require_special":    "密码需包含特殊字符",
	"error.password_max_length":         "密码长度不能超过 %d 字节",
	"error.password_reused":             "新密码不能与当前密码相同",
	"error.password_contains_identity":  "密码不能包含登录邮箱或名称",
	"error.password_change_failed":      "密码修改失败",
}

// Message 按 key 取文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 按 key 取文案并格式化
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
