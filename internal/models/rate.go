package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// RateScale 佣金费率保留的小数位
const RateScale = 4

// Rate 佣金费率（固定金额或百分比），比金额多保留两位小数
type Rate struct {
	decimal.Decimal
}

// NewRateFromDecimal 从 decimal 创建费率
func NewRateFromDecimal(value decimal.Decimal) Rate {
	return Rate{Decimal: value.Round(RateScale)}
}

// NewRateFromString 从字符串解析费率，空串视为 0
func NewRateFromString(raw string) (Rate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Rate{Decimal: decimal.Zero}, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Rate{}, err
	}
	return NewRateFromDecimal(d), nil
}

// MarshalJSON 以字符串输出，去掉多余的 0
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON 解析费率（字符串或数字）
func (r *Rate) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		r.Decimal = decimal.Zero
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	parsed, err := NewRateFromString(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value 用于数据库写入
func (r Rate) Value() (driver.Value, error) {
	return r.Decimal.Round(RateScale).Value()
}

// Scan 用于数据库读取
func (r *Rate) Scan(value interface{}) error {
	if value == nil {
		r.Decimal = decimal.Zero
		return nil
	}
	if err := r.Decimal.Scan(value); err != nil {
		return err
	}
	r.Decimal = r.Decimal.Round(RateScale)
	return nil
}

// String 返回费率字符串
func (r Rate) String() string {
	return r.Decimal.Round(RateScale).String()
}
