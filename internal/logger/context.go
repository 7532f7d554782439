package logger

import (
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// With 把日志字段挂到 context 上，下游经 Ctx 取出的 logger 自动携带
func With(ctx context.Context, kv ...interface{}) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(kv) == 0 {
		return ctx
	}
	existing, _ := ctx.Value(fieldsKey{}).([]interface{})
	merged := make([]interface{}, 0, len(existing)+len(kv))
	merged = append(merged, existing...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields 返回 context 上的日志字段
func Fields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]interface{})
	return fields
}

// Ctx 返回携带 context 字段（request_id、task_id、operator_id 等）的 SugaredLogger
func Ctx(ctx context.Context) *zap.SugaredLogger {
	return SW(Fields(ctx)...)
}
