package admin

import "github.com/affiliate-desk/internal/provider"

// Handler 运营后台接口处理器入口
// 说明：该处理器仅用于运营方登录后的管理 API。
type Handler struct {
	*provider.Container
}

// New 创建运营后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
