package public

import (
	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/provider"
	"github.com/affiliate-desk/internal/service"
)

// Handler 推荐跳转与归因上报处理器，无需登录
type Handler struct {
	attribution *service.AttributionService
	tokens      *service.AttributionTokenService
	cfg         config.AttributionConfig
}

// New 从容器取出归因相关依赖
func New(c *provider.Container) *Handler {
	h := &Handler{}
	if c == nil {
		return h
	}
	h.attribution = c.AttributionService
	h.tokens = c.AttributionTokenService
	if c.Config != nil {
		h.cfg = c.Config.Attribution
	}
	return h
}
