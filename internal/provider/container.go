package provider

import (
	"github.com/affiliate-desk/internal/cache"
	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/marketplace"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/queue"
	"github.com/affiliate-desk/internal/repository"
	"github.com/affiliate-desk/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config            *config.Config
	QueueClient       *queue.Client
	MarketplaceClient *marketplace.Client

	// Repositories
	OperatorRepo  repository.OperatorRepository
	ProgramRepo   repository.ProgramRepository
	AffiliateRepo repository.AffiliateRepository
	ReferralRepo  repository.ReferralRepository
	PayoutRepo    repository.PayoutRepository
	DashboardRepo repository.DashboardRepository

	// Services
	AuthService             *service.AuthService
	AffiliateDirectory      *service.AffiliateDirectory
	AttributionService      *service.AttributionService
	AttributionTokenService *service.AttributionTokenService
	ValidationService       *service.ValidationService
	LedgerService           *service.LedgerService
	ProgramService          *service.ProgramService
	AffiliateService        *service.AffiliateService
	ReferralService         *service.ReferralService
	PayoutService           *service.PayoutService
	DashboardService        *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	if cfg.Marketplace.BaseURL == "" {
		logger.Warnw("provider_marketplace_base_url_empty", "hint", "referral validation will record error status")
	}
	return Assemble(cfg, models.DB, queueClient, marketplace.NewClient(cfg.Marketplace))
}

// Assemble 基于已初始化的数据库与外部客户端装配仓储和服务
func Assemble(cfg *config.Config, db *gorm.DB, queueClient *queue.Client, marketClient *marketplace.Client) *Container {
	c := &Container{
		Config:            cfg,
		QueueClient:       queueClient,
		MarketplaceClient: marketClient,
	}
	c.initRepositories(db)
	c.initServices()
	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.OperatorRepo = repository.NewOperatorRepository(db)
	c.ProgramRepo = repository.NewProgramRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.OperatorRepo)
	c.AffiliateDirectory = service.NewAffiliateDirectory(c.AffiliateRepo)
	c.AttributionService = service.NewAttributionService(c.Config, c.AffiliateDirectory, c.AffiliateRepo, c.ReferralRepo, c.QueueClient)
	c.AttributionTokenService = service.NewAttributionTokenService(c.Config, cache.NewAttributionTokenStore())
	c.ValidationService = service.NewValidationService(c.Config, c.ReferralRepo, c.MarketplaceClient)
	c.LedgerService = service.NewLedgerService(c.Config, c.AffiliateRepo, c.ReferralRepo, c.PayoutRepo)
	c.ProgramService = service.NewProgramService(c.ProgramRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.ProgramRepo)
	c.ReferralService = service.NewReferralService(c.ReferralRepo)
	c.PayoutService = service.NewPayoutService(c.PayoutRepo, c.AffiliateRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
