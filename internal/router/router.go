package router

import (
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/config"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/handler"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/service"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived clients built by main.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Shopify   service.ShopifyAPI
	ShopifyCB *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AppURL))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	draftRepo := repository.NewDraftRepository(deps.DB)
	tokenRepo := repository.NewShopTokenRepository(deps.DB)

	// Worker dispatcher, injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(deps.Redis)

	// ── Services ─────────────────────────────────────────────────────────────
	draftSvc := service.NewDraftService(draftRepo, deps.Redis)
	capabilitySvc := service.NewCapabilityService()
	shopifySvc := service.NewShopifyService(
		deps.Shopify,
		tokenRepo,
		service.NewRedisStateStore(deps.Redis),
		dispatcher,
		deps.ShopifyCB,
		deps.Redis,
		service.ShopifyOptions{
			Scopes:        cfg.ShopifyScopes,
			RedirectURI:   cfg.OAuthRedirectURI(),
			SessionSecret: cfg.SessionSecret,
			SessionTTL:    cfg.SessionTTL(),
			ProductsTTL:   cfg.ProductsCacheTTL(),
		},
	)

	// ── Handlers ─────────────────────────────────────────────────────────────
	draftsH := handler.NewDraftsHandler(draftSvc)
	capabilitiesH := handler.NewCapabilitiesHandler(capabilitySvc)
	shopifyH := handler.NewShopifyHandler(shopifySvc, cfg.Env == "production")

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.ShopifyCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Shopify OAuth and webhooks (public, verified by HMAC)
	shopify := r.Group("/api/shopify")
	{
		shopify.GET("/auth", middleware.OAuthRateLimiter(), shopifyH.Auth)
		shopify.GET("/callback", middleware.OAuthRateLimiter(), shopifyH.Callback)
		shopify.POST("/webhooks/app-uninstalled", shopifyH.AppUninstalled)
	}

	// Capability catalog and quotes are stateless
	caps := r.Group("/api/capabilities")
	{
		caps.GET("", capabilitiesH.List)
		caps.POST("/quote", capabilitiesH.Quote)
		caps.POST("/:id/enable", capabilitiesH.Enable)
	}

	// Protected routes
	sessionMW := middleware.SessionAuth(cfg.SessionSecret)
	r.GET("/api/shopify/products", sessionMW, shopifyH.Products)

	wizard := r.Group("/api/wizard", sessionMW)
	{
		wizard.GET("/draft", draftsH.Get)
		wizard.POST("/draft", draftsH.Save)
		wizard.DELETE("/draft", draftsH.Delete)
		wizard.GET("/drafts", draftsH.List)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
