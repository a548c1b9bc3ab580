package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/bcc-marketplace/config"
	_ "github.com/d60-Lab/bcc-marketplace/docs"
	"github.com/d60-Lab/bcc-marketplace/internal/api/handler"
	"github.com/d60-Lab/bcc-marketplace/internal/api/middleware"
	"github.com/d60-Lab/bcc-marketplace/internal/service"
)

// Deps 路由依赖
type Deps struct {
	Handler  *handler.Handler
	Sessions *service.SessionStore
	Tokens   *middleware.SessionTokens
	// Limiter 为空且启用限流时由路由自行创建
	Limiter *middleware.RateLimiter
}

// NewRouter 创建并配置 gin 路由
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	h := deps.Handler
	r.GET("/health", h.Health)
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		limiter := deps.Limiter
		if limiter == nil {
			limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
		v1.Use(limiter.Middleware())
	}
	{
		catalogGroup := v1.Group("/catalog")
		catalogGroup.GET("/categories", h.ListCategories)
		catalogGroup.GET("/products", h.ListProducts)
		catalogGroup.GET("/products/:product_id", h.GetProduct)

		orders := v1.Group("/orders")
		orders.GET("/lookup", h.LookupOrder)
		orders.GET("/recent", h.RecentOrders)
		orders.POST("/:order_id/payment", h.CapturePayment)
	}

	shopper := v1.Group("")
	shopper.Use(middleware.Session(deps.Sessions, deps.Tokens))
	{
		shopper.GET("/cart", h.GetCart)
		shopper.DELETE("/cart", h.ClearCart)
		shopper.POST("/cart/items", h.AddItem)
		shopper.PUT("/cart/items/:product_id", h.SetQuantity)
		shopper.DELETE("/cart/items/:product_id", h.RemoveItem)

		shopper.GET("/checkout", h.GetCheckout)
		shopper.POST("/checkout/confirm", h.Confirm)
		shopper.POST("/checkout/payment", h.Pay)

		shopper.GET("/support/messages", h.SupportTranscript)
		shopper.POST("/support/messages", h.SendSupportMessage)
	}

	return r
}
