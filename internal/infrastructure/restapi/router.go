package restapi

import (
	"net/http"
	"strings"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/infrastructure/configloader"
	"crosschain_portfolio/internal/presentation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const swaggerSpecRoute = "/docs/swagger.yaml"

// RouterDeps collects what SetupRouter wires together.
type RouterDeps struct {
	Handler   *PortfolioHandler
	Registry  port.SessionRegistry
	Presenter *presentation.Presenter
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
	Routing   configloader.RoutingConfig
	CORS      configloader.CORSConfig
	Swagger   configloader.SwaggerConfig
}

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New() // свой логгер вместо стандартного gin.Logger
	router.Use(RequestLogger(deps.Logger), gin.Recovery(), corsMiddleware(deps.CORS))

	router.GET("/api/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.Swagger.Enabled {
		router.StaticFile(swaggerSpecRoute, deps.Swagger.SpecFile)
		swaggerPath := strings.TrimRight(deps.Swagger.Path, "/")
		router.GET(swaggerPath+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(swaggerSpecRoute)))
	}

	landing := deps.Routing.LandingPath
	// Входной путь всегда редиректит, независимо от состояния сессии
	router.GET(deps.Routing.EntryPath, func(c *gin.Context) {
		c.Redirect(http.StatusFound, landing)
	})

	withSession := SessionMiddleware(deps.Registry)
	gated := GateMiddleware(deps.Presenter, landing)

	// Группа для API v1
	v1 := router.Group("/api/v1", withSession)
	{
		v1.GET("/session", deps.Handler.GetSessionHandler)

		portfolio := v1.Group("/portfolio", gated)
		portfolio.GET("", deps.Handler.GetPortfolioHandler)
		portfolio.POST("/refresh", deps.Handler.RefreshPortfolioHandler)
		portfolio.GET("/ws", deps.Handler.PortfolioStreamHandler)

		wallets := v1.Group("/wallets", gated)
		wallets.POST("/:chain/copy", deps.Handler.CopyWalletHandler)
	}

	router.NoRoute(func(c *gin.Context) {
		// Неизвестные API ручки отдают 404, всё остальное это страницы приложения
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, APIErrorResponse{Error: "not found"})
			return
		}
		withSession(c)
		if c.IsAborted() {
			return
		}
		deps.Handler.PageHandler(c)
	})

	return router
}

func corsMiddleware(cfg configloader.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: len(cfg.AllowOrigins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(c)
}
