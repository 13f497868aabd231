package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"forum-api/internal/service"
)

// RouterConfig agrupa opciones del router que vienen de la configuracion.
type RouterConfig struct {
	AllowedOrigins []string
	EnableSeed     bool
	// HealthCheck se usa en /healthz; nil siempre responde ok.
	HealthCheck func(ctx context.Context) error
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	postH *PostHandler,
	demoH *DemoHandler,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(), corsMiddleware(cfg.AllowedOrigins))

	r.GET("/healthz", healthHandler(cfg.HealthCheck))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", jsonContentTypeMiddleware())

	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/signup", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/logout", userH.Logout)
	auth.GET("/me", AuthMiddleware(logger, jwtSvc), userH.Me)

	posts := api.Group("/posts")
	posts.GET("", postH.List)
	posts.POST("", OptionalAuthMiddleware(jwtSvc), postH.Create)
	posts.PATCH("/:id/upvote", postH.Upvote)
	posts.PATCH("/:id/downvote", postH.Downvote)
	posts.POST("/:id/comments", postH.AddComment)
	if cfg.EnableSeed {
		api.POST("/seed-posts", postH.Seed)
	}

	api.GET("/communities", demoH.Communities)

	debates := api.Group("/debates")
	debates.GET("", demoH.Debates)
	debates.POST("", demoH.CreateDebate)
	debates.PATCH("/:id/vote", demoH.VoteDebate)
	debates.POST("/:id/comments", demoH.CommentDebate)

	mentors := api.Group("/mentors")
	mentors.GET("", demoH.Mentors)
	mentors.POST("/:id/request", demoH.RequestMentor)
	mentors.POST("/:id/reviews", demoH.ReviewMentor)

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// corsMiddleware permite credenciales solo para los origenes configurados.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		origins[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := origins[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
