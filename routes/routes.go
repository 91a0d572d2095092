package routes

import (
	"net/http"
	"time"

	"carmarket/auth"
	"carmarket/handlers"
	"carmarket/middleware"
	"carmarket/models"
	"carmarket/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	AllowedOrigins []string
	// PublicDir is served under /public when set.
	PublicDir string
	Limiter   middleware.Limiter
}

func SetupRouter(h *handlers.Handler, tokens *auth.TokenManager, ws *websocket.Manager, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
			"ws":     ws.ConnectedUsers(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.PublicDir != "" {
		router.Static("/public", opts.PublicDir)
	}
	router.GET("/ws", gin.WrapF(websocket.Handler(ws, tokens)))

	api := router.Group("/")
	if opts.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	// Public routes; refresh and logout read the refresh token from the bearer header
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/google", h.GoogleSignIn)
	authGroup.GET("/refresh", h.Refresh)
	authGroup.GET("/logout", h.Logout)

	protected := api.Group("/")
	protected.Use(middleware.JWTAuthMiddleware(tokens))

	protected.PUT("/auth/:id", h.UpdateProfile)

	// Cars
	protected.GET("/car", h.ListCars)
	protected.GET("/car/colors", h.CarColors)
	protected.GET("/car/cities", h.CarCities)
	protected.GET("/car/:id", h.GetCar)
	protected.POST("/car", h.CreateCar)
	protected.PUT("/car/:id", h.UpdateCar)
	protected.DELETE("/car/:id", h.DeleteCar)

	// Posts
	protected.GET("/post", h.ListPosts)
	protected.POST("/post", h.CreatePost)
	protected.GET("/post/:postId", h.GetPost)
	protected.GET("/post/:postId/populated", h.GetPopulatedPost)
	protected.PUT("/post/:postId", h.UpdatePost)
	protected.DELETE("/post/:postId", h.DeletePost)

	// Comments and replies
	protected.POST("/post/:postId/comment", h.AddComment)
	protected.GET("/post/:postId/comment/:commentId", h.GetComment)
	protected.PUT("/post/:postId/comment/:commentId", h.EditComment)
	protected.DELETE("/post/:postId/comment/:commentId", h.DeleteComment)
	protected.POST("/post/:postId/comment/:commentId/reply", h.AddReply)
	protected.GET("/post/:postId/comment/:commentId/reply/:replyId", h.GetReply)
	protected.PUT("/post/:postId/comment/:commentId/reply/:replyId", h.EditReply)
	protected.DELETE("/post/:postId/comment/:commentId/reply/:replyId", h.DeleteReply)

	// Liked posts
	protected.GET("/user/:userId/likedPosts", h.GetLikedPosts)
	protected.POST("/user/:userId/likedPosts", h.LikePost)
	protected.DELETE("/user/:userId/likedPosts/:postId", h.UnlikePost)

	protected.POST("/file", h.UploadFile)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Message: "Endpoint not found: " + c.Request.URL.Path,
			Code:    models.KindNotFound,
		})
	})

	return router
}
