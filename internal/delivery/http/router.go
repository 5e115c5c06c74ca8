package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	LoginPath string
	JWTSecret string // optional
	Logger    *zap.Logger
}

func InitRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	r.GET("/healthz", handler.Health)

	// Public Routes
	api := r.Group("/api/v1")
	{
		api.POST("/login", handler.Login)
	}

	// Protected Routes (learner)
	protected := api.Group("/")
	protected.Use(AuthMiddleware(cfg.LoginPath, cfg.JWTSecret))
	{
		protected.GET("/dashboard", handler.GetLearnerDashboard)

		courses := protected.Group("/courses/:id")
		courses.GET("", handler.OpenCourse)
		courses.GET("/view", handler.GetCourseView)
		courses.DELETE("/session", handler.CloseCourse)
		courses.PUT("/selection", handler.Select)
		courses.POST("/playback/pause", handler.Pause)
		courses.POST("/playback/ended", handler.Ended)
		courses.POST("/feedback", handler.SubmitFeedback)
		courses.POST("/enroll", handler.Enroll)
		courses.DELETE("/enroll", handler.Unenroll)
	}

	return r
}
