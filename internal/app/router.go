package app

import (
	"exam_platform_backend/docs"
	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/middleware"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerLecturerRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.Profile)

	student := group.Group("/student")
	{
		student.GET("/classes/:id/exams", c.exam.ListByClass)
		student.GET("/exams/:id", c.exam.StudentView)
		student.POST("/exams/:id/attempts", c.attempt.Start)
		student.GET("/exams/:id/attempts", c.attempt.History)

		student.GET("/attempts/:id", c.attempt.Detail)
		student.PUT("/attempts/:id/answers", c.attempt.RecordAnswer)
		student.POST("/attempts/:id/submit", c.attempt.Submit)
		student.POST("/attempts/:id/bulk-submit", c.attempt.BulkSubmit)
	}
}

func (a *App) registerLecturerRoutes(group *gin.RouterGroup, c *controllers) {
	lecturer := group.Group("/lecturer")
	lecturer.Use(middleware.RoleMiddleware(model.Lecturer))
	{
		lecturer.POST("/classes", c.class.Create)
		lecturer.GET("/classes", c.class.List)
		lecturer.GET("/classes/:id/members", c.class.ListMembers)
		lecturer.POST("/classes/:id/members", c.class.AddMember)
		lecturer.DELETE("/classes/:id/members/:studentId", c.class.RemoveMember)

		lecturer.POST("/exams", c.exam.Create)
		lecturer.GET("/exams", c.exam.List)
		lecturer.GET("/exams/:id", c.exam.Get)
		lecturer.PUT("/exams/:id", c.exam.Update)
		lecturer.DELETE("/exams/:id", c.exam.Delete)

		lecturer.POST("/exams/:id/questions", c.exam.AddQuestion)
		lecturer.PUT("/exams/:id/questions/:questionId", c.exam.UpdateQuestion)
		lecturer.DELETE("/exams/:id/questions/:questionId", c.exam.DeleteQuestion)
		lecturer.POST("/attachments", c.exam.UploadAttachment)

		lecturer.POST("/exams/:id/publish", c.exam.Publish)
		lecturer.POST("/exams/:id/activate", c.exam.Activate)
		lecturer.POST("/exams/:id/close", c.exam.Close)

		lecturer.GET("/exams/:id/pending-grading", c.grading.ListPending)
		lecturer.POST("/answers/:id/grade", c.grading.GradeAnswer)
		lecturer.GET("/exams/:id/stats", c.analytics.ExamStats)
	}
}
