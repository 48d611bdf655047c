package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/clubcore/evaluation-service/internal/config"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/services"
	"github.com/clubcore/evaluation-service/internal/utils"
	"github.com/clubcore/evaluation-service/internal/validator"
)

type HandlerManager struct {
	evaluationHandler *EvaluationHandler
	quizHandler       *QuizHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		evaluationHandler: NewEvaluationHandler(serviceManager.Evaluation(), serviceManager.Export(), validator, logger),
		quizHandler:       NewQuizHandler(serviceManager.Scoring(), serviceManager.Export(), validator, logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Public routes: result lookup and quiz taking need no authentication
	public := router.Group("/api/v1/public")
	{
		public.POST("/results/lookup", hm.evaluationHandler.PublicLookup)

		public.GET("/quizzes", hm.quizHandler.ListQuizzes)
		public.GET("/quizzes/:id", hm.quizHandler.GetQuiz)
		public.POST("/quizzes/:id/submit", hm.quizHandler.SubmitQuiz)
	}

	// Authenticated API routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		coachOrAdmin := hm.authMiddleware.RequireRoleMiddleware(models.RoleCoach, models.RoleAdmin)
		adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

		// Evaluation lifecycle
		evaluations := v1.Group("/evaluations")
		evaluations.Use(coachOrAdmin)
		{
			evaluations.POST("", hm.evaluationHandler.Nominate)
			evaluations.POST("/bulk", hm.evaluationHandler.NominateBulk)
			evaluations.GET("", hm.evaluationHandler.ListEvaluations)
			evaluations.GET("/stats", hm.evaluationHandler.GetStats)
			evaluations.GET("/export", hm.evaluationHandler.ExportEvaluations)
			evaluations.GET("/:id", hm.evaluationHandler.GetEvaluation)

			evaluations.POST("/:id/approve", hm.evaluationHandler.Approve)
			evaluations.POST("/:id/disapprove", hm.evaluationHandler.Disapprove)
			evaluations.POST("/:id/result", hm.evaluationHandler.RecordResult)
			evaluations.POST("/results/bulk", hm.evaluationHandler.RecordResultsBulk)

			// Hard deletes are admin only
			evaluations.DELETE("/:id", adminOnly, hm.evaluationHandler.DeleteEvaluation)
			evaluations.DELETE("/batch", adminOnly, hm.evaluationHandler.DeleteEvaluationsBatch)
		}

		// Attempt history and quiz stats for coaches and admins
		attempts := v1.Group("/attempts")
		attempts.Use(coachOrAdmin)
		{
			attempts.GET("", hm.quizHandler.ListAttempts)
		}

		quizzes := v1.Group("/quizzes")
		quizzes.Use(coachOrAdmin)
		{
			quizzes.GET("/:id/stats", hm.quizHandler.GetQuizStats)
			quizzes.GET("/:id/attempts/export", hm.quizHandler.ExportAttempts)
		}

		// User lookups (coach pickers in admin tooling)
		users := v1.Group("/users")
		users.Use(coachOrAdmin)
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/search", hm.userHandler.SearchUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "evaluation-service",
		})
	})
}
