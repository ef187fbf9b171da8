package apigateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/auth"
	"speech-eval-toolkit/internal/configmanagement"
	"speech-eval-toolkit/internal/jobmanagement"
	"speech-eval-toolkit/internal/speechworkflow"
)

// Handlers bundles the route handlers the gateway mounts.
type Handlers struct {
	Config   *configmanagement.Handlers
	Jobs     *jobmanagement.Handlers
	Workflow *speechworkflow.Handlers
}

// SetupRouter initializes the main Gin router for the API gateway.
// /auth is public; everything under /admin requires a session.
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", auth.LoginHandler)
		authRoutes.POST("/logout", auth.LogoutHandler)
	}

	adminRoutes := router.Group("/admin")
	adminRoutes.Use(auth.AuthMiddleware())
	{
		adminRoutes.POST("/score", h.Jobs.ScoreHandler)

		recognizerRoutes := adminRoutes.Group("/recognizers")
		{
			recognizerRoutes.POST("", h.Config.CreateRecognizerProfileHandler)
			recognizerRoutes.GET("", h.Config.ListRecognizerProfilesHandler)
			recognizerRoutes.GET("/:id", h.Config.GetRecognizerProfileHandler)
			recognizerRoutes.PUT("/:id", h.Config.UpdateRecognizerProfileHandler)
			recognizerRoutes.DELETE("/:id", h.Config.DeleteRecognizerProfileHandler)
		}

		testCaseRoutes := adminRoutes.Group("/test-cases")
		{
			testCaseRoutes.POST("", h.Config.CreateAudioTestCaseHandler)
			testCaseRoutes.GET("", h.Config.ListAudioTestCasesHandler)
			testCaseRoutes.GET("/:id", h.Config.GetAudioTestCaseHandler)
			testCaseRoutes.GET("/:id/audio-url", h.Config.GetAudioTestCaseURLHandler)
			testCaseRoutes.PUT("/:id", h.Config.UpdateAudioTestCaseHandler)
			testCaseRoutes.DELETE("/:id", h.Config.DeleteAudioTestCaseHandler)
		}

		jobRoutes := adminRoutes.Group("/jobs")
		{
			jobRoutes.POST("/pairs", h.Jobs.CreatePairsJobHandler)
			jobRoutes.POST("/evaluation", h.Jobs.CreateEvaluationJobHandler)
			jobRoutes.POST("/objects", h.Jobs.CreateObjectsJobHandler)
			jobRoutes.GET("", h.Jobs.ListJobsHandler)
			jobRoutes.GET("/:id", h.Jobs.GetJobHandler)
			jobRoutes.GET("/:id/results", h.Jobs.GetJobResultsHandler)
		}
		adminRoutes.POST("/transcriptions", h.Jobs.CreateTranscriptionJobHandler)

		// Custom-model workflow on the speech platform.
		workflowRoutes := adminRoutes.Group("", h.Workflow.RequireClient())
		{
			workflowRoutes.POST("/projects", h.Workflow.CreateProjectHandler)
			workflowRoutes.DELETE("/projects/:id", h.Workflow.DeleteProjectHandler)
			workflowRoutes.POST("/datasets", h.Workflow.CreateDatasetHandler)
			workflowRoutes.GET("/datasets/:id/content-url", h.Workflow.GetDatasetContentURLHandler)
			workflowRoutes.GET("/base-models/:id", h.Workflow.GetBaseModelHandler)
			workflowRoutes.POST("/models", h.Workflow.CreateModelHandler)
			workflowRoutes.GET("/models/:id/status", h.Workflow.GetModelStatusHandler)
			workflowRoutes.POST("/evaluations", h.Workflow.CreateEvaluationHandler)
			workflowRoutes.GET("/evaluations/:id", h.Workflow.GetEvaluationHandler)
			workflowRoutes.GET("/evaluations/:id/status", h.Workflow.GetEvaluationStatusHandler)
			workflowRoutes.POST("/endpoints", h.Workflow.CreateEndpointHandler)
			workflowRoutes.GET("/endpoints/:id/status", h.Workflow.GetEndpointStatusHandler)
			workflowRoutes.DELETE("/endpoints/:id", h.Workflow.DeleteEndpointHandler)
		}
	}

	return router
}
