package router

import (
	"net/http"

	"github.com/cuongbtq/jq/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "jq-api-service",
		})
	})

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a job request
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs/:job_id/results - Archived attempts of a job
			jobs.GET("/:job_id/results", jobHandler.GetJobResults)
		}

		// GET /api/v1/results - Archived results across jobs
		v1.GET("/results", jobHandler.ListResults)
	}

	return r
}
