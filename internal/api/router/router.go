package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-hoarder/internal/api/handler"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps))

	jobPostingHandler := handler.NewJobPostingHandler(deps)
	jobPageHandler := handler.NewJobPageHandler(deps)

	v1 := r.Group("/api/v1")
	{
		postings := v1.Group("/job-postings")
		{
			postings.POST("", jobPostingHandler.CreateJobPosting)
			postings.GET("", jobPostingHandler.ListJobPostings)
			postings.GET("/:id", jobPostingHandler.GetJobPosting)
			postings.PATCH("/:id", jobPostingHandler.UpdateJobPosting)
			postings.DELETE("/:id", jobPostingHandler.DeleteJobPosting)
			postings.GET("/:id/enrichment", jobPostingHandler.GetEnrichment)
			postings.PATCH("/:id/enrichment", jobPostingHandler.UpdateEnrichment)
			postings.DELETE("/:id/enrichment", jobPostingHandler.DeleteEnrichment)
			postings.POST("/:id/enrich", jobPostingHandler.Enrich)
		}

		companies := v1.Group("/companies")
		{
			companies.GET("", jobPostingHandler.ListCompanies)
			companies.GET("/:id", jobPostingHandler.GetCompany)
			companies.PATCH("/:id", jobPostingHandler.UpdateCompany)
			companies.DELETE("/:id", jobPostingHandler.DeleteCompany)
			companies.GET("/:id/job-postings", jobPostingHandler.ListCompanyJobPostings)
		}

		enrichments := v1.Group("/enrichments")
		{
			enrichments.GET("", jobPostingHandler.ListEnrichments)
			enrichments.GET("/:id", jobPostingHandler.GetEnrichmentByID)
		}

		// Endpoints used by the browser extension
		collection := v1.Group("/job-collection")
		{
			collection.POST("/page", jobPageHandler.SavePage)
			collection.GET("/page", jobPageHandler.FindPage)
			collection.GET("/page/:page_id", jobPageHandler.GetPage)
			collection.PATCH("/page/:page_id", jobPageHandler.UpdatePage)
			collection.DELETE("/page/:page_id", jobPageHandler.DeletePage)
			collection.POST("/page/:page_id/promote", jobPageHandler.PromotePage)
			collection.GET("/pages", jobPageHandler.ListPages)
		}
	}

	return r
}

func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps.HealthChecks))
		for name, checker := range deps.HealthChecks {
			if err := checker.HealthCheck(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": deps.ServiceName,
			"checks":  checks,
		})
	}
}
