package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
	"github.com/pneumonia-risk-mcp-server/internal/middleware"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// SymptomInfo is one row of the symptom calibration listing.
type SymptomInfo struct {
	ID                string  `json:"id"`
	Sensitivity       float64 `json:"sensitivity"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// BatchRequest is the body of POST /api/v1/assessments/batch.
type BatchRequest struct {
	Requests []service.AssessmentRequest `json:"requests" binding:"required"`
	Workers  int                         `json:"workers,omitempty"`
}

// BatchResponse reports every item in request order.
type BatchResponse struct {
	Results   []service.BatchItem `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// FeedbackPage is the body of GET /api/v1/feedback.
type FeedbackPage struct {
	Feedback []*feedback.Feedback `json:"feedback"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"profiles":  s.service.Registry().Names(),
		"feedback":  s.feedback != nil,
	})
}

func (s *Server) handleListSymptoms(c *gin.Context) {
	profile, err := s.service.Registry().Get(c.Query("profile"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	table := profile.Symptoms()
	symptoms := make([]SymptomInfo, 0, len(table))
	for _, id := range profile.SymptomIDs() {
		pair := table[id]
		symptoms = append(symptoms, SymptomInfo{
			ID:                id,
			Sensitivity:       pair.Sensitivity,
			FalsePositiveRate: pair.FalsePositiveRate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":         profile.Name(),
		"symptoms":        symptoms,
		"default_symptom": profile.DefaultSymptom(),
	})
}

func (s *Server) handleListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":  s.service.Registry().DefaultName(),
		"profiles": s.service.Registry().Summaries(),
	})
}

func (s *Server) handleAssess(c *gin.Context) {
	var req service.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.service.Assess(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	record, err := s.service.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleListAssessments(c *gin.Context) {
	limit, offset := page(c)
	records, err := s.service.History(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []*domain.AssessmentRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"assessments": records, "limit": limit, "offset": offset})
}

func (s *Server) handleAssessBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.config.BatchWorkers
	}

	items, err := s.service.AssessBatch(c.Request.Context(), req.Requests, workers)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := BatchResponse{Results: items}
	for _, item := range items {
		if item.Err != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePosterior(c *gin.Context) {
	var req service.PosteriorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.service.Posterior(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) requireFeedback(c *gin.Context) bool {
	if s.feedback != nil {
		return true
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, domain.NewMCPError(
		domain.ErrDatabaseError, "feedback store is not configured", "", c.GetString(middleware.CorrelationIDKey)))
	return false
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.badRequest(c, err)
		return
	}
	fb.ID = 0

	if err := s.feedback.Save(c.Request.Context(), &fb); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}
	ctx := c.Request.Context()

	if id := c.Query("assessment_id"); id != "" {
		fb, err := s.feedback.Get(ctx, id)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if fb == nil {
			s.writeError(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, fb)
		return
	}

	limit, offset := page(c)
	list, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if list == nil {
		list = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, FeedbackPage{Feedback: list, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="assessment-feedback.json"`)
	if err := s.feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Feedback export failed")
	}
}

func (s *Server) handleDeleteFeedback(c *gin.Context) {
	if !s.requireFeedback(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.writeError(c, domain.NewValidationError("id", "must be an integer", c.Param("id")))
		return
	}
	if err := s.feedback.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// page reads limit and offset, falling back to defaults when out of range.
func page(c *gin.Context) (limit, offset int) {
	limit = queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
