package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/meetings"
	"github.com/spigell/lead-responder/internal/store"
	"github.com/spigell/lead-responder/internal/workflow"
)

// fail renders err as {"detail": ...} with a status derived from its type.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func statusFor(err error) int {
	var ve *ai.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicate), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrAIUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrQualification):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, format string, args ...any) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf(format, args...)})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id %q", c.Param("id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid %s %q", name, raw)
		return 0, false
	}
	return v, true
}

func (s *Server) listLeads(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	stage := leads.Stage(c.Query("stage"))
	if stage != "" && !stage.Valid() {
		badRequest(c, "unknown stage %q", stage)
		return
	}

	items, err := s.svc.ListLeads(c.Request.Context(), store.LeadFilter{Stage: stage, Limit: limit, Offset: offset})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createLead(c *gin.Context) {
	var in workflow.LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	lead, err := s.svc.CreateLead(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (s *Server) deleteLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteLead(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lead deleted successfully", "lead_id": id})
}

func (s *Server) importLeads(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "csv") && !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		badRequest(c, "File must be a CSV file")
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	result, err := s.svc.ImportCSV(c.Request.Context(), header.Filename, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) seedLeads(c *gin.Context) {
	result, err := s.svc.SeedSampleLeads(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) scoreLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := s.svc.ScoreLead(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Lead scored successfully",
		"lead_id":     result.LeadID,
		"total_score": result.TotalScore,
		"breakdown":   result.Breakdown.Breakdown,
		"factors":     result.Factors,
	})
}

func (s *Server) leadActivities(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	var types []leads.ActivityType
	if raw := c.Query("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, leads.ActivityType(t))
			}
		}
	}

	page, err := s.svc.Activities(c.Request.Context(), id, types, limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) qualifyLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	out, err := s.svc.QualifyLead(c.Request.Context(), id)
	if err != nil {
		s.logger.Warn("qualification failed", zap.Int64("lead_id", id), zap.Error(err))
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Lead qualified successfully",
		"lead_id":       out.LeadID,
		"verdict":       out.Verdict,
		"confidence":    out.Confidence,
		"reasoning":     out.Reasoning,
		"factors":       out.Factors,
		"stage":         out.Stage,
		"stage_changed": out.StageChanged,
	})
}

type outreachRequest struct {
	Context string `json:"context"`
}

func (s *Server) generateOutreach(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req outreachRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: %v", err)
			return
		}
	}

	out, err := s.svc.GenerateOutreach(c.Request.Context(), id, strings.TrimSpace(req.Context))
	if err != nil {
		s.logger.Warn("outreach generation failed", zap.Int64("lead_id", id), zap.Error(err))
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Outreach generated successfully",
		"lead_id":  out.LeadID,
		"subject":  out.Subject,
		"body":     out.Body,
		"variants": out.Variants,
	})
}

func (s *Server) listCompanies(c *gin.Context) {
	items, err := s.svc.Companies(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) scoringConfig(c *gin.Context) {
	cfg, err := s.svc.ScoringConfig(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type scoringConfigRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Weights     map[string]any `json:"weights" binding:"required"`
}

func (s *Server) updateScoringConfig(c *gin.Context) {
	var req scoringConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	cfg, err := s.svc.UpdateScoringConfig(c.Request.Context(), req.Name, req.Description, req.Weights)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type evaluationRequest struct {
	IncludeLeads []string `json:"include_leads"`
}

type evaluationResponse struct {
	EvaluationID int64 `json:"evaluation_id"`
	store.EvaluationRun
}

func (s *Server) runEvaluation(c *gin.Context) {
	var req evaluationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: %v", err)
			return
		}
	}

	run, err := s.svc.RunEvaluation(c.Request.Context(), req.IncludeLeads)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evaluationResponse{EvaluationID: run.ID, EvaluationRun: *run})
}

func (s *Server) listEvaluations(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	runs, err := s.svc.EvaluationRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]evaluationResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, evaluationResponse{EvaluationID: r.ID, EvaluationRun: r})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getEvaluation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	run, err := s.svc.EvaluationRun(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evaluationResponse{EvaluationID: run.ID, EvaluationRun: run})
}

type slotsRequest struct {
	Timezone        string `json:"timezone"`
	DurationMinutes int    `json:"duration_minutes"`
	LeadID          *int64 `json:"lead_id"`
}

func (s *Server) suggestSlots(c *gin.Context) {
	var req slotsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: %v", err)
			return
		}
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	c.JSON(http.StatusOK, meetings.SuggestSlots(s.now(), req.Timezone, req.DurationMinutes, meetings.DefaultSlots))
}

type icsRequest struct {
	StartDatetime  string   `json:"start_datetime" binding:"required"`
	EndDatetime    string   `json:"end_datetime" binding:"required"`
	Subject        string   `json:"subject" binding:"required"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Attendees      []string `json:"attendees"`
	OrganizerEmail string   `json:"organizer_email"`
	OrganizerName  string   `json:"organizer_name"`
}

func (s *Server) generateICS(c *gin.Context) {
	var req icsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	start, err := meetings.ParseTime(req.StartDatetime)
	if err != nil {
		s.fail(c, err)
		return
	}
	end, err := meetings.ParseTime(req.EndDatetime)
	if err != nil {
		s.fail(c, err)
		return
	}

	invite, err := meetings.GenerateICS(meetings.Event{
		Start:          start,
		End:            end,
		Subject:        req.Subject,
		Description:    req.Description,
		Location:       req.Location,
		Attendees:      req.Attendees,
		OrganizerEmail: req.OrganizerEmail,
		OrganizerName:  req.OrganizerName,
	}, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+invite.Filename)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(invite.Content))
}
