package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/internal/application/query"
	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.HealthChecker == nil {
		s.writeJSON(c, http.StatusOK, gin.H{"status": "healthy", "uptime": s.Uptime().String()})
		return
	}
	status := s.deps.HealthChecker.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(c, code, status)
}

func (s *Server) handleLive(c *gin.Context) {
	s.writeJSON(c, http.StatusOK, gin.H{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// RISKS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRisks handles GET /api/v1/learners/:id/risks
func (s *Server) handleGetRisks(c *gin.Context) {
	userID := c.Param("id")
	risks, err := s.deps.AnalyzeRisks.Risks(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "risks", err)
		return
	}
	s.writeJSON(c, http.StatusOK, gin.H{"userId": userID, "risks": risks, "count": len(risks)})
}

// handleAnalyze handles POST /api/v1/learners/:id/analyze
func (s *Server) handleAnalyze(c *gin.Context) {
	res, err := s.deps.AnalyzeRisks.Handle(c.Request.Context(), command.AnalyzeRisksCommand{UserID: c.Param("id")})
	if err != nil {
		s.fail(c, "analyze", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// ALERTS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAlerts handles GET /api/v1/learners/:id/alerts
func (s *Server) handleGetAlerts(c *gin.Context) {
	res, err := s.deps.VisibleAlerts.Handle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "alerts", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// handleDismissAlert handles POST /api/v1/learners/:id/alerts/:alertId/dismiss
func (s *Server) handleDismissAlert(c *gin.Context) {
	a, err := s.deps.DismissAlert.Handle(c.Request.Context(), command.DismissAlertCommand{
		UserID:  c.Param("id"),
		AlertID: c.Param("alertId"),
	})
	if err != nil {
		s.fail(c, "dismiss_alert", err)
		return
	}
	s.writeJSON(c, http.StatusOK, gin.H{"alert": a, "dismissed": true})
}

// handleSweepAlerts handles POST /api/v1/alerts/sweep
func (s *Server) handleSweepAlerts(c *gin.Context) {
	res, err := s.deps.ClearExpiredAlerts.Handle(c.Request.Context())
	if err != nil {
		s.fail(c, "sweep_alerts", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVENTIONS
// ══════════════════════════════════════════════════════════════════════════════

type executeRequest struct {
	StrategyID string `json:"strategyId"`
	Planned    bool   `json:"planned"`
}

// handleExecuteIntervention handles POST /api/v1/learners/:id/interventions
func (s *Server) handleExecuteIntervention(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	exec, err := s.deps.ExecuteIntervention.Handle(c.Request.Context(), command.ExecuteInterventionCommand{
		UserID:     c.Param("id"),
		StrategyID: req.StrategyID,
		Planned:    req.Planned,
	})
	if err != nil {
		s.fail(c, "execute_intervention", err)
		return
	}
	s.writeJSON(c, http.StatusCreated, exec)
}

// handleGetInterventions handles GET /api/v1/learners/:id/interventions?status=
func (s *Server) handleGetInterventions(c *gin.Context) {
	res, err := s.deps.Interventions.Handle(c.Request.Context(), query.GetInterventionsQuery{
		UserID: c.Param("id"),
		Status: c.Query("status"),
	})
	if err != nil {
		s.fail(c, "interventions", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// updateRequest is the union of every lifecycle update body.
type updateRequest struct {
	CompletedActions int    `json:"completedActions"`
	Phase            string `json:"phase"`
	Milestone        string `json:"milestone"`

	Metric   string  `json:"metric"`
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Target   float64 `json:"target"`

	Summary string `json:"summary"`
	Reason  string `json:"reason"`

	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// handleInterventionUpdate handles POST /api/v1/interventions/:execId/<action>.
// An empty body is accepted for actions that need no input.
func (s *Server) handleInterventionUpdate(action command.UpdateAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				s.writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
				return
			}
		}

		cmd := command.UpdateInterventionCommand{
			ExecutionID:      c.Param("execId"),
			Action:           action,
			CompletedActions: req.CompletedActions,
			Phase:            req.Phase,
			Milestone:        req.Milestone,
			Metric: intervention.MonitoredMetric{
				Metric:   req.Metric,
				Baseline: req.Baseline,
				Current:  req.Current,
				Target:   req.Target,
			},
			Rating:  req.Rating,
			Comment: req.Comment,
		}
		switch action {
		case command.ActionComplete:
			cmd.Note = req.Summary
		case command.ActionFail:
			cmd.Note = req.Reason
		}

		exec, err := s.deps.UpdateIntervention.Handle(c.Request.Context(), cmd)
		if err != nil {
			s.fail(c, "intervention_"+string(action), err)
			return
		}
		s.writeJSON(c, http.StatusOK, exec)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTS, PROFILES & PATHS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetReport handles GET /api/v1/learners/:id/report?start=&end=&min_correlation=
// start and end must be given together; without them the default window is used.
func (s *Server) handleGetReport(c *gin.Context) {
	q := query.GenerateReportQuery{UserID: c.Param("id")}

	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		r, err := stats.ParseTimeRange(start, end)
		if err != nil {
			s.fail(c, "report", err)
			return
		}
		q.Range = r
	}
	if raw := c.Query("min_correlation"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.fail(c, "report", shared.WrapError("analytics", "Generate", shared.ErrInvalidFormat, "min_correlation must be a number", err))
			return
		}
		q.MinCorrelation = &v
	}

	res, err := s.deps.Report.Handle(c.Request.Context(), q)
	if err != nil {
		s.fail(c, "report", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// handleGetProfile handles GET /api/v1/learners/:id/profile and rebuilds the profile.
func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.deps.AnalyzeProfile.Handle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "profile", err)
		return
	}
	s.writeJSON(c, http.StatusOK, p)
}

// handleGetLatestProfile handles GET /api/v1/learners/:id/profile/latest
func (s *Server) handleGetLatestProfile(c *gin.Context) {
	p, err := s.deps.AnalyzeProfile.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "latest_profile", err)
		return
	}
	s.writeJSON(c, http.StatusOK, p)
}

// handleGetPath handles GET /api/v1/learners/:id/path
func (s *Server) handleGetPath(c *gin.Context) {
	res, err := s.deps.Path.Handle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "path", err)
		return
	}
	s.writeJSON(c, http.StatusOK, res)
}

// handleInvalidatePath handles DELETE /api/v1/learners/:id/path
func (s *Server) handleInvalidatePath(c *gin.Context) {
	if err := s.deps.Path.Invalidate(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, "invalidate_path", err)
		return
	}
	c.Status(http.StatusNoContent)
}
