package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/costing/session"
)

type updateRowRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type generateInvoiceRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// costingSession resolves the caller's console session, issuing a new token when the
// presented one is missing or expired.
func (s *Server) costingSession(c *gin.Context) *session.Session {
	sess, created := s.sessions.Get(orgIDFromContext(c), sessionToken(c))
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookieName, sess.Token, 0, "/", "", s.cfg.IsProduction(), true)
	}
	c.Header(HeaderSession, sess.Token)
	return sess
}

func (s *Server) ListRows(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ws := s.costingSession(c).Workspace()
	rows, err := s.costingSvc.Reconcile(c.Request.Context(), ws, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   rows,
		"totals": ws.View.Totals(),
	})
}

func (s *Server) UpdateRow(c *gin.Context) {
	uniqueID := strings.TrimSpace(c.Param("unique_id"))
	if uniqueID == "" {
		AbortWithError(c, newValidationError("unique_id", "invalid_unique_id", "invalid row id"))
		return
	}

	var req updateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ws := s.costingSession(c).Workspace()
	result, err := s.costingSvc.ApplyEdit(c.Request.Context(), ws, uniqueID, costingdomain.Edit{
		Field: costingdomain.EditField(strings.TrimSpace(req.Field)),
		Value: req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    result.Row,
		"created": result.Created,
		"totals":  ws.View.Totals(),
	})
}

// GenerateInvoice reports the outcome of the run even when it fails, so the
// console can tell a sync failure from an invoice failure.
func (s *Server) GenerateInvoice(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ws := s.costingSession(c).Workspace()
	outcome, err := s.costingSvc.GenerateInvoice(c.Request.Context(), ws, costingdomain.Period{
		Month: req.Month,
		Year:  req.Year,
	})
	if err != nil {
		_ = c.Error(err)
		status, payload := mapError(err)
		c.AbortWithStatusJSON(status, gin.H{
			"error":   payload,
			"outcome": outcome,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": outcome})
}

func (s *Server) ResetSession(c *gin.Context) {
	s.sessions.Reset(orgIDFromContext(c), sessionToken(c))
	c.SetCookie(sessionCookieName, "", -1, "/", "", s.cfg.IsProduction(), true)
	c.Status(http.StatusNoContent)
}

func parseFilter(c *gin.Context) (costingdomain.Filter, error) {
	var filter costingdomain.Filter

	month, err := parseRequiredInt(c.Query("month"), "month")
	if err != nil {
		return filter, err
	}
	year, err := parseRequiredInt(c.Query("year"), "year")
	if err != nil {
		return filter, err
	}
	projectID, err := parseIDParam(c.Query("project_id"), "project_id")
	if err != nil {
		return filter, err
	}
	locationID, err := parseIDParam(c.Query("location_id"), "location_id")
	if err != nil {
		return filter, err
	}

	filter.ProjectID = projectID
	filter.LocationID = locationID
	filter.Month = month
	filter.Year = year
	return filter, nil
}
