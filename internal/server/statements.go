package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditservice "github.com/stablehq/paddock/internal/audit/service"
	"github.com/stablehq/paddock/internal/period"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
)

func (s *Server) ListStatements(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	periodKey := strings.TrimSpace(c.Query("period"))
	if periodKey != "" {
		if _, err := period.Parse(periodKey); err != nil {
			AbortWithError(c, newValidationError("period", "invalid_period", "period must be YYYY-MM"))
			return
		}
	}

	statements, err := s.statementSvc.ListForTrainer(c.Request.Context(), user.ID, periodKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": statements})
}

func (s *Server) UpdateStatement(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	statementID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, statementdomain.ErrStatementNotFound)
		return
	}

	var req statementdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	statement, err := s.statementSvc.Update(c.Request.Context(), user.ID, statementID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditservice.Entry{
		Action:     "statement.update",
		TargetType: "billing_statement",
		TargetID:   statement.ID.String(),
		Metadata:   map[string]any{"payment_status": statement.PaymentStatus},
	})

	c.JSON(http.StatusOK, gin.H{"data": statement})
}

type runBillingRequest struct {
	TrainerID string `json:"trainer_id"`
	Period    string `json:"period"`
}

// RunBilling lets an operator trigger statement generation for one trainer and
// period, e.g. to backfill a month the scheduled worker missed. Generation
// stays idempotent, so re-running a period is safe.
func (s *Server) RunBilling(c *gin.Context) {
	var req runBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	trainerID, err := snowflake.ParseString(strings.TrimSpace(req.TrainerID))
	if err != nil {
		AbortWithError(c, newValidationError("trainer_id", "invalid_trainer_id", "invalid trainer id"))
		return
	}
	p, err := period.Parse(strings.TrimSpace(req.Period))
	if err != nil {
		AbortWithError(c, newValidationError("period", "invalid_period", "period must be YYYY-MM"))
		return
	}

	created, err := s.statementSvc.Generate(c.Request.Context(), trainerID, p)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditservice.Entry{
		Action:     "billing.run",
		TargetType: "billing_period",
		TargetID:   p.Key(),
		Metadata: map[string]any{
			"trainer_id": trainerID.String(),
			"created":    created,
		},
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"period":  p.Key(),
		"created": created,
	}})
}
