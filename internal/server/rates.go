package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditservice "github.com/stablehq/paddock/internal/audit/service"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
)

type upsertRateRequest struct {
	ServiceType string `json:"service_type"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) UpsertRate(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req upsertRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rate, err := s.rateSvc.Upsert(c.Request.Context(), user.ID, ratecarddomain.UpsertRequest{
		ServiceType: strings.TrimSpace(req.ServiceType),
		Currency:    strings.TrimSpace(req.Currency),
		AmountCents: req.AmountCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditservice.Entry{
		Action:     "rate.upsert",
		TargetType: "rate_entry",
		TargetID:   rate.ID.String(),
		Metadata: map[string]any{
			"service_type": rate.ServiceType,
			"currency":     rate.Currency,
			"amount_cents": rate.AmountCents,
		},
	})

	c.JSON(http.StatusOK, gin.H{"data": rate})
}

func (s *Server) ListRates(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rates, err := s.rateSvc.List(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (s *Server) DeleteRate(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	serviceType := strings.TrimSpace(c.Param("serviceType"))
	if err := s.rateSvc.Delete(c.Request.Context(), user.ID, serviceType); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditservice.Entry{
		Action:     "rate.delete",
		TargetType: "rate_entry",
		Metadata:   map[string]any{"service_type": serviceType},
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
