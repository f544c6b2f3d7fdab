package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	competitiondomain "github.com/stablehq/paddock/internal/competition/domain"
)

func (s *Server) CreateCompetition(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req competitiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	competition, err := s.compSvc.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": competition})
}

func (s *Server) GetCompetition(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	competitionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, competitiondomain.ErrCompetitionNotFound)
		return
	}

	competition, err := s.compSvc.GetByID(c.Request.Context(), user.ID, competitionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": competition})
}

type setRiderPaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (s *Server) SetCompetitionRiderPayment(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	competitionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, competitiondomain.ErrCompetitionNotFound)
		return
	}
	riderID, err := snowflake.ParseString(strings.TrimSpace(c.Param("riderId")))
	if err != nil {
		AbortWithError(c, competitiondomain.ErrRiderEntryNotFound)
		return
	}

	var req setRiderPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rider, err := s.compSvc.SetRiderPaymentStatus(
		c.Request.Context(),
		user.ID,
		competitionID,
		riderID,
		competitiondomain.PaymentStatus(strings.TrimSpace(req.PaymentStatus)),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rider})
}
