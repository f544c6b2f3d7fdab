package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	sessiondomain "github.com/stablehq/paddock/internal/session/domain"
)

type createSessionRequest struct {
	RiderID     string    `json:"rider_id"`
	SessionType string    `json:"session_type"`
	SessionDate time.Time `json:"session_date"`
}

func (s *Server) CreateSession(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.sessionSvc.Create(c.Request.Context(), user.ID, sessiondomain.CreateRequest{
		RiderID:     req.RiderID,
		SessionType: req.SessionType,
		SessionDate: req.SessionDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) ListSessions(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req sessiondomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sessions, err := s.sessionSvc.ListForTrainer(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

// VerifySession is the rider-facing confirmation that a session happened.
func (s *Server) VerifySession(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sessionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, sessiondomain.ErrSessionNotFound)
		return
	}

	session, err := s.sessionSvc.Verify(c.Request.Context(), user.ID, sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) CancelSession(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sessionID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, sessiondomain.ErrSessionNotFound)
		return
	}

	session, err := s.sessionSvc.Cancel(c.Request.Context(), user.ID, sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}
