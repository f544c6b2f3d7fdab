package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	horsecaredomain "github.com/stablehq/paddock/internal/horsecare/domain"
)

func (s *Server) CreateHorse(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req horsecaredomain.CreateHorseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	horse, err := s.horseSvc.CreateHorse(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": horse})
}

func (s *Server) ListHorses(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	horses, err := s.horseSvc.ListHorses(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": horses})
}

func (s *Server) CreateCareEvent(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req horsecaredomain.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.horseSvc.CreateEvent(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) ListCareEvents(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	horseID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, horsecaredomain.ErrHorseNotFound)
		return
	}

	events, err := s.horseSvc.ListEvents(c.Request.Context(), user.ID, horseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

type updateCareEventRequest struct {
	Status string `json:"status"`
}

// UpdateCareEvent applies a status transition. Completing a recurring event
// returns the successor occurrence alongside the completed one.
func (s *Server) UpdateCareEvent(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	eventID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, horsecaredomain.ErrEventNotFound)
		return
	}

	var req updateCareEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	switch horsecaredomain.EventStatus(strings.TrimSpace(req.Status)) {
	case horsecaredomain.EventStatusCompleted:
		event, successor, err := s.horseSvc.CompleteEvent(c.Request.Context(), user.ID, eventID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"event":      event,
			"next_event": successor,
		}})
	case horsecaredomain.EventStatusCancelled:
		event, err := s.horseSvc.CancelEvent(c.Request.Context(), user.ID, eventID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"event": event}})
	default:
		AbortWithError(c, newValidationError("status", "invalid_status", "status must be completed or cancelled"))
	}
}
