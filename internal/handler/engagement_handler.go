package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esteemed/backend/internal/middleware"
	"esteemed/backend/internal/service"
)

type EngagementHandler struct {
	engagementService *service.EngagementService
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

type trackVisitRequest struct {
	VisitorID string `json:"visitorId"`
	UserAgent string `json:"userAgent"`
}

type earlyAccessRequest struct {
	Email string `json:"email"`
}

func NewEngagementHandler(engagementService *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

// SubmitFeedback accepts feedback with or without a session; an anonymous
// submission simply has no user attached.
func (h *EngagementHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	var userID *string
	if id := middleware.UserID(c); id != "" {
		userID = &id
	}

	if apiErr := h.engagementService.SubmitFeedback(c.Request.Context(), userID, req.Feedback); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Feedback received"})
}

func (h *EngagementHandler) TrackVisit(c *gin.Context) {
	var req trackVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.GetHeader("User-Agent")
	}

	visit, apiErr := h.engagementService.TrackVisit(c.Request.Context(), service.VisitInput{
		VisitorID: req.VisitorID,
		UserAgent: userAgent,
		IP:        c.GetHeader("X-Forwarded-For"),
		Country:   c.GetHeader("X-Geo-Country"),
		City:      c.GetHeader("X-Geo-City"),
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": visit})
}

func (h *EngagementHandler) SignUpEarlyAccess(c *gin.Context) {
	var req earlyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	signup, apiErr := h.engagementService.SignUpEarlyAccess(c.Request.Context(), middleware.UserID(c), req.Email)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": signup})
}
