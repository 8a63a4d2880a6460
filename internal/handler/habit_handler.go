package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esteemed/backend/internal/middleware"
	"esteemed/backend/internal/service"
)

type HabitHandler struct {
	habitService *service.HabitService
}

type relapseRequest struct {
	Reason string `json:"reason"`
}

type logUrgeRequest struct {
	Trigger   string `json:"trigger"`
	Victory   string `json:"victory"`
	RequestID string `json:"requestId"`
}

func NewHabitHandler(habitService *service.HabitService) *HabitHandler {
	return &HabitHandler{habitService: habitService}
}

func (h *HabitHandler) GetProfile(c *gin.Context) {
	profile, apiErr := h.habitService.GetProfile(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *HabitHandler) StartStreak(c *gin.Context) {
	streak, apiErr := h.habitService.StartStreak(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}

func (h *HabitHandler) ResetStreak(c *gin.Context) {
	var req relapseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeInvalidJSON(c)
			return
		}
	}

	result, apiErr := h.habitService.Relapse(c.Request.Context(), middleware.UserID(c), req.Reason)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HabitHandler) LogUrge(c *gin.Context) {
	var req logUrgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.habitService.LogUrge(
		c.Request.Context(),
		middleware.UserID(c),
		req.Trigger,
		req.Victory,
		req.RequestID,
	)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"urge": result.Urge})
}

func (h *HabitHandler) ListUrges(c *gin.Context) {
	urges, apiErr := h.habitService.ListUrges(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"urges": urges})
}

func (h *HabitHandler) ListRelapses(c *gin.Context) {
	relapses, apiErr := h.habitService.ListRelapses(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relapses": relapses})
}

func (h *HabitHandler) GetStats(c *gin.Context) {
	view, apiErr := h.habitService.GetStats(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": view})
}

func (h *HabitHandler) RecordUsage(c *gin.Context) {
	profile, apiErr := h.habitService.RecordUsage(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *HabitHandler) RecordPanic(c *gin.Context) {
	profile, apiErr := h.habitService.RecordPanic(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *HabitHandler) WipeAll(c *gin.Context) {
	if apiErr := h.habitService.WipeAll(c.Request.Context(), middleware.UserID(c)); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
