package handlers

import (
	"errors"
	"github.com/gin-gonic/gin"
	"log/slog"
	"modbot/internal/app/domain/velocity"
	"net/http"
)

type VelocityResponse struct {
	Channels     int    `json:"channels"`
	ColdStarts   int    `json:"cold_starts"`
	NewFollowers int    `json:"new_followers"`
	Analysed     int    `json:"analysed"`
	Flagged      int    `json:"flagged"`
	Banned       int    `json:"banned"`
	BanFailures  int    `json:"ban_failures"`
	Duration     string `json:"duration"`
}

// RunVelocityHandler runs a follow velocity pass right away over the joined
// channels.
func (h *Handlers) RunVelocityHandler(c *gin.Context) {
	if h.deps.Velocity == nil || h.deps.Chat == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "velocity analysis disabled"})
		return
	}

	res, err := h.deps.Velocity.RunPass(c.Request.Context(), h.deps.Chat.ConnectedChannels())
	switch {
	case errors.Is(err, velocity.ErrPassInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.Error("Manual velocity pass failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Manual velocity pass finished", slog.String("result", res.String()))
	c.JSON(http.StatusOK, VelocityResponse{
		Channels:     res.Channels,
		ColdStarts:   res.ColdStarts,
		NewFollowers: res.NewFollowers,
		Analysed:     res.Analysed,
		Flagged:      len(res.Flagged),
		Banned:       res.Banned,
		BanFailures:  res.BanFailures,
		Duration:     res.Duration.String(),
	})
}

func (h *Handlers) RefreshBotListHandler(c *gin.Context) {
	if h.deps.Refresher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "bot list refresh disabled"})
		return
	}

	n, err := h.deps.Refresher.Refresh(c.Request.Context())
	if err != nil {
		h.log.Error("Manual bot list refresh failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"size": n})
}
