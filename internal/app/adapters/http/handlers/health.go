package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"
	"net/http"
	"runtime"
	"time"
)

type HealthResponse struct {
	Status         string   `json:"status"`
	Uptime         string   `json:"uptime"`
	CPUPercent     float64  `json:"cpu_percent"`
	MemoryMB       uint64   `json:"memory_mb"`
	Goroutines     int      `json:"goroutines"`
	JoinedChannels []string `json:"joined_channels"`
	BotListSize    int      `json:"bot_list_size"`
}

func (h *Handlers) HealthHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	percent, _ := cpu.Percent(0, false)
	if len(percent) == 0 {
		percent = append(percent, 0)
	}

	resp := HealthResponse{
		Status:         "ok",
		Uptime:         time.Since(h.started).Truncate(time.Second).String(),
		CPUPercent:     percent[0],
		MemoryMB:       m.Sys / 1024 / 1024,
		Goroutines:     runtime.NumGoroutine(),
		JoinedChannels: []string{},
	}
	if h.deps.Chat != nil {
		resp.JoinedChannels = h.deps.Chat.ConnectedChannels()
		if len(resp.JoinedChannels) == 0 {
			resp.Status = "degraded"
		}
	}
	if h.deps.Bots != nil {
		resp.BotListSize = h.deps.Bots.Len()
	}

	c.JSON(http.StatusOK, resp)
}
