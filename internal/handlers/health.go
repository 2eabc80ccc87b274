package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and the shape of the running bot.
type HealthHandler struct {
	started   time.Time
	commands  int
	bot       bool
	scheduler func() int
}

// NewHealthHandler takes the number of registered commands, whether a bot
// token is configured, and a func returning the scheduled job count.
func NewHealthHandler(commands int, bot bool, scheduler func() int) *HealthHandler {
	return &HealthHandler{started: time.Now(), commands: commands, bot: bot, scheduler: scheduler}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	jobs := 0
	if h.scheduler != nil {
		jobs = h.scheduler()
	}
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "ouranotify",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"components": gin.H{
			"commands":       h.commands,
			"discord_bot":    h.bot,
			"scheduler_jobs": jobs,
		},
	})
}
