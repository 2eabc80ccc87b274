package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services"
	"github.com/huangang/ouranotify/pkg/response"
)

// SettingsReader exposes the stored user settings.
type SettingsReader interface {
	Get() models.Settings
}

// CommandHandler is the JSON counterpart of the Discord interactions
// endpoint, used by scripts and local testing.
type CommandHandler struct {
	runner   CommandRunner
	settings SettingsReader
}

func NewCommandHandler(runner CommandRunner, settings SettingsReader) *CommandHandler {
	return &CommandHandler{runner: runner, settings: settings}
}

type commandRequest struct {
	Options   map[string]interface{} `json:"options"`
	ChannelID string                 `json:"channel_id"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// List returns the registered command names.
func (h *CommandHandler) List(c *gin.Context) {
	response.Success(c, h.runner.Commands())
}

// Execute runs /api/commands/:name. An empty body runs the command
// without options; unknown names are 404.
func (h *CommandHandler) Execute(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if !h.known(name) {
		response.Error(c, response.NewNotFound("unknown command: "+name))
		return
	}

	var req commandRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	cmd := services.Command{Name: name, Options: make(map[string]string, len(req.Options))}
	for k, v := range req.Options {
		cmd.Options[k] = optionString(v)
	}
	if req.ChannelID != "" {
		ch := models.ChannelID(req.ChannelID)
		cmd.ChannelID = &ch
	}

	response.Success(c, h.runner.Execute(c.Request.Context(), cmd))
}

func (h *CommandHandler) known(name string) bool {
	for _, n := range h.runner.Commands() {
		if n == name {
			return true
		}
	}
	return false
}

// Message answers a free-text message.
func (h *CommandHandler) Message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, h.runner.HandleMessage(c.Request.Context(), req.Content))
}

func (h *CommandHandler) Settings(c *gin.Context) {
	response.Success(c, h.settings.Get())
}
