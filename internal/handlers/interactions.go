package handlers

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services"
	"github.com/huangang/ouranotify/pkg/logger"
	"github.com/huangang/ouranotify/pkg/response"
)

const (
	interactionPing               = 1
	interactionApplicationCommand = 2

	responsePong            = 1
	responseDeferredMessage = 5

	followUpTimeout = 2 * time.Minute
	maxBodyBytes    = 1 << 20
)

// CommandRunner executes slash commands and free-text messages.
type CommandRunner interface {
	Execute(ctx context.Context, cmd services.Command) models.Reply
	HandleMessage(ctx context.Context, text string) models.Reply
	Commands() []string
}

// InteractionResponder edits the deferred answer of an interaction.
type InteractionResponder interface {
	EditInteractionResponse(ctx context.Context, appID, token string, reply models.Reply) error
}

type interactionOption struct {
	Name    string              `json:"name"`
	Type    int                 `json:"type"`
	Value   interface{}         `json:"value"`
	Options []interactionOption `json:"options"`
}

type interaction struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Type          int    `json:"type"`
	Token         string `json:"token"`
	ChannelID     string `json:"channel_id"`
	Data          struct {
		Name    string              `json:"name"`
		Options []interactionOption `json:"options"`
	} `json:"data"`
}

// InteractionHandler serves the Discord interactions endpoint.
type InteractionHandler struct {
	publicKey ed25519.PublicKey
	runner    CommandRunner
	responder InteractionResponder
	appID     string

	wg sync.WaitGroup
}

// NewInteractionHandler decodes the hex encoded application public key.
func NewInteractionHandler(publicKeyHex, appID string, runner CommandRunner, responder InteractionResponder) (*InteractionHandler, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode discord public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &InteractionHandler{
		publicKey: ed25519.PublicKey(key),
		runner:    runner,
		responder: responder,
		appID:     appID,
	}, nil
}

// VerifySignature checks the Ed25519 signature Discord puts over the
// timestamp followed by the raw body.
func VerifySignature(publicKey ed25519.PublicKey, signatureHex, timestamp string, body []byte) bool {
	if signatureHex == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(publicKey, msg, sig)
}

func (h *InteractionHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		response.Error(c, response.Wrap(http.StatusBadRequest, "failed to read request body", err))
		return
	}

	if !VerifySignature(h.publicKey, c.GetHeader("X-Signature-Ed25519"), c.GetHeader("X-Signature-Timestamp"), body) {
		logger.Warn().Str("ip", c.ClientIP()).Msg("[Interaction] invalid request signature")
		response.Unauthorized(c, "invalid request signature")
		return
	}

	var in interaction
	if err := decodeJSON(body, &in); err != nil {
		response.BadRequest(c, "invalid interaction payload")
		return
	}

	switch in.Type {
	case interactionPing:
		c.JSON(http.StatusOK, gin.H{"type": responsePong})
	case interactionApplicationCommand:
		cmd := services.Command{Name: in.Data.Name, Options: flattenOptions(in.Data.Options)}
		if in.ChannelID != "" {
			ch := models.ChannelID(in.ChannelID)
			cmd.ChannelID = &ch
		}
		// Discord must see the deferral before the follow-up edits @original.
		c.JSON(http.StatusOK, gin.H{"type": responseDeferredMessage})
		c.Writer.Flush()
		h.followUp(in, cmd, c.GetString(logger.RequestIDKey))
	default:
		response.BadRequest(c, "unsupported interaction type "+strconv.Itoa(in.Type))
	}
}

// followUp runs the command after the deferred answer went out and edits
// the original response with the result.
func (h *InteractionHandler) followUp(in interaction, cmd services.Command, requestID string) {
	appID := in.ApplicationID
	if appID == "" {
		appID = h.appID
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Str("request_id", requestID).Msg("[Interaction] command panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), followUpTimeout)
		defer cancel()

		reply := h.runner.Execute(ctx, cmd)
		if err := h.responder.EditInteractionResponse(ctx, appID, in.Token, reply); err != nil {
			logger.Error().Err(err).Str("command", cmd.Name).Str("request_id", requestID).
				Msg("[Interaction] failed to edit the deferred response")
			return
		}
		logger.Info().Str("command", cmd.Name).Str("request_id", requestID).Msg("[Interaction] command answered")
	}()
}

// Wait blocks until every pending follow-up finished.
func (h *InteractionHandler) Wait() {
	h.wg.Wait()
}

// flattenOptions turns the option tree into name/value strings. Subcommand
// groups contribute their leaf options.
func flattenOptions(opts []interactionOption) map[string]string {
	out := make(map[string]string)
	var walk func([]interactionOption)
	walk = func(opts []interactionOption) {
		for _, o := range opts {
			if len(o.Options) > 0 {
				walk(o.Options)
				continue
			}
			out[o.Name] = optionString(o.Value)
		}
	}
	walk(opts)
	return out
}

func optionString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(body []byte, v interface{}) error {
	if len(body) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, v)
}
