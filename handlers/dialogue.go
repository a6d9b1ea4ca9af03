package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"schedulai/config"
	"schedulai/services/dialogue"
	"schedulai/utils"
)

// DialogueHandler exposes the conversation engine over HTTP.
type DialogueHandler struct {
	Engine dialogue.Engine
	Logger *zap.Logger
}

func NewDialogueHandler(engine dialogue.Engine, logger *zap.Logger) *DialogueHandler {
	return &DialogueHandler{Engine: engine, Logger: logger}
}

// turnContext bounds a turn by the configured external-call timeout so a
// stuck model or calendar call cannot hold the request open indefinitely.
func turnContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(config.AppConfig.ExternalCallTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// Chat handles one user utterance for the session. A missing sessionID in
// the path is replaced with a fresh one so clients can open a conversation
// with their first message.
func (h *DialogueHandler) Chat(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if sessionID == "" || sessionID == "new" {
		sessionID = uuid.New().String()
	}

	var input struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if strings.TrimSpace(input.Message) == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "message must not be empty")
		return
	}

	ctx, cancel := turnContext(c)
	defer cancel()
	result, err := h.Engine.HandleUtterance(ctx, sessionID, input.Message)
	if err != nil {
		h.Logger.Error("dialogue turn failed",
			zap.String("sessionID", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "failed to process message", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"turn":      result,
	})
}

// Select books one of the previously proposed slots.
func (h *DialogueHandler) Select(c *gin.Context) {
	sessionID := c.Param("sessionID")

	var input struct {
		Slot int `json:"slot"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	ctx, cancel := turnContext(c)
	defer cancel()
	result, err := h.Engine.HandleSelection(ctx, sessionID, input.Slot)
	if err != nil {
		switch {
		case dialogue.IsSessionNotFound(err):
			utils.JSONError(c, http.StatusNotFound, "session not found", err.Error())
		case dialogue.IsInvalidSelection(err):
			utils.JSONError(c, http.StatusBadRequest, "invalid selection", err.Error())
		default:
			h.Logger.Error("slot selection failed",
				zap.String("sessionID", sessionID), zap.Error(err))
			utils.JSONError(c, http.StatusBadGateway, "failed to book slot", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"turn":      result,
	})
}

// Cancel discards the session and all accumulated details.
func (h *DialogueHandler) Cancel(c *gin.Context) {
	sessionID := c.Param("sessionID")

	if err := h.Engine.CancelSession(c.Request.Context(), sessionID); err != nil {
		h.Logger.Error("session cancel failed",
			zap.String("sessionID", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to cancel session", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"status":    "cancelled",
	})
}
