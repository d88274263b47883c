package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Privacy rule for this handler: never log message content, never hand
// text to the analytics emitter.

const (
	emptyMessageReply = "Envoyez un message."
	serverErrorReply  = "Une erreur s'est produite."
)

func (a *App) chat(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("chat handler panic: %v", r)
			c.JSON(http.StatusInternalServerError, gin.H{
				"reply": serverErrorReply,
				"mode":  ModeAsk,
			})
		}
	}()

	var payload chatRequest
	if !mustJSON(c, &payload) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"reply": serverErrorReply,
			"mode":  ModeAsk,
		})
		return
	}

	messages := make([]ChatMessage, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		messages = append(messages, m)
	}
	if len(messages) == 0 && strings.TrimSpace(payload.Message) != "" {
		messages = []ChatMessage{{Role: "user", Content: payload.Message}}
	}
	if len(messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"reply": emptyMessageReply})
		return
	}

	reply := a.pipeline.Respond(c.Request.Context(), messages, payload.Session)

	a.emitAnalytics(c, payload, messages, reply)

	c.JSON(http.StatusOK, reply)
}

// emitAnalytics reports lifecycle counters. Start fires on a fresh
// conversation, Step on every produced reply, End when the session ends.
func (a *App) emitAnalytics(c *gin.Context, payload chatRequest, messages []ChatMessage, reply Reply) {
	anonID := strings.TrimSpace(payload.AnonID)
	if anonID == "" {
		return
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx := c.Request.Context()
	if payload.Session == nil && !hasAssistantTurn(messages) {
		a.analytics.Start(ctx, anonID, sessionID, c.Request.UserAgent())
	}
	a.analytics.Step(ctx, anonID, sessionID)
	if reply.Mode == ModeEnded {
		a.analytics.End(ctx, anonID, sessionID, "")
	}
}

func hasAssistantTurn(messages []ChatMessage) bool {
	for _, m := range messages {
		if m.Role == "assistant" {
			return true
		}
	}
	return false
}
