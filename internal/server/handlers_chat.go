package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	historyDefaultLimit = 50
	historyMaxLimit     = 100

	// maxChatBodyBytes leaves room for a too_long message of escaped
	// multi-byte runes while refusing anything far past it.
	maxChatBodyBytes = 64 << 10
)

func (a *App) submitMessage(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxChatBodyBytes)
	var req chatRequest
	if !mustJSON(c, &req) {
		return
	}
	// Whitespace-only text is a valid message; the categorizer answers it.
	if req.Message == nil || *req.Message == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	if req.AgentID == nil || strings.TrimSpace(*req.AgentID) == "" {
		writeError(c, http.StatusBadRequest, "agent_id is required")
		return
	}

	result, err := a.runChatTurn(c.Request.Context(), chatTurnInput{
		User:    user,
		AgentID: strings.TrimSpace(*req.AgentID),
		Message: *req.Message,
	})
	if err != nil {
		a.writeHTTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:  result.Response,
		Category:  result.Category,
		Agent:     result.Agent.ID,
		AgentName: result.Agent.Name,
		Flagged:   result.Flagged,
		MessageID: result.MessageID,
	})
}

// fetchHistory returns past turns oldest first, optionally for one agent.
func (a *App) fetchHistory(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	agentID, ok := a.agentQuery(c)
	if !ok {
		return
	}

	limit := historyDefaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, historyMaxLimit)
	}

	records, err := a.store.RecentChatMessages(c.Request.Context(), user.ExternalID, agentID, limit)
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to load chat history", err))
		return
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if records == nil {
		records = []ChatMessage{}
	}
	c.JSON(http.StatusOK, historyResponse{Messages: records, Count: len(records)})
}

// clearHistory deletes the caller's turns, all of them or those with one
// agent.
func (a *App) clearHistory(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	agentID, ok := a.agentQuery(c)
	if !ok {
		return
	}

	deleted, err := a.store.DeleteChatMessages(c.Request.Context(), user.ExternalID, agentID)
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to clear chat history", err))
		return
	}
	a.log.Info("chat history cleared", "user_id", user.ExternalID, "agent", agentID, "deleted", deleted)
	c.JSON(http.StatusOK, clearHistoryResponse{DeletedCount: deleted})
}

// agentQuery reads the optional agent filter. An unknown agent is rejected
// rather than silently matching nothing.
func (a *App) agentQuery(c *gin.Context) (string, bool) {
	agentID := strings.TrimSpace(c.Query("agent"))
	if agentID != "" && !a.prompts.IsValidAgent(agentID) {
		writeError(c, http.StatusBadRequest, "Invalid agent")
		return "", false
	}
	return agentID, true
}
