package routes

import (
	"net/http"
	"time"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/middleware"
	"pdf-qa-service/models"
	"pdf-qa-service/utils"

	"github.com/gin-gonic/gin"
)

// SetupChatRoutes wires question answering and history retrieval.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, manager *session.Manager, metrics *telemetry.Metrics, authMiddleware *middleware.AuthMiddleware) {
	chat := router.Group("/sessions")
	chat.Use(authMiddleware.RequireSession())

	chat.POST("/ask", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		sess, err := manager.GetOrResume(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		start := time.Now()
		answer, err := sess.Ask(c.Request.Context(), req.Question)
		if err != nil {
			if metrics != nil {
				metrics.RecordAsk(time.Since(start).Seconds(), "error")
			}
			respondWithDomainError(c, err)
			return
		}
		if metrics != nil {
			metrics.RecordAsk(time.Since(start).Seconds(), "ok")
			metrics.RecordTokensUsed(int64(answer.TokensUsed), "gemini")
		}

		sources := make([]models.SourceRef, 0, len(answer.Retrieved))
		for _, r := range answer.Retrieved {
			sources = append(sources, models.SourceRef{
				DocumentID: r.Payload.DocumentID,
				Source:     r.Payload.Source,
				Score:      r.Score,
			})
		}

		c.JSON(http.StatusOK, models.AskResponse{
			Answer:     answer.Text,
			TokensUsed: answer.TokensUsed,
			Sources:    sources,
			Timestamp:  time.Now(),
			LatencyMS:  int(time.Since(start).Milliseconds()),
		})
	})

	chat.GET("/history", func(c *gin.Context) {
		sess, err := manager.GetOrResume(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		turns := sess.History()
		total := 0
		for _, t := range turns {
			total += t.TokenCost
		}

		c.JSON(http.StatusOK, models.HistoryResponse{
			SessionID:   sess.ID,
			Turns:       turns,
			TotalTokens: total,
		})
	})
}
