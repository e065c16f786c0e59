package routes

import (
	"net/http"
	"time"

	"pdf-qa-service/internal/auth"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/middleware"
	"pdf-qa-service/utils"

	"github.com/gin-gonic/gin"
)

// SetupSessionRoutes wires session lifecycle endpoints: create, inspect,
// reset, delete.
func SetupSessionRoutes(router *gin.Engine, cfg *config.Config, manager *session.Manager, issuer *auth.TokenIssuer, authMiddleware *middleware.AuthMiddleware) {
	sessions := router.Group("/sessions")

	// Create a new session and issue its token. The token authenticates
	// every other session endpoint.
	sessions.POST("", func(c *gin.Context) {
		sess, err := manager.Create(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create session", err.Error())
			return
		}

		token, exp, err := issuer.Issue(c.Request.Context(), sess.ID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue session token", err.Error())
			return
		}

		secure := cfg.GinMode == "release"
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("session_token", token, int(time.Until(exp).Seconds()), "/", "", secure, true)

		c.JSON(http.StatusCreated, gin.H{
			"session_id":    sess.ID,
			"session_token": token,
			"expires_at":    exp,
		})
	})

	authed := sessions.Group("")
	authed.Use(authMiddleware.RequireSession())

	// Session status snapshot.
	authed.GET("", func(c *gin.Context) {
		sess, err := manager.GetOrResume(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	// Reset drops the corpus, index and history but keeps the session
	// and its token alive.
	authed.POST("/reset", func(c *gin.Context) {
		sess, err := manager.GetOrResume(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}
		if err := sess.Reset(c.Request.Context()); err != nil {
			utils.RespondWithInternalError(c, "Failed to reset session", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "session reset", "session_id": sess.ID})
	})

	// Delete tears the session down entirely, including its token.
	authed.DELETE("", func(c *gin.Context) {
		sessionID := middleware.GetSessionID(c)
		if err := manager.Remove(c.Request.Context(), sessionID); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete session", err.Error())
			return
		}
		if err := issuer.Revoke(c.Request.Context(), sessionID); err != nil {
			utils.RespondWithInternalError(c, "Failed to revoke session token", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "session deleted", "session_id": sessionID})
	})
}
