package routes

import (
	"errors"
	"net/http"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/chunker"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/utils"

	"github.com/gin-gonic/gin"
)

// respondWithDomainError maps pipeline errors onto HTTP statuses: invalid
// configuration is the caller's fault, a missing index is a sequencing
// conflict, and backend failures are upstream errors the caller may retry.
func respondWithDomainError(c *gin.Context, err error) {
	var cfgErr *chunker.ConfigError
	var embErr *ai.EmbeddingError
	var upErr *ai.UpstreamError

	switch {
	case errors.As(err, &cfgErr):
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_config", cfgErr.Error(), nil)
	case errors.Is(err, session.ErrNotReady):
		utils.RespondWithError(c, http.StatusConflict, "not_ready",
			"No documents have been processed for this session yet", nil)
	case errors.As(err, &embErr):
		utils.RespondWithError(c, http.StatusBadGateway, "embedding_error", embErr.Error(), nil)
	case errors.As(err, &upErr):
		utils.RespondWithError(c, http.StatusBadGateway, "upstream_error", upErr.Error(), nil)
	default:
		utils.RespondWithInternalError(c, "Unexpected error", err.Error())
	}
}
