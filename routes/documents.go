package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/queue"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/middleware"
	"pdf-qa-service/models"
	"pdf-qa-service/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SetupDocumentRoutes wires document upload and listing. Small uploads are
// processed inline and replace the session corpus; uploads past the sync
// limit are queued to the ingestion worker and appended when done.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, manager *session.Manager, store *session.Store, registry *ingest.Registry, queueClient *asynq.Client, metrics *telemetry.Metrics, authMiddleware *middleware.AuthMiddleware) {
	docs := router.Group("/sessions/documents")
	docs.Use(authMiddleware.RequireSession())

	docs.POST("", func(c *gin.Context) {
		sess, err := manager.GetOrResume(c.Request.Context(), middleware.GetSessionID(c))
		if err != nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				"Upload exceeds maximum size", nil)
			return
		}
		form := c.Request.MultipartForm
		if form == nil || len(form.File["documents"]) == 0 {
			utils.RespondWithBadRequest(c, "No files provided; use multipart field \"documents\"", nil)
			return
		}

		var (
			files    []ingest.File
			queued   []gin.H
			failures []ingest.Failure
		)
		seen := make(map[string]string) // file hash -> first file name
		for _, header := range form.File["documents"] {
			name := filepath.Base(header.Filename)
			if !registry.Supported(name) {
				failures = append(failures, ingest.Failure{
					Source: name,
					Error:  fmt.Sprintf("unsupported file type %q", filepath.Ext(name)),
				})
				continue
			}
			if header.Size > cfg.MaxFileSize {
				failures = append(failures, ingest.Failure{Source: name, Error: "file exceeds maximum size"})
				continue
			}

			f, err := header.Open()
			if err != nil {
				failures = append(failures, ingest.Failure{Source: name, Error: err.Error()})
				continue
			}

			if header.Size > cfg.SyncProcessingLimit {
				// Too big to block the request on: persist to shared
				// storage and hand off to the worker.
				item, err := enqueueIngestion(c, cfg, store, queueClient, sess.ID, name, f)
				f.Close()
				if err != nil {
					failures = append(failures, ingest.Failure{Source: name, Error: err.Error()})
					continue
				}
				queued = append(queued, item)
				continue
			}

			data, err := io.ReadAll(io.LimitReader(f, cfg.MaxFileSize))
			f.Close()
			if err != nil {
				failures = append(failures, ingest.Failure{Source: name, Error: err.Error()})
				continue
			}
			hash := utils.HashBytes(data)
			if first, dup := seen[hash]; dup {
				failures = append(failures, ingest.Failure{
					Source: name,
					Error:  fmt.Sprintf("duplicate of %s, skipped", first),
				})
				continue
			}
			seen[hash] = name
			files = append(files, ingest.File{Name: name, Data: data, Hash: hash})
		}

		if len(files) == 0 && len(queued) == 0 {
			utils.RespondWithBadRequest(c, "No ingestible files in upload", gin.H{"failures": failures})
			return
		}

		resp := gin.H{"session_id": sess.ID}
		if len(queued) > 0 {
			resp["queued"] = queued
		}

		if len(files) > 0 {
			extracted, extractFailures := registry.ExtractBatch(c.Request.Context(), files)
			failures = append(failures, extractFailures...)
			if len(extracted) == 0 && len(queued) == 0 {
				utils.RespondWithBadRequest(c, "No text could be extracted", gin.H{"failures": failures})
				return
			}
			if len(extracted) > 0 {
				ingestStart := time.Now()
				result, err := sess.LoadDocuments(c.Request.Context(), extracted, failures)
				if err != nil {
					if metrics != nil {
						metrics.RecordIngestion(time.Since(ingestStart).Seconds(), 0, "error")
					}
					respondWithDomainError(c, err)
					return
				}
				if metrics != nil {
					metrics.RecordIngestion(result.Duration.Seconds(), int64(result.Chunks), "ok")
				}
				resp["documents"] = result.Documents
				resp["chunks"] = result.Chunks
				resp["index_version"] = result.IndexVersion
			}
		}
		if len(failures) > 0 {
			resp["failures"] = failures
		}

		status := http.StatusOK
		if len(queued) > 0 {
			status = http.StatusAccepted
		}
		c.JSON(status, resp)
	})

	docs.GET("", func(c *gin.Context) {
		sessionID := middleware.GetSessionID(c)
		list, err := store.ListDocuments(c.Request.Context(), sessionID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"documents":  list,
			"count":      len(list),
		})
	})
}

// enqueueIngestion saves the upload to shared storage, records a pending
// document, and enqueues the worker task. Files whose content is already
// in the session's corpus are rejected: queued ingestions append, so a
// re-upload would duplicate every chunk.
func enqueueIngestion(c *gin.Context, cfg *config.Config, store *session.Store, queueClient *asynq.Client, sessionID, name string, src io.Reader) (gin.H, error) {
	docID := uuid.NewString()

	uploadDir := filepath.Join(cfg.FileStorageDir, sessionID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	filePath := filepath.Join(uploadDir, docID+strings.ToLower(filepath.Ext(name)))
	dst, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	defer dst.Close()
	hasher := sha256.New()
	if _, err := io.Copy(dst, io.TeeReader(io.LimitReader(src, cfg.MaxFileSize), hasher)); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))

	if existing, err := store.FindDocumentByHash(c.Request.Context(), sessionID, fileHash); err != nil {
		logger.Warn("Duplicate lookup failed", "session_id", sessionID, "error", err)
	} else if existing != nil && existing.Status != models.StatusFailed {
		os.Remove(filePath)
		return nil, fmt.Errorf("duplicate of %s, skipped", existing.Filename)
	}

	pending := models.Document{
		SessionID:    sessionID,
		DocID:        docID,
		Filename:     name,
		OriginalName: name,
		FilePath:     filePath,
		FileHash:     fileHash,
		SourceType:   ingest.SourceType(name),
		Status:       models.StatusPending,
		UploadedAt:   time.Now(),
	}
	if err := store.InsertDocument(c.Request.Context(), pending); err != nil {
		return nil, err
	}

	task, err := queue.NewIngestTask(sessionID, docID, filePath, name, fileHash)
	if err != nil {
		return nil, err
	}
	info, err := queueClient.Enqueue(task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue ingestion: %w", err)
	}

	logger.Info("Ingestion queued",
		"session_id", sessionID, "doc_id", docID, "file", name, "task_id", info.ID)

	return gin.H{"doc_id": docID, "file": name, "status": models.StatusPending}, nil
}
