package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/models"
	"docchat/internal/ratelimit"
	"docchat/internal/service/ai"
	"docchat/internal/service/chat"
	"docchat/internal/service/extract"
	"docchat/internal/service/ingest"
)

type Ingester interface {
	Ingest(ctx context.Context, userID string, up ingest.Upload) (*models.IngestedFile, error)
}

type FileRegistry interface {
	List(ownerID string) []models.IngestedFile
	Get(ownerID, fileID string) (models.IngestedFile, bool)
	Delete(ctx context.Context, ownerID, fileID string) bool
}

type Chatter interface {
	Chat(ctx context.Context, req chat.Request) (*models.ChatExchange, error)
}

// Limits bounds a single upload request.
type Limits struct {
	MaxFileSize       int64
	MaxFilesPerUpload int
}

// Handler wires HTTP routes to the upload and chat pipelines.
type Handler struct {
	ingest Ingester
	files  FileRegistry
	chat   Chatter
	limits Limits
	now    func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(ingester Ingester, files FileRegistry, chatter Chatter, limits Limits) *Handler {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = 10 << 20
	}
	if limits.MaxFilesPerUpload <= 0 {
		limits.MaxFilesPerUpload = 10
	}
	return &Handler{
		ingest: ingester,
		files:  files,
		chat:   chatter,
		limits: limits,
		now:    time.Now,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	files := router.Group("/files")
	files.POST("/upload", h.uploadFile)
	files.POST("/upload-multiple", h.uploadMultiple)
	files.GET("/list", h.listFiles)
	files.GET("/:fileId", h.getFile)
	files.DELETE("/:fileId", h.deleteFile)

	router.POST("/chat", h.chatWithFiles)
}

const (
	codeMissingUserID      = "MISSING_USER_ID"
	codeNoFile             = "NO_FILE"
	codeTooManyFiles       = "TOO_MANY_FILES"
	codeFileTooLarge       = "FILE_TOO_LARGE"
	codeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	codeExtractionFailed   = "EXTRACTION_FAILED"
	codeUploadFailed       = "UPLOAD_FAILED"
	codeFileNotFound       = "FILE_NOT_FOUND"
	codeMissingPrompt      = "MISSING_PROMPT"
	codeInvalidRequest     = "INVALID_REQUEST"
	codeTokenLimitExceeded = "TOKEN_LIMIT_EXCEEDED"
	codeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	codeOpenAIConfigError  = "OPENAI_CONFIG_ERROR"
	codeLLMCallFailed      = "LLM_CALL_FAILED"
	codeChatFailed         = "CHAT_FAILED"
)

func (h *Handler) respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":     message,
		"code":      code,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339)})
}

// userID reads userId from the form body first, then the query string.
func userID(c *gin.Context) string {
	if v := strings.TrimSpace(c.PostForm("userId")); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("userId"))
}

func (h *Handler) uploadFile(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		h.respondError(c, http.StatusBadRequest, codeMissingUserID, "userId is required")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, codeNoFile, "no file uploaded")
		return
	}
	if fh.Size > h.limits.MaxFileSize {
		h.respondError(c, http.StatusBadRequest, codeFileTooLarge,
			fmt.Sprintf("file exceeds the maximum size of %d bytes", h.limits.MaxFileSize))
		return
	}
	file, err := h.ingest.Ingest(c.Request.Context(), uid, h.toUpload(c, fh))
	if err != nil {
		status, code := uploadErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("upload %q for %s failed: %v", fh.Filename, uid, err)
		}
		h.respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"file":    file.Summarize(),
	})
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

func (h *Handler) uploadMultiple(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		h.respondError(c, http.StatusBadRequest, codeMissingUserID, "userId is required")
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		h.respondError(c, http.StatusBadRequest, codeNoFile, "no files uploaded")
		return
	}
	headers := form.File["files"]
	if len(headers) > h.limits.MaxFilesPerUpload {
		h.respondError(c, http.StatusBadRequest, codeTooManyFiles,
			fmt.Sprintf("at most %d files may be uploaded at once", h.limits.MaxFilesPerUpload))
		return
	}

	uploaded := make([]models.FileSummary, 0, len(headers))
	failures := make([]uploadFailure, 0)
	for _, fh := range headers {
		if fh.Size > h.limits.MaxFileSize {
			failures = append(failures, uploadFailure{
				Filename: fh.Filename,
				Error:    fmt.Sprintf("file exceeds the maximum size of %d bytes", h.limits.MaxFileSize),
			})
			continue
		}
		file, err := h.ingest.Ingest(c.Request.Context(), uid, h.toUpload(c, fh))
		if err != nil {
			log.Printf("upload %q for %s failed: %v", fh.Filename, uid, err)
			failures = append(failures, uploadFailure{Filename: fh.Filename, Error: err.Error()})
			continue
		}
		uploaded = append(uploaded, file.Summarize())
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       len(uploaded) > 0,
		"uploadedFiles": uploaded,
		"errors":        failures,
	})
}

func (h *Handler) toUpload(c *gin.Context, fh *multipart.FileHeader) ingest.Upload {
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return ingest.Upload{
		OriginalName: fh.Filename,
		MimeType:     mimeType,
		Size:         fh.Size,
		Save: func(path string) error {
			return c.SaveUploadedFile(fh, path)
		},
	}
}

func uploadErrorStatus(err error) (int, string) {
	var extErr *extract.ExtractionError
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusBadRequest, codeUnsupportedFormat
	case errors.As(err, &extErr):
		return http.StatusUnprocessableEntity, codeExtractionFailed
	default:
		return http.StatusInternalServerError, codeUploadFailed
	}
}

func (h *Handler) listFiles(c *gin.Context) {
	uid := strings.TrimSpace(c.Query("userId"))
	if uid == "" {
		h.respondError(c, http.StatusBadRequest, codeMissingUserID, "userId is required")
		return
	}
	files := h.files.List(uid)
	summaries := make([]models.FileSummary, 0, len(files))
	for i := range files {
		summaries = append(summaries, files[i].Summarize())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   summaries,
	})
}

func (h *Handler) getFile(c *gin.Context) {
	uid := strings.TrimSpace(c.Query("userId"))
	if uid == "" {
		h.respondError(c, http.StatusBadRequest, codeMissingUserID, "userId is required")
		return
	}
	file, ok := h.files.Get(uid, c.Param("fileId"))
	if !ok {
		h.respondError(c, http.StatusNotFound, codeFileNotFound, "file not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"file":    file,
	})
}

func (h *Handler) deleteFile(c *gin.Context) {
	uid := strings.TrimSpace(c.Query("userId"))
	if uid == "" {
		h.respondError(c, http.StatusBadRequest, codeMissingUserID, "userId is required")
		return
	}
	if !h.files.Delete(c.Request.Context(), uid, c.Param("fileId")) {
		h.respondError(c, http.StatusNotFound, codeFileNotFound, "file not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "file deleted",
	})
}

type chatRequest struct {
	UserID      string   `json:"userId"`
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"maxTokens"`
	Temperature *float32 `json:"temperature"`
}

func (h *Handler) chatWithFiles(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		h.respondError(c, http.StatusBadRequest, codeInvalidRequest, "maxTokens must be positive")
		return
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		h.respondError(c, http.StatusBadRequest, codeInvalidRequest, "temperature must be between 0 and 2")
		return
	}
	chatReq := chat.Request{
		UserID:      strings.TrimSpace(req.UserID),
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}

	res, err := h.chat.Chat(c.Request.Context(), chatReq)
	if err != nil {
		status, code := chatErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("chat for %s failed: %v", chatReq.UserID, err)
		}
		h.respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"response":        res.Response,
		"tokensUsed":      res.TokensUsed,
		"filesReferenced": res.FilesReferenced,
	})
}

func chatErrorStatus(err error) (int, string) {
	var (
		limitErr *ai.TokenLimitExceededError
		callErr  *ai.LLMCallFailedError
	)
	switch {
	case errors.Is(err, chat.ErrMissingUserID):
		return http.StatusBadRequest, codeMissingUserID
	case errors.Is(err, chat.ErrMissingPrompt):
		return http.StatusBadRequest, codeMissingPrompt
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, codeRateLimitExceeded
	case errors.As(err, &limitErr):
		return http.StatusBadRequest, codeTokenLimitExceeded
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusInternalServerError, codeOpenAIConfigError
	case errors.As(err, &callErr):
		return http.StatusBadGateway, codeLLMCallFailed
	default:
		return http.StatusInternalServerError, codeChatFailed
	}
}
