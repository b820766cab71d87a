package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/photo-check/internal/auth"
	"github.com/example/photo-check/internal/crypto"
	"github.com/example/photo-check/internal/framedebug"
	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/usecase"
)

// MaxUploadSize caps a submitted image at 10 MiB.
const MaxUploadSize = 10 << 20

// ReadinessCheck probes one collaborator for the health endpoint.
type ReadinessCheck func(ctx context.Context) error

// Options carries the cross-cutting pieces the routes need.
type Options struct {
	Metrics          http.Handler
	Readiness        map[string]ReadinessCheck
	EncryptionSecret string
	JWTSecret        string
	JWTAudience      string
	// FrameSaver is optional; when set, stream frames and their verdicts
	// are persisted for threshold tuning.
	FrameSaver *framedebug.Saver
}

type validateRequest struct {
	Image     string `json:"image" binding:"required"`
	Encrypted bool   `json:"encrypted"`
	Algorithm string `json:"algorithm"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc *usecase.ValidationUseCase, opts Options) {
	router.GET("/health", func(c *gin.Context) {
		models := gin.H{}
		for name, check := range opts.Readiness {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			models[name] = check(ctx) == nil
			cancel()
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "models_loaded": models})
	})

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	validate := router.Group("/validate", auth.JWTMiddleware(opts.JWTSecret, opts.JWTAudience))

	validate.POST("/photo", func(c *gin.Context) {
		raw, ok := decodeBody(c, opts.EncryptionSecret)
		if !ok {
			return
		}

		requestID, report, err := uc.ValidatePhoto(c.Request.Context(), raw)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"status":     report.Status,
			"errors":     report.Errors,
			"metadata":   report.Metadata,
		})
	})

	validate.POST("/stream", func(c *gin.Context) {
		raw, ok := decodeBody(c, opts.EncryptionSecret)
		if !ok {
			return
		}

		requestID, report := uc.ValidateFrame(c.Request.Context(), raw)

		if opts.FrameSaver != nil {
			if img, err := imageutil.Decode(raw); err == nil {
				opts.FrameSaver.Submit(requestID, img, report)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"status":     report.Status,
			"errors":     report.Errors,
			"guidance":   report.Guidance,
		})
	})

	validate.POST("/upload", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MiB limit"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MiB limit"})
			return
		}

		switch imageutil.SniffFormat(data) {
		case imageutil.FormatJPEG, imageutil.FormatPNG:
		default:
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only JPEG and PNG uploads are accepted"})
			return
		}

		requestID, report, err := uc.ValidatePhoto(c.Request.Context(), data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"status":     report.Status,
			"errors":     report.Errors,
			"metadata":   report.Metadata,
		})
	})
}

// decodeBody parses the JSON envelope, optionally decrypts it, and
// returns the raw image bytes. On failure it writes the error response
// and returns ok=false.
func decodeBody(c *gin.Context, encryptionSecret string) ([]byte, bool) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return nil, false
	}

	payload := req.Image
	if req.Encrypted {
		algorithm := req.Algorithm
		if algorithm == "" {
			algorithm = crypto.DefaultAlgorithm
		}
		decrypted, err := crypto.DecryptImagePayload(payload, algorithm, encryptionSecret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to decrypt image payload"})
			return nil, false
		}
		payload = decrypted
	}

	raw, err := imageutil.DecodeBase64(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
		return nil, false
	}
	if len(raw) > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MiB limit"})
		return nil, false
	}
	return raw, true
}
