package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/photo-check/internal/logging"
	"github.com/example/photo-check/internal/metrics"
	"github.com/example/photo-check/internal/pipeline"
)

// Runner is the pipeline surface the use case needs.
type Runner interface {
	Run(ctx context.Context, requestID string, raw []byte, mode pipeline.Mode) *pipeline.Report
}

// ValidationUseCase runs the pipeline and caches full-mode verdicts in
// redis, keyed by image content hash, so a client re-submitting the same
// photo gets the stored verdict without re-running the models.
type ValidationUseCase struct {
	pipe           Runner
	cache          Cache
	metrics        *metrics.Metrics
	logger         *zap.Logger
	cacheTTL       time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewValidationUseCase constructs a new use case instance. cache may be
// nil, which disables verdict caching.
func NewValidationUseCase(pipe Runner, cache Cache, m *metrics.Metrics, logger *zap.Logger, cacheTTL time.Duration) *ValidationUseCase {
	return &ValidationUseCase{
		pipe:           pipe,
		cache:          cache,
		metrics:        m,
		logger:         logger.Named("validation_usecase"),
		cacheTTL:       cacheTTL,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// ValidatePhoto runs a full validation. A verdict cached for the same
// image bytes is returned as-is; cache failures degrade to a normal run.
func (uc *ValidationUseCase) ValidatePhoto(ctx context.Context, raw []byte) (string, *pipeline.Report, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.validate_photo", requestID)

	hash := sha1.Sum(raw)
	cacheKey := fmt.Sprintf("verdict:%s", hex.EncodeToString(hash[:]))

	if uc.cache != nil {
		if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.verdict", cacheKey); err == nil {
			var report pipeline.Report
			if err := json.Unmarshal([]byte(cached), &report); err != nil {
				opLogger.Warn("failed to decode cached verdict", zap.Error(err))
			} else {
				uc.metrics.RecordCacheHit()
				opLogger.Info("verdict served from cache", zap.String("status", report.Status))
				return requestID, &report, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			opLogger.Warn("failed to read verdict cache", zap.Error(err))
		}
		uc.metrics.RecordCacheMiss()
	}

	report := uc.pipe.Run(ctx, requestID, raw, pipeline.ModeFull)

	if uc.cache != nil {
		serialized, err := json.Marshal(report)
		if err != nil {
			opLogger.Error("failed to serialize verdict", zap.Error(err))
			return requestID, report, nil
		}
		if err := uc.withRedisRetry(ctx, requestID, "cache.set.verdict", func() error {
			return uc.cache.Set(ctx, cacheKey, string(serialized), uc.cacheTTL)
		}); err != nil {
			opLogger.Warn("failed to cache verdict", zap.Error(err))
		}
	}

	return requestID, report, nil
}

// ValidateFrame runs the low-latency stream validation. Frames are never
// cached; consecutive capture frames differ byte-for-byte anyway.
func (uc *ValidationUseCase) ValidateFrame(ctx context.Context, raw []byte) (string, *pipeline.Report) {
	requestID := uuid.NewString()
	return requestID, uc.pipe.Run(ctx, requestID, raw, pipeline.ModeStream)
}

func (uc *ValidationUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ValidationUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
