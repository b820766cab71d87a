package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/framedebug"
	"github.com/example/photo-check/internal/handlers"
	"github.com/example/photo-check/internal/logging"
	"github.com/example/photo-check/internal/metrics"
	"github.com/example/photo-check/internal/pipeline"
	"github.com/example/photo-check/internal/stages"
	"github.com/example/photo-check/internal/usecase"
	"github.com/example/photo-check/internal/vision"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg.RedisAddr, logger)

	mesh := vision.NewMeshClient(cfg.FaceMeshURL, cfg.Thresholds.MinDetectionConfidence)
	segmenter := vision.NewSegmenterClient(cfg.SegmenterURL)

	m := metrics.New()

	chain := []stages.Stage{
		stages.NewFormatStage(cfg.Thresholds),
		stages.NewQualityStage(cfg.Thresholds),
		stages.NewFaceStage(mesh),
		stages.NewPoseStage(cfg.Thresholds),
		stages.NewGeometryStage(cfg.Thresholds),
		stages.NewBackgroundStage(cfg.Thresholds, segmenter),
	}
	readiness := map[string]handlers.ReadinessCheck{
		"facemesh":  mesh.Check,
		"segmenter": segmenter.Check,
	}
	if cfg.VLMEnabled {
		chain = append(chain, stages.NewAccessoriesStage(vlmFactory(cfg)))
		vlm := vision.NewVLMClient(cfg.VLMURL, cfg.VLMModel)
		readiness["vlm"] = vlm.Check
	}

	pipe := pipeline.New(chain, logger, m)
	cache := usecase.NewRedisCache(redisClient)
	ttl := time.Duration(cfg.VerdictCacheTTLSeconds) * time.Second
	uc := usecase.NewValidationUseCase(pipe, cache, m, logger, ttl)

	var saver *framedebug.Saver
	if cfg.DebugSaveFrames {
		saver, err = framedebug.NewSaver(cfg.DebugFramesDir, cfg.DebugMaxFrames, logger)
		if err != nil {
			logger.Fatal("failed to start frame saver", zap.Error(err))
		}
		defer saver.Close()
	}

	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize

	handlers.RegisterRoutes(r, uc, handlers.Options{
		Metrics:          m.Handler(),
		Readiness:        readiness,
		EncryptionSecret: cfg.ImageEncryptionSecret,
		JWTSecret:        cfg.JWTSecret,
		JWTAudience:      cfg.JWTAudience,
		FrameSaver:       saver,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	logger.Info("photo-check API listening", zap.String("addr", cfg.HTTPAddr))
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// vlmFactory defers the first contact with the model server until a
// request actually needs it; large vision models load long after the
// API is up.
func vlmFactory(cfg config.Config) stages.VLMFactory {
	return func(ctx context.Context) (vision.VLM, error) {
		client := vision.NewVLMClient(cfg.VLMURL, cfg.VLMModel)
		if err := client.Check(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithListener(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, listener, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
