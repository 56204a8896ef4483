package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/crop-api/internal/catalog"
	"github.com/Brownie44l1/crop-api/internal/config"
	"github.com/Brownie44l1/crop-api/internal/handlers"
	"github.com/Brownie44l1/crop-api/internal/imaging"
	"github.com/Brownie44l1/crop-api/internal/logger"
	"github.com/Brownie44l1/crop-api/internal/metrics"
	"github.com/Brownie44l1/crop-api/internal/model"
	"github.com/Brownie44l1/crop-api/internal/pipeline"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// buildPipeline loads the model, label list and catalog once. Any mismatch
// between them is fatal here rather than per request.
func buildPipeline(cfg *config.Config, log *zap.Logger) (*pipeline.Pipeline, func(), error) {
	log.Info("loading model",
		zap.String("model", cfg.Model.Path),
		zap.String("metadata", cfg.Model.MetadataPath))

	modelServer, err := model.NewServer(cfg.Model.Path, cfg.Model.MetadataPath, cfg.Model.SharedLibrary)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize model server: %w", err)
	}

	meta := modelServer.Metadata
	if meta.ImageSize != 0 && meta.ImageSize != imaging.Size {
		modelServer.Close()
		return nil, nil, fmt.Errorf("model expects %dpx images, pipeline produces %dpx", meta.ImageSize, imaging.Size)
	}
	if want := imaging.Size * imaging.Size * imaging.Channels; meta.InputSize() != want {
		modelServer.Close()
		return nil, nil, fmt.Errorf("model input holds %d values, pipeline produces %d", meta.InputSize(), want)
	}

	layout, err := meta.TensorLayout()
	if err != nil {
		modelServer.Close()
		return nil, nil, err
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		modelServer.Close()
		return nil, nil, err
	}

	p, err := pipeline.New(modelServer, cat, pipeline.Options{
		Layout: layout,
		Decode: imaging.Options{ApplyOrientation: cfg.Imaging.ExifOrientation},
		Logger: log,
	})
	if err != nil {
		modelServer.Close()
		return nil, nil, err
	}

	log.Info("model loaded",
		zap.Int("classes", len(meta.Classes)),
		zap.String("layout", string(layout)),
		zap.Int("catalog_entries", cat.Len()))

	return p, modelServer.Close, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Server.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func serve(configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	p, closeModel, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer closeModel()

	metrics.Register()
	gin.SetMode(cfg.Server.Mode)

	handler := handlers.NewHandler(p, log, cfg.Server.MaxUploadBytes)
	router := handlers.NewRouter(handler, log, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Strings("endpoints", []string{"GET /health", "GET /metrics", "POST /analyze", "POST /predict/image"}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func classify(configPath, imagePath string, out io.Writer) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	p, closeModel, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer closeModel()

	_, body := handlers.Response(p.Predict(raw))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}
