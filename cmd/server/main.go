package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/archaeoscan/archaeoscan/internal/classifier"
	"github.com/archaeoscan/archaeoscan/internal/config"
	"github.com/archaeoscan/archaeoscan/internal/database"
	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/monitoring"
	"github.com/archaeoscan/archaeoscan/internal/ratelimit"
	"github.com/archaeoscan/archaeoscan/internal/realtime"
	"github.com/archaeoscan/archaeoscan/internal/router"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

const settingsKey = "settings"

type server struct {
	cfg      config.Config
	db       *database.DB
	store    database.Store
	router   *router.Router
	hub      *realtime.Hub
	registry *realtime.Registry
	limiter  *ratelimit.Limiter
}

func main() {
	monitoring.SetupLogger(slog.LevelInfo)
	cfg := config.Load()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer apperrors.SafeClose(db, "database")

	repo := database.NewRepository(db)

	// The serving path loads the model bundle once; a missing bundle is
	// tolerated so the control plane stays up, but every classification
	// fails with a scaler mismatch until a trainer run produces one.
	clf, err := classifier.LoadClassifier(cfg.ModelPath)
	if err != nil {
		slog.Warn("no usable model bundle, classification disabled until retraining",
			"path", cfg.ModelPath, "error", err)
		clf = classifier.NewClassifier(nil)
	} else {
		slog.Info("model bundle loaded",
			"path", cfg.ModelPath,
			"trained_at", clf.Bundle().TrainedAt,
			"accuracy", clf.Bundle().Accuracy)
	}

	registry := realtime.NewRegistry()
	eventRouter := router.New(clf, repo, registry, router.Config{
		SurfaceThreshold:  cfg.SurfaceThreshold,
		AutoSaveArtifacts: cfg.AutoSaveArtifacts,
		RecordReadings:    cfg.RecordReadings,
	})

	s := &server{
		cfg:      cfg,
		db:       db,
		store:    repo,
		router:   eventRouter,
		hub:      realtime.NewHub(registry, eventRouter),
		registry: registry,
		limiter:  ratelimit.NewLimiter(cfg.RateLimitPerMin),
	}
	defer s.limiter.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(monitoring.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(apperrors.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Archaeoscan WebSocket Server"})
	})

	r.GET("/health", s.handleHealth)
	r.GET("/settings", s.handleGetSettings)
	r.POST("/settings", s.handleUpdateSettings)
	r.GET("/artifacts", s.handleGetArtifacts)
	r.POST("/artifacts", s.handleCreateArtifact)
	r.GET("/heatmap", s.handleHeatmap)
	r.POST("/classify", s.limiter.Middleware(), s.handleClassify)

	r.GET("/ws", func(c *gin.Context) {
		s.hub.HandleConnection(c.Writer, c.Request)
	})

	return r
}

func (s *server) handleHealth(c *gin.Context) {
	wsState := "idle"
	if s.registry.Count() > 0 {
		wsState = "healthy"
	}
	dbState := "healthy"
	if err := s.db.Ping(); err != nil {
		dbState = "unhealthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"services": gin.H{
			"api":       "healthy",
			"websocket": wsState,
			"database":  dbState,
		},
		"connections": s.registry.Count(),
	})
}

func (s *server) defaultSettings() types.Settings {
	return types.Settings{
		SensorSensitivity: s.cfg.SensorSensitivity,
		MapRefreshMs:      s.cfg.MapRefreshMs,
		VideoRecording:    s.cfg.VideoRecording,
		AutoSaveArtifacts: s.cfg.AutoSaveArtifacts,
		GPSEnabled:        s.cfg.GPSEnabled,
		SurfaceThreshold:  s.cfg.SurfaceThreshold,
	}
}

func (s *server) handleGetSettings(c *gin.Context) {
	settings := s.defaultSettings()

	stored, ok, err := s.store.GetSetting(settingsKey)
	if err != nil {
		c.Error(apperrors.NewStorageError("failed to load settings", err))
		return
	}
	if ok {
		if err := json.Unmarshal([]byte(stored), &settings); err != nil {
			slog.Warn("stored settings unreadable, serving defaults", "error", err)
		}
	}

	c.JSON(http.StatusOK, settings)
}

func (s *server) handleUpdateSettings(c *gin.Context) {
	settings := s.defaultSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.Error(apperrors.NewValidationError("invalid settings payload", err))
		return
	}

	data, err := json.Marshal(settings)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to encode settings", err))
		return
	}
	if err := s.store.SetSetting(settingsKey, string(data)); err != nil {
		c.Error(apperrors.NewStorageError("failed to persist settings", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings updated"})
}

func (s *server) handleGetArtifacts(c *gin.Context) {
	var filter types.ArtifactFilter
	filter.Material = types.Material(c.Query("material"))
	if v := c.Query("min_preservation"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.Error(apperrors.NewValidationError("invalid min_preservation", err))
			return
		}
		filter.MinPreservation = f
	}
	if v := c.Query("max_preservation"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.Error(apperrors.NewValidationError("invalid max_preservation", err))
			return
		}
		filter.MaxPreservation = f
	}

	artifacts, err := s.store.GetArtifacts(filter)
	if err != nil {
		c.Error(apperrors.NewStorageError("failed to query artifacts", err))
		return
	}
	if artifacts == nil {
		artifacts = []types.Artifact{}
	}
	c.JSON(http.StatusOK, artifacts)
}

func (s *server) handleCreateArtifact(c *gin.Context) {
	var artifact types.Artifact
	if err := c.ShouldBindJSON(&artifact); err != nil {
		c.Error(apperrors.NewValidationError("invalid artifact payload", err))
		return
	}
	if artifact.Name == "" {
		c.Error(apperrors.NewValidationError("artifact name is required", nil))
		return
	}

	id, err := s.store.SaveArtifact(artifact)
	if err != nil {
		c.Error(apperrors.NewStorageError("failed to save artifact", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *server) handleHeatmap(c *gin.Context) {
	points, err := s.store.GetHeatmapData()
	if err != nil {
		c.Error(apperrors.NewStorageError("failed to query heatmap data", err))
		return
	}
	if points == nil {
		points = []types.HeatmapPoint{}
	}
	c.JSON(http.StatusOK, points)
}

func (s *server) handleClassify(c *gin.Context) {
	var reading types.SensorReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.Error(apperrors.NewValidationError("invalid sensor reading payload", err))
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	result, err := s.router.HandleReading(reading)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
