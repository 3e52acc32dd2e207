// Package router glues the pipeline together: readings come in, get
// classified, results fan out to observers, and confident detections
// become durable artifact records.
package router

import (
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// Broadcaster fans an event message out to every observer. The realtime
// registry implements it.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Classifier runs inference for one reading.
type Classifier interface {
	Classify(reading types.SensorReading) (types.ClassificationResult, error)
}

// Store is the durable-record subset the router needs.
type Store interface {
	SaveArtifact(artifact types.Artifact) (string, error)
	SaveSensorReading(reading types.SensorReading) (string, error)
}

// Config controls surfacing behavior.
type Config struct {
	// SurfaceThreshold is the minimum top confidence for a classification
	// to be persisted as an artifact.
	SurfaceThreshold float64
	// AutoSaveArtifacts disables artifact persistence entirely when false;
	// results still broadcast.
	AutoSaveArtifacts bool
	// RecordReadings persists every raw reading when true.
	RecordReadings bool
}

// Router is the event router.
type Router struct {
	classifier  Classifier
	store       Store
	broadcaster Broadcaster
	cfg         Config
}

// New wires the router's collaborators.
func New(classifier Classifier, store Store, broadcaster Broadcaster, cfg Config) *Router {
	return &Router{classifier: classifier, store: store, broadcaster: broadcaster, cfg: cfg}
}

// ResultEvent is the structured message broadcast for every processed
// reading, confident or not.
type ResultEvent struct {
	Type       string                     `json:"type"`
	Reading    types.SensorReading        `json:"reading"`
	Result     types.ClassificationResult `json:"result"`
	ArtifactID string                     `json:"artifact_id,omitempty"`
}

// HandleReading runs one reading through the pipeline. Classification
// errors abort this reading only; the system keeps serving (fail-open).
// Broadcast happens exactly once per successfully classified reading,
// whether or not an artifact was surfaced.
func (r *Router) HandleReading(reading types.SensorReading) (types.ClassificationResult, error) {
	if r.cfg.RecordReadings {
		if _, err := r.store.SaveSensorReading(reading); err != nil {
			// Recording is best-effort; classification proceeds.
			slog.Warn("failed to persist sensor reading", "error", err)
		}
	}

	result, err := r.classifier.Classify(reading)
	if err != nil {
		slog.Warn("skipping reading after classification failure",
			"error", err,
			"feature_error", apperrors.IsCategory(err, apperrors.CategoryFeature),
			"scaler_mismatch", apperrors.IsCategory(err, apperrors.CategoryScalerMismatch))
		return types.ClassificationResult{}, err
	}

	event := ResultEvent{Type: "classification", Reading: reading, Result: result}

	if r.cfg.AutoSaveArtifacts && result.Confidence() >= r.cfg.SurfaceThreshold {
		artifactID, err := r.saveArtifact(reading, result)
		if err != nil {
			slog.Error("failed to persist artifact", "error", err)
		} else {
			event.ArtifactID = artifactID
		}
	}

	msg, err := json.Marshal(event)
	if err != nil {
		return result, apperrors.NewInternalError("failed to encode result event", err)
	}
	r.broadcaster.Broadcast(msg)

	return result, nil
}

// HandleInbound adapts HandleReading to the realtime hub's sink interface.
func (r *Router) HandleInbound(reading types.SensorReading, observerID string) {
	if _, err := r.HandleReading(reading); err != nil {
		slog.Warn("inbound reading dropped", "observer_id", observerID, "error", err)
	}
}

func (r *Router) saveArtifact(reading types.SensorReading, result types.ClassificationResult) (string, error) {
	analysis, err := json.Marshal(result.Probabilities)
	if err != nil {
		return "", err
	}

	artifact := types.Artifact{
		Name:              fmt.Sprintf("%s detection", result.Material),
		Description:       fmt.Sprintf("Auto-detected %s at %.0f%% confidence", result.Material, result.Confidence()*100),
		Material:          result.Material,
		PreservationIndex: result.Confidence() * 100,
		Position:          reading.Position,
		AIAnalysis:        string(analysis),
		DiscoveredAt:      result.PredictedAt,
		DiscoveredBy:      "classifier",
	}
	return r.store.SaveArtifact(artifact)
}
