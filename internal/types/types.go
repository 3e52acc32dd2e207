package types

import "time"

// Material is one of the closed set of categories the classifier can emit.
type Material string

const (
	MaterialMetal           Material = "metal"
	MaterialPlastic         Material = "plastic"
	MaterialLiquid          Material = "liquid"
	MaterialWood            Material = "wood"
	MaterialCeramic         Material = "ceramic"
	MaterialGlass           Material = "glass"
	MaterialSoil            Material = "soil"
	MaterialSand            Material = "sand"
	MaterialCoral           Material = "coral"
	MaterialAlgae           Material = "algae"
	MaterialShell           Material = "shell"
	MaterialSedimentaryRock Material = "sedimentary_rock"
)

// Materials lists every label in canonical order. The classifier's
// probability vectors follow this order.
var Materials = []Material{
	MaterialMetal,
	MaterialPlastic,
	MaterialLiquid,
	MaterialWood,
	MaterialCeramic,
	MaterialGlass,
	MaterialSoil,
	MaterialSand,
	MaterialCoral,
	MaterialAlgae,
	MaterialShell,
	MaterialSedimentaryRock,
}

// GeoPosition is an optional GPS fix attached to readings and artifacts.
type GeoPosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SensorReading is one raw triplet from the detection rig. Immutable once
// captured.
type SensorReading struct {
	Piezo     float64      `json:"piezo"`
	TDS       float64      `json:"tds"`
	Distance  float64      `json:"distance"`
	Timestamp time.Time    `json:"timestamp"`
	Position  *GeoPosition `json:"position,omitempty"`
}

// ClassificationResult is the ensemble's output for a single reading.
type ClassificationResult struct {
	Material      Material             `json:"material"`
	Probabilities map[Material]float64 `json:"probabilities"`
	PredictedAt   time.Time            `json:"predicted_at"`
}

// Confidence returns the probability mass assigned to the predicted label.
func (r ClassificationResult) Confidence() float64 {
	return r.Probabilities[r.Material]
}

// Artifact is a durable record of a confirmed discovery.
type Artifact struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description,omitempty"`
	Material          Material     `json:"material"`
	PreservationIndex float64      `json:"preservation_index"`
	Position          *GeoPosition `json:"position,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	AIAnalysis        string       `json:"ai_analysis,omitempty"`
	DiscoveredAt      time.Time    `json:"discovered_at"`
	DiscoveredBy      string       `json:"discovered_by"`
	Status            string       `json:"status"`
}

// ArtifactFilter narrows GetArtifacts queries. Zero values mean "no filter".
type ArtifactFilter struct {
	Material        Material
	MinPreservation float64
	MaxPreservation float64
}

// HeatmapPoint aggregates artifact density at one GPS cell.
type HeatmapPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity int     `json:"intensity"`
}

// Settings is the rig's operator-tunable configuration as exposed over the
// control plane.
type Settings struct {
	SensorSensitivity int     `json:"sensor_sensitivity"`
	MapRefreshMs      int     `json:"map_refresh_rate"`
	VideoRecording    bool    `json:"video_recording"`
	AutoSaveArtifacts bool    `json:"auto_save_artifacts"`
	GPSEnabled        bool    `json:"gps_enabled"`
	SurfaceThreshold  float64 `json:"surface_threshold"`
}
