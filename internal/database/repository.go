package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archaeoscan/archaeoscan/internal/types"
)

// Store is the storage capability the event router and control plane
// depend on.
type Store interface {
	SaveArtifact(artifact types.Artifact) (string, error)
	GetArtifacts(filter types.ArtifactFilter) ([]types.Artifact, error)
	SaveSensorReading(reading types.SensorReading) (string, error)
	GetHeatmapData() ([]types.HeatmapPoint, error)
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// Repository implements Store over sqlite.
type Repository struct {
	db *DB
}

// NewRepository wraps an open database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveArtifact inserts a new artifact record and returns its id.
func (r *Repository) SaveArtifact(artifact types.Artifact) (string, error) {
	stmt, err := r.db.stmt("insert_artifact")
	if err != nil {
		return "", err
	}

	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.DiscoveredAt.IsZero() {
		artifact.DiscoveredAt = time.Now().UTC()
	}
	if artifact.DiscoveredBy == "" {
		artifact.DiscoveredBy = "system"
	}
	if artifact.Status == "" {
		artifact.Status = "active"
	}

	var lat, lng sql.NullFloat64
	if artifact.Position != nil {
		lat = sql.NullFloat64{Float64: artifact.Position.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: artifact.Position.Lng, Valid: true}
	}

	_, err = stmt.Exec(
		artifact.ID,
		artifact.Name,
		artifact.Description,
		string(artifact.Material),
		artifact.PreservationIndex,
		lat,
		lng,
		artifact.ImageURL,
		artifact.AIAnalysis,
		artifact.DiscoveredAt,
		artifact.DiscoveredBy,
		artifact.Status,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert artifact: %w", err)
	}
	return artifact.ID, nil
}

// GetArtifacts returns active artifacts, newest first, honoring the filter.
func (r *Repository) GetArtifacts(filter types.ArtifactFilter) ([]types.Artifact, error) {
	query := `SELECT id, name, description, material, preservation_index,
		gps_lat, gps_lng, image_url, ai_analysis, discovered_at, discovered_by, status
		FROM artifacts WHERE status = 'active'`
	var params []interface{}

	if filter.Material != "" {
		query += " AND material = ?"
		params = append(params, string(filter.Material))
	}
	if filter.MinPreservation > 0 {
		query += " AND preservation_index >= ?"
		params = append(params, filter.MinPreservation)
	}
	if filter.MaxPreservation > 0 {
		query += " AND preservation_index <= ?"
		params = append(params, filter.MaxPreservation)
	}
	query += " ORDER BY discovered_at DESC"

	rows, err := r.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []types.Artifact
	for rows.Next() {
		var a types.Artifact
		var material string
		var lat, lng sql.NullFloat64
		var description, imageURL, aiAnalysis, discoveredBy sql.NullString

		if err := rows.Scan(&a.ID, &a.Name, &description, &material, &a.PreservationIndex,
			&lat, &lng, &imageURL, &aiAnalysis, &a.DiscoveredAt, &discoveredBy, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		a.Material = types.Material(material)
		a.Description = description.String
		a.ImageURL = imageURL.String
		a.AIAnalysis = aiAnalysis.String
		a.DiscoveredBy = discoveredBy.String
		if lat.Valid && lng.Valid {
			a.Position = &types.GeoPosition{Lat: lat.Float64, Lng: lng.Float64}
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// SaveSensorReading records one raw triplet for later analysis.
func (r *Repository) SaveSensorReading(reading types.SensorReading) (string, error) {
	stmt, err := r.db.stmt("insert_sensor_reading")
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	recordedAt := reading.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	var lat, lng sql.NullFloat64
	if reading.Position != nil {
		lat = sql.NullFloat64{Float64: reading.Position.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: reading.Position.Lng, Valid: true}
	}

	_, err = stmt.Exec(id, reading.Piezo, reading.TDS, reading.Distance, lat, lng, recordedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return id, nil
}

// GetHeatmapData aggregates artifact counts per GPS cell.
func (r *Repository) GetHeatmapData() ([]types.HeatmapPoint, error) {
	stmt, err := r.db.stmt("get_heatmap")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap data: %w", err)
	}
	defer rows.Close()

	var points []types.HeatmapPoint
	for rows.Next() {
		var p types.HeatmapPoint
		if err := rows.Scan(&p.Lat, &p.Lng, &p.Intensity); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// GetSetting fetches one settings value; the bool reports presence.
func (r *Repository) GetSetting(key string) (string, bool, error) {
	stmt, err := r.db.stmt("get_setting")
	if err != nil {
		return "", false, err
	}

	var value string
	err = stmt.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts one settings value.
func (r *Repository) SetSetting(key, value string) error {
	stmt, err := r.db.stmt("upsert_setting")
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
