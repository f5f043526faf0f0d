// Package models defines the persisted record shapes shared by the store
// layer, the engines that populate it, and the HTTP surface that reads it.
package models

import (
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/google/uuid"
)

// User is an account with email/password identity and alerting preferences.
type User struct {
	ID                       uuid.UUID
	Email                    string
	PasswordHash             string
	ExposureSensitivityLevel int
	NotificationPreferences  map[string]bool
	CreatedAt                time.Time
}

// SavedRoute is a user-owned origin/destination pair tracked for recurring
// alert scoring.
type SavedRoute struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	OriginLat         float64
	OriginLon         float64
	DestinationLat    float64
	DestinationLon    float64
	ActivityType      domain.ActivityType
	LastUPESScore     *float64
	LastUPESUpdatedAt *time.Time
	CreatedAt         time.Time
}

// PollutionGridCell is one append-only row of ingested raster data.
type PollutionGridCell struct {
	ID             int64
	Timestamp      time.Time
	GasType        domain.GasType
	GeomWKT        string // closed polygon ring, WGS84
	PollutionValue float64
	SeverityLevel  int
	CreatedAt      time.Time
}

// NetcdfFile is the metadata-only index row for a raw satellite file parked
// in object storage.
type NetcdfFile struct {
	ID         int64
	FileName   string
	BucketPath string
	Timestamp  time.Time
	GasType    domain.GasType
}

// ScoreSource records what produced a RouteExposureHistory row.
type ScoreSource string

const (
	ScoreSourceScheduled ScoreSource = "scheduled"
	ScoreSourceOnDemand  ScoreSource = "on_demand"
)

// RouteExposureHistory is an immutable event log entry scoring one saved
// route against one UPES snapshot.
type RouteExposureHistory struct {
	ID                int64
	RouteID           uuid.UUID
	Timestamp         time.Time
	UPESScore         float64
	MaxUPESAlongRoute float64
	ScoreSource       ScoreSource
}

// AlertLog is an immutable record of one triggered alert.
type AlertLog struct {
	ID               int64
	UserID           uuid.UUID
	RouteID          uuid.UUID
	AlertType        domain.AlertType
	ScoreBefore      float64
	ScoreAfter       float64
	Threshold        float64
	AlertMetadata    map[string]any
	NotifiedChannels []string
	CreatedAt        time.Time
}
