package model

import (
	"time"

	"gorm.io/gorm"
)

// Role values for User.Role
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account allowed to sign in to the dashboard
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `gorm:"uniqueIndex;not null;size:150" json:"username"`
	PasswordHash string `gorm:"not null;size:150" json:"-"`
	Role         string `gorm:"not null;size:20;default:user" json:"role"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "user"
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is an issued login token
type Session struct {
	Token     string    `gorm:"primaryKey;size:36" json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Session
func (Session) TableName() string {
	return "session"
}

// RanchLocation is static reference data for a marine ranch site
type RanchLocation struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null;size:100" json:"name"`
	Latitude    float64 `gorm:"not null" json:"latitude"`
	Longitude   float64 `gorm:"not null" json:"longitude"`
	Description string  `gorm:"type:text" json:"description"`
}

// TableName specifies the table name for RanchLocation
func (RanchLocation) TableName() string {
	return "ranch_location"
}

// WaterQuality is one monitoring observation from a river or coastal section.
// Measurements are nil when the source cell held no usable number.
type WaterQuality struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// province, basin, section and time identify an observation; re-imports skip it
	Province     string    `gorm:"size:100;index;uniqueIndex:idx_water_quality_observation,priority:1" json:"province"`
	Basin        string    `gorm:"size:100;uniqueIndex:idx_water_quality_observation,priority:2" json:"basin"`
	SectionName  string    `gorm:"size:200;uniqueIndex:idx_water_quality_observation,priority:3" json:"section_name"`
	MonitorTime  time.Time `gorm:"not null;index;uniqueIndex:idx_water_quality_observation,priority:4" json:"monitor_time"`
	QualityLevel *string   `gorm:"size:10" json:"quality_level"`

	Temperature       *float64 `json:"temperature"`
	PH                *float64 `gorm:"column:ph" json:"ph"`
	DissolvedOxygen   *float64 `json:"dissolved_oxygen"`
	Conductivity      *float64 `json:"conductivity"`
	Turbidity         *float64 `json:"turbidity"`
	PermanganateIndex *float64 `json:"permanganate_index"`
	AmmoniaNitrogen   *float64 `json:"ammonia_nitrogen"`
	TotalPhosphorus   *float64 `json:"total_phosphorus"`
	TotalNitrogen     *float64 `json:"total_nitrogen"`
	ChlorophyllA      *float64 `gorm:"column:chlorophyll_a" json:"chlorophyll_a"`
	AlgaeDensity      *float64 `json:"algae_density"`

	StationStatus string `gorm:"size:50" json:"station_status"`
}

// TableName specifies the table name for WaterQuality
func (WaterQuality) TableName() string {
	return "water_quality"
}

// NumericFields lists the measurement columns in schema order
var NumericFields = []string{
	"temperature",
	"ph",
	"dissolved_oxygen",
	"conductivity",
	"turbidity",
	"permanganate_index",
	"ammonia_nitrogen",
	"total_phosphorus",
	"total_nitrogen",
	"chlorophyll_a",
	"algae_density",
}

// Measurement returns a pointer to the named measurement slot, or nil for an unknown name
func (w *WaterQuality) Measurement(field string) **float64 {
	switch field {
	case "temperature":
		return &w.Temperature
	case "ph":
		return &w.PH
	case "dissolved_oxygen":
		return &w.DissolvedOxygen
	case "conductivity":
		return &w.Conductivity
	case "turbidity":
		return &w.Turbidity
	case "permanganate_index":
		return &w.PermanganateIndex
	case "ammonia_nitrogen":
		return &w.AmmoniaNitrogen
	case "total_phosphorus":
		return &w.TotalPhosphorus
	case "total_nitrogen":
		return &w.TotalNitrogen
	case "chlorophyll_a":
		return &w.ChlorophyllA
	case "algae_density":
		return &w.AlgaeDensity
	}
	return nil
}

// Value returns the named measurement, nil when absent or unknown
func (w *WaterQuality) Value(field string) *float64 {
	slot := w.Measurement(field)
	if slot == nil {
		return nil
	}
	return *slot
}

// IngestionRun records the outcome of one ingestion batch
type IngestionRun struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Source     string    `gorm:"size:500" json:"source"`
	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FilesProcessed int    `json:"files_processed"`
	FilesSkipped   int    `json:"files_skipped"`
	RowsInserted   int    `json:"rows_inserted"`
	RowsSkipped    int    `json:"rows_skipped"`
	RowsDuplicate  int    `json:"rows_duplicate"`
	Rejections     string `gorm:"type:text" json:"rejections"` // JSON object keyed by reason
	Error          string `gorm:"type:text" json:"error,omitempty"`
}

// TableName specifies the table name for IngestionRun
func (IngestionRun) TableName() string {
	return "ingestion_run"
}

// BeforeCreate hook rejects records without a monitor time
func (w *WaterQuality) BeforeCreate(tx *gorm.DB) error {
	if w.MonitorTime.IsZero() {
		return gorm.ErrInvalidValue
	}
	return nil
}

// AllModels lists every table managed by the schema migration
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&RanchLocation{},
		&WaterQuality{},
		&IngestionRun{},
	}
}
