package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a sync run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
)

// TriggerType represents what triggered the run
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
)

// StringList is a JSONB-backed ordered list of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// SyncRun represents one reconciliation run against the remote catalog.
type SyncRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	Status RunStatus `gorm:"type:varchar(50);not null;default:'RUNNING';index:idx_sync_runs_status" json:"status"`

	// Progress is the monotonic 0-100 counter, written as the run advances.
	Progress int `gorm:"default:0" json:"progress"`

	// Counts reported in the terminal summary.
	CreatedCount int `gorm:"default:0" json:"createdCount"`
	UpdatedCount int `gorm:"default:0" json:"updatedCount"`
	FailedCount  int `gorm:"default:0" json:"failedCount"`

	// Summary is the human-readable terminal message; ErrorMessage names the
	// aborting cause when the run fails before completion.
	Summary      string `gorm:"type:text" json:"summary,omitempty"`
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	// Ledger is the full ordered failure ledger, available regardless of
	// terminal status.
	Ledger StringList `gorm:"type:jsonb;default:'[]'" json:"ledger"`

	TriggeredBy TriggerType `gorm:"type:varchar(50);default:'MANUAL'" json:"triggeredBy,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for SyncRun
func (SyncRun) TableName() string {
	return "catalog_sync_runs"
}

// Succeeded reports whether the run finished with an empty ledger.
func (r *SyncRun) Succeeded() bool {
	return r.Status == RunStatusCompleted && len(r.Ledger) == 0
}
