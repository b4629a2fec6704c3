package sources

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultBaseURL is the public KoboToolbox instance used when a source does
// not name its own server.
const DefaultBaseURL = "https://kf.kobotoolbox.org"

// FormSource is one configured external form. It is edited by administrators
// and read-only to the pipeline.
type FormSource struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	UID       string    `gorm:"column:uid;not null;uniqueIndex:idx_form_source_uid" json:"uid"`
	Token     string    `gorm:"column:token;not null" json:"-"`
	BaseURL   string    `gorm:"column:base_url;not null" json:"base_url"`
	Parser    string    `gorm:"column:parser;not null" json:"parser"`
	Active    bool      `gorm:"column:active;not null;index" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FormSource) TableName() string { return "form_source" }

func (s *FormSource) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusFailure SyncStatus = "FAILURE"
)

// SyncRunRecord is the append-only audit trail of one pipeline execution for
// one FormSource.
type SyncRunRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FormSourceID uuid.UUID  `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	SourceUID    string     `gorm:"column:source_uid;not null;index" json:"source_uid"`
	RanAt        time.Time  `gorm:"column:ran_at;not null;index" json:"ran_at"`
	FinishedAt   *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Status       SyncStatus `gorm:"column:status;not null;index" json:"status"`
	Message      string     `gorm:"column:message;type:text" json:"message"`
	Processed    int        `gorm:"column:processed;not null" json:"processed"`
	Created      int        `gorm:"column:created;not null" json:"created"`
	Updated      int        `gorm:"column:updated;not null" json:"updated"`
	Unchanged    int        `gorm:"column:unchanged;not null" json:"unchanged"`
	Skipped      int        `gorm:"column:skipped;not null" json:"skipped"`
	Failed       int        `gorm:"column:failed;not null" json:"failed"`
	Quarantined  int        `gorm:"column:quarantined;not null" json:"quarantined"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (SyncRunRecord) TableName() string { return "sync_run_record" }

func (r *SyncRunRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type QuarantineSeverity string

const (
	// SeverityRejected means nothing was written for the submission or entry.
	SeverityRejected QuarantineSeverity = "rejected"
	// SeverityReview means a fact was written with a sentinel reference.
	SeverityReview QuarantineSeverity = "review"
)

type QuarantineEntry struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	SyncRunID    uuid.UUID          `gorm:"type:uuid;column:sync_run_id;not null;index" json:"sync_run_id"`
	FormSourceID uuid.UUID          `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	Parser       string             `gorm:"column:parser;not null" json:"parser"`
	ExternalID   string             `gorm:"column:external_id;index" json:"external_id"`
	Region       string             `gorm:"column:region" json:"region,omitempty"`
	Department   string             `gorm:"column:department" json:"department,omitempty"`
	Commune      string             `gorm:"column:commune" json:"commune,omitempty"`
	SpeciesRaw   string             `gorm:"column:species_raw" json:"species_raw,omitempty"`
	DiseaseRaw   string             `gorm:"column:disease_raw" json:"disease_raw,omitempty"`
	Reason       string             `gorm:"column:reason;type:text;not null" json:"reason"`
	Severity     QuarantineSeverity `gorm:"column:severity;not null;index" json:"severity"`
	Payload      datatypes.JSON     `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (QuarantineEntry) TableName() string { return "quarantine_entry" }

func (q *QuarantineEntry) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
