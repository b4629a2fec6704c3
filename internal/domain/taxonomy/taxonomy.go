package taxonomy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownName stands in for a species or disease token that was empty.
const UnknownName = "UNKNOWN"

// UnknownType is the disease type recorded when the alias table has no entry.
const UnknownType = "INCONNU"

type Species struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_species_name" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Species) TableName() string { return "species" }

func (s *Species) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Disease is a canonical disease reference. NeedsReview marks rows created
// from a name the alias table did not know, so an operator can merge them.
// The Species association only ever grows.
type Disease struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null;uniqueIndex:idx_disease_name" json:"name"`
	Type        string     `gorm:"column:type;not null" json:"type"`
	NeedsReview bool       `gorm:"column:needs_review;not null;index" json:"needs_review"`
	Species     []*Species `gorm:"many2many:disease_species" json:"species,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Disease) TableName() string { return "disease" }

func (d *Disease) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
