package geo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownName is the sentinel used when a department or commune is missing
// from a submission that is otherwise usable.
const UnknownName = "UNKNOWN"

type Region struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_geo_region_name" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Region) TableName() string { return "geo_region" }

func (r *Region) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RegionID  uuid.UUID `gorm:"type:uuid;column:region_id;not null;uniqueIndex:idx_geo_department_region_name" json:"region_id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_geo_department_region_name" json:"name"`
	Region    *Region   `gorm:"foreignKey:RegionID" json:"region,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Department) TableName() string { return "geo_department" }

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type Commune struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	DepartmentID uuid.UUID   `gorm:"type:uuid;column:department_id;not null;uniqueIndex:idx_geo_commune_department_name" json:"department_id"`
	Name         string      `gorm:"column:name;not null;uniqueIndex:idx_geo_commune_department_name" json:"name"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Commune) TableName() string { return "geo_commune" }

func (c *Commune) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
