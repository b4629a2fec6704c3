package facts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CampaignType string

const (
	CampaignMasse  CampaignType = "Masse"
	CampaignCiblee CampaignType = "Ciblee"
)

type TradeDirection string

const (
	TradeImport  TradeDirection = "IMPORT"
	TradeExport  TradeDirection = "EXPORT"
	TradeTransit TradeDirection = "TRANSIT"
)

// Geography is the resolved administrative chain every fact carries.
type Geography struct {
	RegionID     uuid.UUID `gorm:"type:uuid;column:region_id;not null;index" json:"region_id"`
	DepartmentID uuid.UUID `gorm:"type:uuid;column:department_id;not null;index" json:"department_id"`
	CommuneID    uuid.UUID `gorm:"type:uuid;column:commune_id;not null;index" json:"commune_id"`
}

func (g Geography) columns(m map[string]any) map[string]any {
	m["region_id"] = g.RegionID
	m["department_id"] = g.DepartmentID
	m["commune_id"] = g.CommuneID
	return m
}

// VaccinationFact is one administered-dose line for one commune, disease and
// species in one campaign.
type VaccinationFact struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID    string       `gorm:"column:external_id;not null;uniqueIndex:idx_vaccination_natural,priority:1" json:"external_id"`
	DiseaseID     uuid.UUID    `gorm:"type:uuid;column:disease_id;not null;uniqueIndex:idx_vaccination_natural,priority:2" json:"disease_id"`
	SpeciesID     uuid.UUID    `gorm:"type:uuid;column:species_id;not null;uniqueIndex:idx_vaccination_natural,priority:3" json:"species_id"`
	CommuneID     uuid.UUID    `gorm:"type:uuid;column:commune_id;not null;uniqueIndex:idx_vaccination_natural,priority:4" json:"commune_id"`
	RegionID      uuid.UUID    `gorm:"type:uuid;column:region_id;not null;index" json:"region_id"`
	DepartmentID  uuid.UUID    `gorm:"type:uuid;column:department_id;not null;index" json:"department_id"`
	FormSourceID  uuid.UUID    `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	CampaignLabel string       `gorm:"column:campaign_label;not null;index" json:"campaign_label"`
	CampaignType  CampaignType `gorm:"column:campaign_type;not null" json:"campaign_type"`
	Vaccinated    int          `gorm:"column:vaccinated;not null" json:"vaccinated"`
	Marked        int          `gorm:"column:marked;not null" json:"marked"`
	SubmittedAt   *time.Time   `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VaccinationFact) TableName() string { return "vaccination_fact" }

func (f *VaccinationFact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *VaccinationFact) NaturalKey() map[string]any {
	return map[string]any{
		"external_id": f.ExternalID,
		"disease_id":  f.DiseaseID,
		"species_id":  f.SpeciesID,
		"commune_id":  f.CommuneID,
	}
}

func (f *VaccinationFact) Mutable() map[string]any {
	return map[string]any{
		"region_id":      f.RegionID,
		"department_id":  f.DepartmentID,
		"form_source_id": f.FormSourceID,
		"campaign_label": f.CampaignLabel,
		"campaign_type":  f.CampaignType,
		"vaccinated":     f.Vaccinated,
		"marked":         f.Marked,
		"submitted_at":   f.SubmittedAt,
	}
}

// OutbreakFact is one disease-outbreak report ("foyer"), keyed on the
// submission id alone.
type OutbreakFact struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID   string    `gorm:"column:external_id;not null;uniqueIndex:idx_outbreak_external_id" json:"external_id"`
	FormSourceID uuid.UUID `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	Geography
	SpeciesID uuid.UUID `gorm:"type:uuid;column:species_id;not null;index" json:"species_id"`
	DiseaseID uuid.UUID `gorm:"type:uuid;column:disease_id;not null;index" json:"disease_id"`

	OutbreakDate    time.Time  `gorm:"column:outbreak_date;not null;index" json:"outbreak_date"`
	DeclarationDate *time.Time `gorm:"column:declaration_date" json:"declaration_date,omitempty"`
	Locality        string     `gorm:"column:locality" json:"locality,omitempty"`
	Latitude        *float64   `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude       *float64   `gorm:"column:longitude" json:"longitude,omitempty"`

	Susceptible int `gorm:"column:susceptible;not null" json:"susceptible"`
	Sick        int `gorm:"column:sick;not null" json:"sick"`
	Dead        int `gorm:"column:dead;not null" json:"dead"`
	Vaccinated  int `gorm:"column:vaccinated;not null" json:"vaccinated"`
	Marked      int `gorm:"column:marked;not null" json:"marked"`
	Treated     int `gorm:"column:treated;not null" json:"treated"`
	Quarantined int `gorm:"column:quarantined;not null" json:"quarantined"`
	Slaughtered int `gorm:"column:slaughtered;not null" json:"slaughtered"`

	SampleTaken bool       `gorm:"column:sample_taken;not null" json:"sample_taken"`
	SampleCount int        `gorm:"column:sample_count;not null" json:"sample_count"`
	SampleDate  *time.Time `gorm:"column:sample_date" json:"sample_date,omitempty"`
	Laboratory  string     `gorm:"column:laboratory" json:"laboratory,omitempty"`
	LabResult   string     `gorm:"column:lab_result" json:"lab_result,omitempty"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutbreakFact) TableName() string { return "outbreak_fact" }

func (f *OutbreakFact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *OutbreakFact) NaturalKey() map[string]any {
	return map[string]any{"external_id": f.ExternalID}
}

func (f *OutbreakFact) Mutable() map[string]any {
	return f.Geography.columns(map[string]any{
		"form_source_id":   f.FormSourceID,
		"species_id":       f.SpeciesID,
		"disease_id":       f.DiseaseID,
		"outbreak_date":    f.OutbreakDate,
		"declaration_date": f.DeclarationDate,
		"locality":         f.Locality,
		"latitude":         f.Latitude,
		"longitude":        f.Longitude,
		"susceptible":      f.Susceptible,
		"sick":             f.Sick,
		"dead":             f.Dead,
		"vaccinated":       f.Vaccinated,
		"marked":           f.Marked,
		"treated":          f.Treated,
		"quarantined":      f.Quarantined,
		"slaughtered":      f.Slaughtered,
		"sample_taken":     f.SampleTaken,
		"sample_count":     f.SampleCount,
		"sample_date":      f.SampleDate,
		"laboratory":       f.Laboratory,
		"lab_result":       f.LabResult,
		"submitted_at":     f.SubmittedAt,
	})
}

// ObjectiveFact is one annual vaccination target for a region.
type ObjectiveFact struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignLabel string     `gorm:"column:campaign_label;not null;uniqueIndex:idx_objective_natural,priority:1" json:"campaign_label"`
	DiseaseID     uuid.UUID  `gorm:"type:uuid;column:disease_id;not null;uniqueIndex:idx_objective_natural,priority:2" json:"disease_id"`
	SpeciesID     uuid.UUID  `gorm:"type:uuid;column:species_id;not null;uniqueIndex:idx_objective_natural,priority:3" json:"species_id"`
	RegionID      uuid.UUID  `gorm:"type:uuid;column:region_id;not null;uniqueIndex:idx_objective_natural,priority:4" json:"region_id"`
	ExternalID    string     `gorm:"column:external_id;not null;uniqueIndex:idx_objective_natural,priority:5" json:"external_id"`
	DepartmentID  uuid.UUID  `gorm:"type:uuid;column:department_id;not null" json:"department_id"`
	CommuneID     uuid.UUID  `gorm:"type:uuid;column:commune_id;not null" json:"commune_id"`
	FormSourceID  uuid.UUID  `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	Year          int        `gorm:"column:year;not null;index" json:"year"`
	Objective     int        `gorm:"column:objective;not null" json:"objective"`
	SubmittedAt   *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ObjectiveFact) TableName() string { return "objective_fact" }

func (f *ObjectiveFact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *ObjectiveFact) NaturalKey() map[string]any {
	return map[string]any{
		"campaign_label": f.CampaignLabel,
		"disease_id":     f.DiseaseID,
		"species_id":     f.SpeciesID,
		"region_id":      f.RegionID,
		"external_id":    f.ExternalID,
	}
}

func (f *ObjectiveFact) Mutable() map[string]any {
	return map[string]any{
		"department_id":  f.DepartmentID,
		"commune_id":     f.CommuneID,
		"form_source_id": f.FormSourceID,
		"year":           f.Year,
		"objective":      f.Objective,
		"submitted_at":   f.SubmittedAt,
	}
}

// InspectionFact is one inspected product line at a border post.
type InspectionFact struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID     string    `gorm:"column:external_id;not null;uniqueIndex:idx_inspection_natural,priority:1" json:"external_id"`
	Product        string    `gorm:"column:product;not null;uniqueIndex:idx_inspection_natural,priority:2" json:"product"`
	FormSourceID   uuid.UUID `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	Geography
	InspectionDate *time.Time `gorm:"column:inspection_date;index" json:"inspection_date,omitempty"`
	Post           string     `gorm:"column:post" json:"post,omitempty"`
	InspectionType string     `gorm:"column:inspection_type" json:"inspection_type,omitempty"`
	Quantity       float64    `gorm:"column:quantity;not null" json:"quantity"`
	Unit           string     `gorm:"column:unit" json:"unit,omitempty"`
	Decision       string     `gorm:"column:decision" json:"decision,omitempty"`
	SeizedQuantity float64    `gorm:"column:seized_quantity;not null" json:"seized_quantity"`
	SubmittedAt    *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InspectionFact) TableName() string { return "inspection_fact" }

func (f *InspectionFact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *InspectionFact) NaturalKey() map[string]any {
	return map[string]any{"external_id": f.ExternalID, "product": f.Product}
}

func (f *InspectionFact) Mutable() map[string]any {
	return f.Geography.columns(map[string]any{
		"form_source_id":  f.FormSourceID,
		"inspection_date": f.InspectionDate,
		"post":            f.Post,
		"inspection_type": f.InspectionType,
		"quantity":        f.Quantity,
		"unit":            f.Unit,
		"decision":        f.Decision,
		"seized_quantity": f.SeizedQuantity,
		"submitted_at":    f.SubmittedAt,
	})
}

// TradeOperationFact is one import/export product line. Rows are written once
// per submission and never updated.
type TradeOperationFact struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID     string         `gorm:"column:external_id;not null;uniqueIndex:idx_trade_natural,priority:1" json:"external_id"`
	Product        string         `gorm:"column:product;not null;uniqueIndex:idx_trade_natural,priority:2" json:"product"`
	FormSourceID   uuid.UUID      `gorm:"type:uuid;column:form_source_id;not null;index" json:"form_source_id"`
	Geography
	OperationType  TradeDirection `gorm:"column:operation_type;not null;index" json:"operation_type"`
	Country        string         `gorm:"column:country" json:"country,omitempty"`
	Continent      string         `gorm:"column:continent" json:"continent,omitempty"`
	Post           string         `gorm:"column:post" json:"post,omitempty"`
	OperationDate  *time.Time     `gorm:"column:operation_date;index" json:"operation_date,omitempty"`
	FlightNumber   string         `gorm:"column:flight_number" json:"flight_number,omitempty"`
	Carrier        string         `gorm:"column:carrier" json:"carrier,omitempty"`
	TransitCountry string         `gorm:"column:transit_country" json:"transit_country,omitempty"`
	Quantity       float64        `gorm:"column:quantity;not null" json:"quantity"`
	Unit           string         `gorm:"column:unit" json:"unit,omitempty"`
	SubmittedAt    *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (TradeOperationFact) TableName() string { return "trade_operation_fact" }

func (f *TradeOperationFact) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
