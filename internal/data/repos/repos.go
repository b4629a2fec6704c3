package repos

import (
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/geo"
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/sources"
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/taxonomy"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
	"gorm.io/gorm"
)

type RegionRepo = geo.RegionRepo
type DepartmentRepo = geo.DepartmentRepo
type CommuneRepo = geo.CommuneRepo

type SpeciesRepo = taxonomy.SpeciesRepo
type DiseaseRepo = taxonomy.DiseaseRepo

type FormSourceRepo = sources.FormSourceRepo
type SyncRunRepo = sources.SyncRunRepo
type QuarantineRepo = sources.QuarantineRepo

// Set groups every repository built over one database handle.
type Set struct {
	Regions     RegionRepo
	Departments DepartmentRepo
	Communes    CommuneRepo
	Species     SpeciesRepo
	Diseases    DiseaseRepo
	FormSources FormSourceRepo
	SyncRuns    SyncRunRepo
	Quarantine  QuarantineRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Regions:     geo.NewRegionRepo(db, baseLog),
		Departments: geo.NewDepartmentRepo(db, baseLog),
		Communes:    geo.NewCommuneRepo(db, baseLog),
		Species:     taxonomy.NewSpeciesRepo(db, baseLog),
		Diseases:    taxonomy.NewDiseaseRepo(db, baseLog),
		FormSources: sources.NewFormSourceRepo(db, baseLog),
		SyncRuns:    sources.NewSyncRunRepo(db, baseLog),
		Quarantine:  sources.NewQuarantineRepo(db, baseLog),
	}
}
