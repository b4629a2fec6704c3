package georesolve

import (
	"errors"
	"fmt"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// ErrMissingRegion is returned when a submission carries no region name. The
// submission cannot be placed and must be quarantined.
var ErrMissingRegion = errors.New("missing region")

const (
	LevelDepartment = "department"
	LevelCommune    = "commune"
)

// Chain is a resolved Region > Department > Commune triple. Substituted lists
// the levels that were missing and replaced by the UNKNOWN sentinel.
type Chain struct {
	Region      *domain.Region
	Department  *domain.Department
	Commune     *domain.Commune
	Substituted []string
}

func (c Chain) Geography() domain.Geography {
	return domain.Geography{
		RegionID:     c.Region.ID,
		DepartmentID: c.Department.ID,
		CommuneID:    c.Commune.ID,
	}
}

type Resolver struct {
	regions     repos.RegionRepo
	departments repos.DepartmentRepo
	communes    repos.CommuneRepo
	log         *logger.Logger
}

func New(regions repos.RegionRepo, departments repos.DepartmentRepo, communes repos.CommuneRepo, baseLog *logger.Logger) *Resolver {
	return &Resolver{
		regions:     regions,
		departments: departments,
		communes:    communes,
		log:         baseLog.With("service", "GeoResolver"),
	}
}

// Resolve looks up or creates the chain, region first, then department scoped
// to the region, then commune scoped to the department.
func (r *Resolver) Resolve(dbc dbctx.Context, region, department, commune string) (Chain, error) {
	var chain Chain

	regionName := normalize.Clean(region)
	if regionName == "" {
		return chain, ErrMissingRegion
	}
	departmentName := normalize.Clean(department)
	if departmentName == "" {
		departmentName = domain.UnknownName
		chain.Substituted = append(chain.Substituted, LevelDepartment)
	}
	communeName := normalize.Clean(commune)
	if communeName == "" {
		communeName = domain.UnknownName
		chain.Substituted = append(chain.Substituted, LevelCommune)
	}

	reg, err := r.regions.GetOrCreate(dbc, regionName)
	if err != nil {
		return chain, fmt.Errorf("resolve region %q: %w", regionName, err)
	}
	dep, err := r.departments.GetOrCreate(dbc, reg.ID, departmentName)
	if err != nil {
		return chain, fmt.Errorf("resolve department %q: %w", departmentName, err)
	}
	com, err := r.communes.GetOrCreate(dbc, dep.ID, communeName)
	if err != nil {
		return chain, fmt.Errorf("resolve commune %q: %w", communeName, err)
	}
	chain.Region, chain.Department, chain.Commune = reg, dep, com

	if len(chain.Substituted) > 0 {
		r.log.Warn("geography sentinel substituted",
			"region", regionName,
			"department", departmentName,
			"commune", communeName,
			"levels", chain.Substituted,
		)
	}
	return chain, nil
}
