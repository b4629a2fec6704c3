package geo

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

type DepartmentRepo interface {
	GetOrCreate(dbc dbctx.Context, regionID uuid.UUID, name string) (*types.Department, error)
	Get(dbc dbctx.Context, regionID uuid.UUID, name string) (*types.Department, error)
	ListByRegion(dbc dbctx.Context, regionID uuid.UUID) ([]*types.Department, error)
}

type departmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentRepo {
	return &departmentRepo{db: db, log: baseLog.With("repo", "DepartmentRepo")}
}

func (r *departmentRepo) Get(dbc dbctx.Context, regionID uuid.UUID, name string) (*types.Department, error) {
	var out types.Department
	err := dbc.DB(r.db).
		Where("region_id = ? AND name = ?", regionID, strings.TrimSpace(name)).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *departmentRepo) GetOrCreate(dbc dbctx.Context, regionID uuid.UUID, name string) (*types.Department, error) {
	if regionID == uuid.Nil {
		return nil, gorm.ErrMissingWhereClause
	}
	if got, err := r.Get(dbc, regionID, name); err != nil || got != nil {
		return got, err
	}
	row := &types.Department{RegionID: regionID, Name: strings.TrimSpace(name)}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.Get(dbc, regionID, name)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return got, nil
}

func (r *departmentRepo) ListByRegion(dbc dbctx.Context, regionID uuid.UUID) ([]*types.Department, error) {
	var out []*types.Department
	if err := dbc.DB(r.db).Where("region_id = ?", regionID).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
