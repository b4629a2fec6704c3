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

type CommuneRepo interface {
	GetOrCreate(dbc dbctx.Context, departmentID uuid.UUID, name string) (*types.Commune, error)
	Get(dbc dbctx.Context, departmentID uuid.UUID, name string) (*types.Commune, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Commune, error)
}

type communeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommuneRepo(db *gorm.DB, baseLog *logger.Logger) CommuneRepo {
	return &communeRepo{db: db, log: baseLog.With("repo", "CommuneRepo")}
}

func (r *communeRepo) Get(dbc dbctx.Context, departmentID uuid.UUID, name string) (*types.Commune, error) {
	var out types.Commune
	err := dbc.DB(r.db).
		Where("department_id = ? AND name = ?", departmentID, strings.TrimSpace(name)).
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

func (r *communeRepo) GetOrCreate(dbc dbctx.Context, departmentID uuid.UUID, name string) (*types.Commune, error) {
	if departmentID == uuid.Nil {
		return nil, gorm.ErrMissingWhereClause
	}
	if got, err := r.Get(dbc, departmentID, name); err != nil || got != nil {
		return got, err
	}
	row := &types.Commune{DepartmentID: departmentID, Name: strings.TrimSpace(name)}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.Get(dbc, departmentID, name)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return got, nil
}

// GetByID preloads the department and its region.
func (r *communeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Commune, error) {
	var out types.Commune
	err := dbc.DB(r.db).
		Preload("Department.Region").
		Where("id = ?", id).
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
