package taxonomy

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

type SpeciesRepo interface {
	GetOrCreate(dbc dbctx.Context, name string) (*types.Species, error)
	GetByName(dbc dbctx.Context, name string) (*types.Species, error)
	List(dbc dbctx.Context) ([]*types.Species, error)
}

type speciesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) SpeciesRepo {
	return &speciesRepo{db: db, log: baseLog.With("repo", "SpeciesRepo")}
}

func (r *speciesRepo) GetByName(dbc dbctx.Context, name string) (*types.Species, error) {
	var out types.Species
	if err := dbc.DB(r.db).Where("name = ?", strings.TrimSpace(name)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *speciesRepo) GetOrCreate(dbc dbctx.Context, name string) (*types.Species, error) {
	if got, err := r.GetByName(dbc, name); err != nil || got != nil {
		return got, err
	}
	row := &types.Species{Name: strings.TrimSpace(name)}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, gorm.ErrRecordNotFound
	}
	r.log.Debug("species created", "name", got.Name)
	return got, nil
}

func (r *speciesRepo) List(dbc dbctx.Context) ([]*types.Species, error) {
	var out []*types.Species
	if err := dbc.DB(r.db).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
