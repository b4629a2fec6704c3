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

type RegionRepo interface {
	GetOrCreate(dbc dbctx.Context, name string) (*types.Region, error)
	GetByName(dbc dbctx.Context, name string) (*types.Region, error)
	List(dbc dbctx.Context) ([]*types.Region, error)
}

type regionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegionRepo(db *gorm.DB, baseLog *logger.Logger) RegionRepo {
	return &regionRepo{db: db, log: baseLog.With("repo", "RegionRepo")}
}

func (r *regionRepo) GetByName(dbc dbctx.Context, name string) (*types.Region, error) {
	var out types.Region
	if err := dbc.DB(r.db).Where("name = ?", strings.TrimSpace(name)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

// GetOrCreate is safe under concurrent callers: the insert is a no-op on the
// unique name index and the row is read back afterwards.
func (r *regionRepo) GetOrCreate(dbc dbctx.Context, name string) (*types.Region, error) {
	if got, err := r.GetByName(dbc, name); err != nil || got != nil {
		return got, err
	}
	row := &types.Region{Name: strings.TrimSpace(name)}
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
	r.log.Debug("region created", "name", got.Name, "id", got.ID)
	return got, nil
}

func (r *regionRepo) List(dbc dbctx.Context) ([]*types.Region, error) {
	var out []*types.Region
	if err := dbc.DB(r.db).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
