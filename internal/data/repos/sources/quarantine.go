package sources

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

type QuarantineRepo interface {
	Create(dbc dbctx.Context, entries []*types.QuarantineEntry) ([]*types.QuarantineEntry, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.QuarantineEntry, error)
}

type quarantineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuarantineRepo(db *gorm.DB, baseLog *logger.Logger) QuarantineRepo {
	return &quarantineRepo{db: db, log: baseLog.With("repo", "QuarantineRepo")}
}

func (r *quarantineRepo) Create(dbc dbctx.Context, entries []*types.QuarantineEntry) ([]*types.QuarantineEntry, error) {
	if len(entries) == 0 {
		return []*types.QuarantineEntry{}, nil
	}
	if err := dbc.DB(r.db).CreateInBatches(entries, 100).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *quarantineRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.QuarantineEntry, error) {
	var out []*types.QuarantineEntry
	if runID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("sync_run_id = ?", runID).Order("created_at ASC, external_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
