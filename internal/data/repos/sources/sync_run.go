package sources

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

const maxListLimit = 500

type SyncRunRepo interface {
	Create(dbc dbctx.Context, run *types.SyncRunRecord) (*types.SyncRunRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncRunRecord, error)
	// ListRecent returns the newest runs first, optionally filtered by source uid.
	ListRecent(dbc dbctx.Context, sourceUID string, limit int) ([]*types.SyncRunRecord, error)
}

type syncRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	return &syncRunRepo{db: db, log: baseLog.With("repo", "SyncRunRepo")}
}

func (r *syncRunRepo) Create(dbc dbctx.Context, run *types.SyncRunRecord) (*types.SyncRunRecord, error) {
	if err := dbc.DB(r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *syncRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncRunRecord, error) {
	var out types.SyncRunRecord
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *syncRunRepo) ListRecent(dbc dbctx.Context, sourceUID string, limit int) ([]*types.SyncRunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	q := dbc.DB(r.db)
	if uid := strings.TrimSpace(sourceUID); uid != "" {
		q = q.Where("source_uid = ?", uid)
	}
	var out []*types.SyncRunRecord
	if err := q.Order("ran_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
