package sources

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

type FormSourceRepo interface {
	ListActive(dbc dbctx.Context) ([]*types.FormSource, error)
	List(dbc dbctx.Context) ([]*types.FormSource, error)
	GetByUID(dbc dbctx.Context, uid string) (*types.FormSource, error)
	// UpsertByUID inserts the source or overwrites name, token, base URL,
	// parser and active flag of the row with the same uid.
	UpsertByUID(dbc dbctx.Context, src *types.FormSource) (*types.FormSource, error)
}

type formSourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFormSourceRepo(db *gorm.DB, baseLog *logger.Logger) FormSourceRepo {
	return &formSourceRepo{db: db, log: baseLog.With("repo", "FormSourceRepo")}
}

func (r *formSourceRepo) ListActive(dbc dbctx.Context) ([]*types.FormSource, error) {
	var out []*types.FormSource
	if err := dbc.DB(r.db).Where("active = ?", true).Order("name ASC, uid ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *formSourceRepo) List(dbc dbctx.Context) ([]*types.FormSource, error) {
	var out []*types.FormSource
	if err := dbc.DB(r.db).Order("name ASC, uid ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *formSourceRepo) GetByUID(dbc dbctx.Context, uid string) (*types.FormSource, error) {
	var out types.FormSource
	if err := dbc.DB(r.db).Where("uid = ?", strings.TrimSpace(uid)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *formSourceRepo) UpsertByUID(dbc dbctx.Context, src *types.FormSource) (*types.FormSource, error) {
	if src == nil || strings.TrimSpace(src.UID) == "" {
		return nil, gorm.ErrMissingWhereClause
	}
	src.UID = strings.TrimSpace(src.UID)
	if strings.TrimSpace(src.BaseURL) == "" {
		src.BaseURL = types.DefaultBaseURL
	}
	err := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "token", "base_url", "parser", "active", "updated_at"}),
	}).Create(src).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUID(dbc, src.UID)
}
