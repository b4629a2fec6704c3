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

type DiseaseRepo interface {
	// GetOrCreate returns the disease named name, creating it with dtype and
	// needsReview when absent. Existing rows are returned untouched.
	GetOrCreate(dbc dbctx.Context, name, dtype string, needsReview bool) (*types.Disease, error)
	GetByName(dbc dbctx.Context, name string) (*types.Disease, error)
	AttachSpecies(dbc dbctx.Context, disease *types.Disease, species *types.Species) error
	SpeciesOf(dbc dbctx.Context, diseaseID uuid.UUID) ([]*types.Species, error)
	ListNeedsReview(dbc dbctx.Context) ([]*types.Disease, error)
}

type diseaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiseaseRepo(db *gorm.DB, baseLog *logger.Logger) DiseaseRepo {
	return &diseaseRepo{db: db, log: baseLog.With("repo", "DiseaseRepo")}
}

func (r *diseaseRepo) GetByName(dbc dbctx.Context, name string) (*types.Disease, error) {
	var out types.Disease
	if err := dbc.DB(r.db).Where("name = ?", strings.TrimSpace(name)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *diseaseRepo) GetOrCreate(dbc dbctx.Context, name, dtype string, needsReview bool) (*types.Disease, error) {
	if got, err := r.GetByName(dbc, name); err != nil || got != nil {
		return got, err
	}
	row := &types.Disease{
		Name:        strings.TrimSpace(name),
		Type:        dtype,
		NeedsReview: needsReview,
	}
	if err := dbc.DB(r.db).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if got.NeedsReview {
		r.log.Warn("disease created from unmapped name", "name", got.Name)
	}
	return got, nil
}

// AttachSpecies adds species to the disease association. Existing links are
// kept as they are.
func (r *diseaseRepo) AttachSpecies(dbc dbctx.Context, disease *types.Disease, species *types.Species) error {
	if disease == nil || species == nil || disease.ID == uuid.Nil || species.ID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Model(disease).Association("Species").Append(species)
}

func (r *diseaseRepo) SpeciesOf(dbc dbctx.Context, diseaseID uuid.UUID) ([]*types.Species, error) {
	var out []*types.Species
	err := dbc.DB(r.db).
		Joins("JOIN disease_species ds ON ds.species_id = species.id").
		Where("ds.disease_id = ?", diseaseID).
		Order("species.name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *diseaseRepo) ListNeedsReview(dbc dbctx.Context) ([]*types.Disease, error) {
	var out []*types.Disease
	if err := dbc.DB(r.db).Where("needs_review = ?", true).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
