package taxonomy

import (
	"fmt"
	"strings"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// Input carries the raw tokens of one submission line. Code is a compound
// species+disease token used when Disease is blank.
type Input struct {
	Species string
	Disease string
	Code    string
}

// Flags records what was recovered while resolving. A missing species or
// disease was replaced by the UNKNOWN sentinel and needs review.
type Flags struct {
	SpeciesMissing  bool
	DiseaseMissing  bool
	DiseaseUnmapped bool
}

func (f Flags) NeedsReview() bool { return f.SpeciesMissing || f.DiseaseMissing }

func (f Flags) Reason() string {
	var parts []string
	if f.SpeciesMissing {
		parts = append(parts, "species missing")
	}
	if f.DiseaseMissing {
		parts = append(parts, "disease missing")
	}
	return strings.Join(parts, ", ")
}

type Result struct {
	Species *domain.Species
	Disease *domain.Disease
	Flags   Flags
	// Raw tokens after splitting, kept for quarantine entries.
	SpeciesRaw string
	DiseaseRaw string
}

type Normalizer struct {
	table    *normalize.Table
	species  repos.SpeciesRepo
	diseases repos.DiseaseRepo
	log      *logger.Logger
}

func New(table *normalize.Table, species repos.SpeciesRepo, diseases repos.DiseaseRepo, baseLog *logger.Logger) *Normalizer {
	if table == nil {
		table = normalize.Default(baseLog)
	}
	return &Normalizer{
		table:    table,
		species:  species,
		diseases: diseases,
		log:      baseLog.With("service", "TaxonomyNormalizer"),
	}
}

// Names are the canonical names Resolve looks up for one input. Two inputs
// with equal Names resolve to the same Species and Disease rows.
type Names struct {
	Species     string
	Disease     string
	DiseaseType string
	Known       bool
	Flags       Flags
	SpeciesRaw  string
	DiseaseRaw  string
}

// Canonical computes Names without touching the database.
func (n *Normalizer) Canonical(in Input) Names {
	speciesRaw := strings.TrimSpace(in.Species)
	diseaseRaw := strings.TrimSpace(in.Disease)

	if diseaseRaw == "" && strings.TrimSpace(in.Code) != "" {
		sp, d := n.table.SplitSpeciesDisease(in.Code)
		diseaseRaw = d
		if speciesRaw == "" {
			speciesRaw = sp
		}
	} else if speciesRaw == "" && diseaseRaw != "" && !strings.ContainsAny(diseaseRaw, " \t") {
		// Only a known species prefix makes a compound code; "FievreAphteuse"
		// stays a disease name.
		if sp, d := n.table.SplitSpeciesDisease(diseaseRaw); sp != "" {
			if _, known := n.table.LookupSpecies(sp); known {
				speciesRaw, diseaseRaw = sp, d
			}
		}
	}

	out := Names{SpeciesRaw: speciesRaw, DiseaseRaw: diseaseRaw}
	out.Species = n.table.CanonicalSpecies(speciesRaw)
	if out.Species == "" {
		out.Species = domain.UnknownName
		out.Flags.SpeciesMissing = true
	}
	out.Disease, out.DiseaseType, out.Known = n.table.CanonicalDisease(diseaseRaw)
	switch {
	case out.Disease == "":
		out.Disease, out.DiseaseType = domain.UnknownName, domain.UnknownDiseaseType
		out.Flags.DiseaseMissing = true
	case !out.Known:
		out.Flags.DiseaseUnmapped = true
	}
	return out
}

// Resolve maps raw tokens to Species and Disease rows, creating them on first
// sight and linking the species to the disease.
func (n *Normalizer) Resolve(dbc dbctx.Context, in Input) (Result, error) {
	names := n.Canonical(in)
	res := Result{SpeciesRaw: names.SpeciesRaw, DiseaseRaw: names.DiseaseRaw, Flags: names.Flags}
	speciesName, diseaseName, diseaseType := names.Species, names.Disease, names.DiseaseType
	needsReview := !names.Known
	if names.Flags.DiseaseUnmapped {
		n.log.Warn("disease not in alias table", "raw", names.DiseaseRaw, "name", diseaseName)
	}

	sp, err := n.species.GetOrCreate(dbc, speciesName)
	if err != nil {
		return res, fmt.Errorf("resolve species %q: %w", speciesName, err)
	}
	d, err := n.diseases.GetOrCreate(dbc, diseaseName, diseaseType, needsReview)
	if err != nil {
		return res, fmt.Errorf("resolve disease %q: %w", diseaseName, err)
	}
	if !res.Flags.SpeciesMissing && !res.Flags.DiseaseMissing {
		if err := n.diseases.AttachSpecies(dbc, d, sp); err != nil {
			return res, fmt.Errorf("link %s to %s: %w", sp.Name, d.Name, err)
		}
	}
	res.Species, res.Disease = sp, d
	return res, nil
}
