package parsers

import (
	"fmt"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/georesolve"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/taxonomy"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/upsert"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

const (
	minYear = 1990
	maxYear = 2100
)

// ParseObjective handles annual target forms. The campaign label is derived
// from the submitted year as "{year-1}-{year}".
func ParseObjective(pc *Context, rec payload.Record) []string {
	id, region, department, msg, ok := pc.requireSubmission(rec)
	if !ok {
		return []string{msg}
	}
	year := rec.Int("annee", "year")
	if year < minYear || year > maxYear {
		return []string{pc.quarantine(rec, audit.Quarantine{
			Region:     region,
			Department: department,
			Reason:     fmt.Sprintf("missing or invalid year %q", rec.String("annee", "year")),
		})}
	}
	label := fmt.Sprintf("%d-%d", year-1, year)

	entries := rec.Groups("objectifs", "Grp_objectifs")
	if len(entries) == 0 && rec.Has("objectif") {
		entries = []payload.Record{rec}
	}
	if len(entries) == 0 {
		return []string{fmt.Sprintf("[%s] no objective entries", id)}
	}

	var msgs []string
	for _, line := range objectiveLines(pc, rec, entries) {
		ref := line.ref(id)
		var (
			outcome upsert.Outcome
			chain   georesolve.Chain
			tax     taxonomy.Result
			fact    *domain.ObjectiveFact
		)
		err := pc.Unit(func(dbc dbctx.Context) error {
			var err error
			chain, err = pc.Geo.Resolve(dbc, region, department, line.commune)
			if err != nil {
				return err
			}
			tax, err = pc.Taxonomy.Resolve(dbc, line.taxonomy)
			if err != nil {
				return err
			}
			fact = &domain.ObjectiveFact{
				CampaignLabel: label,
				DiseaseID:     tax.Disease.ID,
				SpeciesID:     tax.Species.ID,
				RegionID:      chain.Region.ID,
				ExternalID:    id,
				DepartmentID:  chain.Department.ID,
				CommuneID:     chain.Commune.ID,
				FormSourceID:  pc.sourceID(),
				Year:          year,
				Objective:     line.objective,
				SubmittedAt:   rec.SubmittedAt(),
			}
			outcome, err = upsert.Upsert(dbc, pc.DB, fact)
			return err
		})
		if err != nil {
			msgs = append(msgs, pc.failEntry(ref, err))
			continue
		}
		pc.Run.Record(outcome)
		msgs = append(msgs, fmt.Sprintf("[%s] objective %s: %s %s / %s, target %d",
			ref, outcome, label, tax.Disease.Name, tax.Species.Name, fact.Objective))
		if m, flagged := pc.reviewTaxonomy(rec, ref, chain, tax); flagged {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// objectiveLines groups entries by species and disease. A target is keyed
// per region, so entries spread over several communes are summed under the
// department's UNKNOWN commune.
func objectiveLines(pc *Context, rec payload.Record, entries []payload.Record) []*mergedLine {
	var out []*mergedLine
	byKey := map[string]*mergedLine{}
	for i, entry := range entries {
		e := entry.Inherit(rec)
		in := taxonomy.Input{
			Species: e.String("espece"),
			Disease: e.String("maladie"),
			Code:    e.String("code_maladie"),
		}
		commune := e.String("commune")
		key := lineKey(pc, "", in)
		line, ok := byKey[key]
		if !ok {
			line = &mergedLine{commune: commune, taxonomy: in}
			byKey[key] = line
			out = append(out, line)
		} else if normalize.Clean(line.commune) != normalize.Clean(commune) {
			line.commune = ""
		}
		line.entries = append(line.entries, i)
		line.objective += e.Int("objectif")
	}
	return out
}
