package parsers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/georesolve"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/taxonomy"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/upsert"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

// ParseVaccination handles campaign forms: one VaccinationFact per
// (submission, disease, species, commune). Repeat entries sharing that key
// are summed into a single fact.
func ParseVaccination(pc *Context, rec payload.Record) []string {
	id, region, department, msg, ok := pc.requireSubmission(rec)
	if !ok {
		return []string{msg}
	}

	campaignType, ok := normalize.CampaignType(rec.String("Type_de_campagne", "type_campagne"))
	if !ok {
		return []string{pc.quarantine(rec, audit.Quarantine{
			Region:     region,
			Department: department,
			Reason:     fmt.Sprintf("unknown campaign type %q", rec.String("Type_de_campagne", "type_campagne")),
		})}
	}
	label := campaignLabel(pc, rec)

	entries := rec.Groups("Grp5")
	if len(entries) == 0 {
		return []string{fmt.Sprintf("[%s] no vaccination entries", id)}
	}

	var msgs []string
	for _, line := range vaccinationLines(pc, rec, entries, campaignType) {
		ref := line.ref(id)
		var (
			outcome upsert.Outcome
			chain   georesolve.Chain
			tax     taxonomy.Result
			fact    *domain.VaccinationFact
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
			fact = &domain.VaccinationFact{
				ExternalID:    id,
				DiseaseID:     tax.Disease.ID,
				SpeciesID:     tax.Species.ID,
				CommuneID:     chain.Commune.ID,
				RegionID:      chain.Region.ID,
				DepartmentID:  chain.Department.ID,
				FormSourceID:  pc.sourceID(),
				CampaignLabel: label,
				CampaignType:  campaignType,
				Vaccinated:    line.vaccinated,
				Marked:        line.marked,
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
		msgs = append(msgs, fmt.Sprintf("[%s] vaccination %s: %s / %s / %s, %d vaccinated",
			ref, outcome, chain.Commune.Name, tax.Disease.Name, tax.Species.Name, fact.Vaccinated))
		if m, flagged := pc.reviewTaxonomy(rec, ref, chain, tax); flagged {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// mergedLine is one fact's worth of repeat-group entries: every entry that
// maps to the same natural key, with counts summed.
type mergedLine struct {
	entries    []int
	commune    string
	taxonomy   taxonomy.Input
	vaccinated int
	marked     int
	objective  int
}

func (l *mergedLine) ref(id string) string {
	if len(l.entries) == 1 {
		return entryRef(id, l.entries[0])
	}
	parts := make([]string, len(l.entries))
	for i, n := range l.entries {
		parts[i] = strconv.Itoa(n + 1)
	}
	return id + "#" + strings.Join(parts, "+")
}

// lineKey is the pre-resolution form of a natural key. Geography and
// taxonomy rows are looked up by these canonical names, so equal keys resolve
// to equal ids.
func lineKey(pc *Context, commune string, in taxonomy.Input) string {
	names := pc.Taxonomy.Canonical(in)
	c := normalize.Clean(commune)
	if c == "" {
		c = domain.UnknownName
	}
	return c + "\x00" + names.Species + "\x00" + names.Disease
}

// vaccinationLines groups the entries of one submission by commune, species
// and disease, in first-seen order.
func vaccinationLines(pc *Context, rec payload.Record, entries []payload.Record, campaignType domain.CampaignType) []*mergedLine {
	var out []*mergedLine
	byKey := map[string]*mergedLine{}
	for i, entry := range entries {
		e := entry.Inherit(rec)
		in := taxonomy.Input{Species: e.String("espece")}
		var vaccinated, marked int
		if campaignType == domain.CampaignMasse {
			in.Disease = e.String("maladie_masse", "maladie")
			vaccinated = e.Int("vaccine_public") + e.Int("vaccine_prive")
			marked = e.Int("marque_public") + e.Int("marque_prive")
		} else {
			in.Disease = e.String("maladie_ciblee", "maladie")
			vaccinated = e.Int("vaccine")
		}
		commune := e.String("commune")
		key := lineKey(pc, commune, in)
		line, ok := byKey[key]
		if !ok {
			line = &mergedLine{commune: commune, taxonomy: in}
			byKey[key] = line
			out = append(out, line)
		}
		line.entries = append(line.entries, i)
		line.vaccinated += vaccinated
		line.marked += marked
	}
	return out
}

// campaignLabel keeps the submitted label verbatim, else the submission year,
// else the current year.
func campaignLabel(pc *Context, rec payload.Record) string {
	if label := rec.String("Campagne", "campagne"); label != "" {
		return label
	}
	if t := rec.SubmittedAt(); t != nil {
		return strconv.Itoa(t.Year())
	}
	return strconv.Itoa(pc.now().Year())
}

func (c *Context) failEntry(ref string, err error) string {
	c.Run.Failed()
	c.logger().Warn("entry failed", "ref", ref, "error", err)
	return fmt.Sprintf("[%s] failed: %v", ref, err)
}
