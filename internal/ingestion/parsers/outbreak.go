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

// ParseOutbreak handles outbreak ("foyer") reports: one OutbreakFact per
// submission, keyed on the submission id. The outbreak date is required.
func ParseOutbreak(pc *Context, rec payload.Record) []string {
	id, region, department, msg, ok := pc.requireSubmission(rec)
	if !ok {
		return []string{msg}
	}
	commune := rec.String("commune")

	date := rec.Time("date_foyer", "date_declaration", "date")
	if date == nil {
		return []string{pc.quarantine(rec, audit.Quarantine{
			Region:     region,
			Department: department,
			Commune:    normalize.Clean(commune),
			SpeciesRaw: rec.String("espece"),
			DiseaseRaw: rec.String("maladie", "code_maladie"),
			Reason:     "missing or invalid outbreak date",
		})}
	}

	fact := &domain.OutbreakFact{
		ExternalID:      id,
		FormSourceID:    pc.sourceID(),
		OutbreakDate:    *date,
		DeclarationDate: rec.Time("date_declaration"),
		Locality:        rec.String("lieu", "localite", "village"),
		Susceptible:     rec.Int("sensibles"),
		Sick:            rec.Int("malades"),
		Dead:            rec.Int("morts"),
		Vaccinated:      rec.Int("vaccines"),
		Marked:          rec.Int("marques"),
		Treated:         rec.Int("traites"),
		Quarantined:     rec.Int("quarantaines"),
		Slaughtered:     rec.Int("abattus"),
		SampleTaken:     rec.Bool("prelevement"),
		SampleCount:     rec.Int("nombre_echantillons"),
		SampleDate:      rec.Time("date_prelevement"),
		Laboratory:      rec.String("laboratoire"),
		LabResult:       rec.String("resultat_labo"),
		SubmittedAt:     rec.SubmittedAt(),
	}
	if lat, lon, ok := rec.Geolocation("gps", "geolocalisation", "_geolocation"); ok {
		fact.Latitude, fact.Longitude = &lat, &lon
	}

	var (
		outcome upsert.Outcome
		chain   georesolve.Chain
		tax     taxonomy.Result
	)
	err := pc.Unit(func(dbc dbctx.Context) error {
		var err error
		chain, err = pc.Geo.Resolve(dbc, region, department, commune)
		if err != nil {
			return err
		}
		tax, err = pc.Taxonomy.Resolve(dbc, taxonomy.Input{
			Species: rec.String("espece"),
			Disease: rec.String("maladie"),
			Code:    rec.String("code_maladie"),
		})
		if err != nil {
			return err
		}
		fact.Geography = chain.Geography()
		fact.SpeciesID = tax.Species.ID
		fact.DiseaseID = tax.Disease.ID
		outcome, err = upsert.Upsert(dbc, pc.DB, fact)
		return err
	})
	if err != nil {
		return []string{pc.failEntry(id, err)}
	}
	pc.Run.Record(outcome)
	msgs := []string{fmt.Sprintf("[%s] outbreak %s: %s on %s (%s, %s)",
		id, outcome, tax.Disease.Name, fact.OutbreakDate.Format("2006-01-02"), chain.Region.Name, chain.Commune.Name)}
	if m, flagged := pc.reviewTaxonomy(rec, id, chain, tax); flagged {
		msgs = append(msgs, m)
	}
	return msgs
}
