package parsers

import (
	"fmt"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/georesolve"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/upsert"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

// ParseInspection handles border-post sanitary inspections: one
// InspectionFact per inspected product, keyed on (submission, product).
func ParseInspection(pc *Context, rec payload.Record) []string {
	id, region, department, msg, ok := pc.requireSubmission(rec)
	if !ok {
		return []string{msg}
	}
	commune := rec.String("commune")

	lines, missing := productLines(rec)
	var msgs []string
	for _, i := range missing {
		msgs = append(msgs, pc.quarantine(rec, audit.Quarantine{
			Region:     region,
			Department: department,
			Commune:    normalize.Clean(commune),
			Reason:     fmt.Sprintf("%s: missing product", entryRef(id, i)),
		}))
	}
	if len(lines) == 0 {
		return append(msgs, fmt.Sprintf("[%s] no inspected products", id))
	}

	date := rec.Time("date_inspection", "date")
	post := normalize.Clean(rec.String("poste", "poste_controle"))
	kind := normalize.Clean(rec.String("type_inspection"))

	for _, line := range lines {
		ref := id + "/" + line.Product
		var (
			outcome upsert.Outcome
			chain   georesolve.Chain
		)
		err := pc.Unit(func(dbc dbctx.Context) error {
			var err error
			chain, err = pc.Geo.Resolve(dbc, region, department, commune)
			if err != nil {
				return err
			}
			fact := &domain.InspectionFact{
				ExternalID:     id,
				Product:        line.Product,
				FormSourceID:   pc.sourceID(),
				Geography:      chain.Geography(),
				InspectionDate: date,
				Post:           post,
				InspectionType: kind,
				Quantity:       line.Quantity,
				Unit:           line.Unit,
				Decision:       line.Decision,
				SeizedQuantity: line.Seized,
				SubmittedAt:    rec.SubmittedAt(),
			}
			outcome, err = upsert.Upsert(dbc, pc.DB, fact)
			return err
		})
		if err != nil {
			msgs = append(msgs, pc.failEntry(ref, err))
			continue
		}
		pc.Run.Record(outcome)
		msgs = append(msgs, fmt.Sprintf("[%s] inspection %s at %s (%s)", ref, outcome, post, chain.Region.Name))
	}
	return msgs
}
