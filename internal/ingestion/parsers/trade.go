package parsers

import (
	"fmt"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/upsert"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

// ParseTradeOperation handles import/export declarations. The product list
// of a submission is written once; a submission already imported is skipped
// without diffing its lines.
func ParseTradeOperation(pc *Context, rec payload.Record) []string {
	id, region, department, msg, ok := pc.requireSubmission(rec)
	if !ok {
		return []string{msg}
	}
	commune := rec.String("commune")

	direction, ok := normalize.TradeDirection(rec.String("type_operation"))
	if !ok {
		return []string{pc.quarantine(rec, audit.Quarantine{
			Region:     region,
			Department: department,
			Commune:    normalize.Clean(commune),
			Reason:     fmt.Sprintf("unknown operation type %q", rec.String("type_operation")),
		})}
	}

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
		return append(msgs, fmt.Sprintf("[%s] no traded products", id))
	}

	var outcome upsert.Outcome
	err := pc.Unit(func(dbc dbctx.Context) error {
		chain, err := pc.Geo.Resolve(dbc, region, department, commune)
		if err != nil {
			return err
		}
		rows := make([]*domain.TradeOperationFact, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, &domain.TradeOperationFact{
				ExternalID:     id,
				Product:        line.Product,
				FormSourceID:   pc.sourceID(),
				Geography:      chain.Geography(),
				OperationType:  direction,
				Country:        normalize.Clean(rec.String("pays")),
				Continent:      normalize.Clean(rec.String("continent")),
				Post:           normalize.Clean(rec.String("poste", "poste_controle")),
				OperationDate:  rec.Time("date_operation", "date"),
				FlightNumber:   normalize.Clean(rec.String("numero_vol")),
				Carrier:        rec.String("compagnie"),
				TransitCountry: normalize.Clean(rec.String("pays_transit")),
				Quantity:       line.Quantity,
				Unit:           line.Unit,
				SubmittedAt:    rec.SubmittedAt(),
			})
		}
		outcome, err = upsert.CreateOnce(dbc, pc.DB, id, rows)
		return err
	})
	if err != nil {
		return append(msgs, pc.failEntry(id, err))
	}
	if outcome == upsert.Created {
		for range lines {
			pc.Run.Record(upsert.Created)
		}
		return append(msgs, fmt.Sprintf("[%s] trade %s: %d product lines (%s)", id, outcome, len(lines), direction))
	}
	pc.Run.Record(outcome)
	return append(msgs, fmt.Sprintf("[%s] trade %s: already imported", id, outcome))
}
