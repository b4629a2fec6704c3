package parsers

import (
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
)

// productLine is one product entry of an inspection or trade submission.
type productLine struct {
	Product  string
	Quantity float64
	Unit     string
	Decision string
	Seized   float64
}

// productLines reads product entries. Lines naming the same product are
// merged by summing quantities so a submission maps to one row per product.
// Entries without a product are returned as indexes in missing.
func productLines(rec payload.Record) (lines []productLine, missing []int) {
	entries := rec.Groups("produits", "Grp_produits", "marchandises")
	if len(entries) == 0 && rec.Has("produit") {
		entries = []payload.Record{rec}
	}
	index := map[string]int{}
	for i, entry := range entries {
		e := entry.Inherit(rec)
		product := normalize.Clean(e.String("produit", "marchandise"))
		if product == "" {
			missing = append(missing, i)
			continue
		}
		line := productLine{
			Product:  product,
			Quantity: e.Float("quantite"),
			Unit:     normalize.Clean(e.String("unite")),
			Decision: normalize.Clean(e.String("decision")),
			Seized:   e.Float("quantite_saisie"),
		}
		if at, seen := index[product]; seen {
			lines[at].Quantity += line.Quantity
			lines[at].Seized += line.Seized
			if lines[at].Unit == "" {
				lines[at].Unit = line.Unit
			}
			if lines[at].Decision == "" {
				lines[at].Decision = line.Decision
			}
			continue
		}
		index[product] = len(lines)
		lines = append(lines, line)
	}
	return lines, missing
}
