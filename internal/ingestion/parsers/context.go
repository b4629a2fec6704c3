package parsers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/georesolve"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/taxonomy"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

/*
Context is the execution handle a parser receives for one FormSource run.
It carries:
  - the request context and the database handle,
  - the FormSource being synced,
  - the geography resolver and taxonomy normalizer,
  - the run collector that counts outcomes and holds quarantine entries.

Parsers write facts only inside Unit, so every nested entry commits or rolls
back on its own.
*/
type Context struct {
	Ctx      context.Context
	DB       *gorm.DB
	Source   *domain.FormSource
	Geo      *georesolve.Resolver
	Taxonomy *taxonomy.Normalizer
	Run      *audit.Run
	Log      *logger.Logger
	Now      func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) logger() *logger.Logger {
	if c.Log == nil {
		return logger.Nop()
	}
	return c.Log
}

func (c *Context) sourceID() uuid.UUID {
	if c.Source != nil {
		return c.Source.ID
	}
	return uuid.Nil
}

// Unit runs fn in its own transaction.
func (c *Context) Unit(fn func(dbc dbctx.Context) error) error {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// quarantine records q for rec, filling the external id and payload.
func (c *Context) quarantine(rec payload.Record, q audit.Quarantine) string {
	if q.ExternalID == "" {
		q.ExternalID = rec.ID()
	}
	if q.Payload == nil {
		q.Payload = rec.JSON()
	}
	msg := c.Run.Quarantine(q)
	c.logger().Warn("submission quarantined",
		"external_id", q.ExternalID,
		"reason", q.Reason,
		"severity", q.Severity,
	)
	return msg
}

// requireSubmission checks the fields every parser needs before any write:
// the external id and a region. Region and department are returned cleaned.
func (c *Context) requireSubmission(rec payload.Record) (id, region, department string, msg string, ok bool) {
	id = rec.ID()
	region = normalize.Clean(rec.String("region"))
	department = normalize.Clean(rec.String("departement", "department"))
	if id == "" {
		return "", region, department, c.quarantine(rec, audit.Quarantine{
			ExternalID: "?",
			Region:     region,
			Department: department,
			Reason:     "missing submission id",
		}), false
	}
	if region == "" {
		return id, region, department, c.quarantine(rec, audit.Quarantine{
			ExternalID: id,
			Department: department,
			Commune:    normalize.Clean(rec.String("commune")),
			Reason:     georesolve.ErrMissingRegion.Error(),
		}), false
	}
	return id, region, department, "", true
}

// reviewTaxonomy quarantines a written fact whose species or disease fell
// back to the UNKNOWN sentinel.
func (c *Context) reviewTaxonomy(rec payload.Record, ref string, chain georesolve.Chain, res taxonomy.Result) (string, bool) {
	if !res.Flags.NeedsReview() {
		return "", false
	}
	region, department, commune := chainNames(chain)
	return c.quarantine(rec, audit.Quarantine{
		Region:     region,
		Department: department,
		Commune:    commune,
		SpeciesRaw: res.SpeciesRaw,
		DiseaseRaw: res.DiseaseRaw,
		Reason:     fmt.Sprintf("%s: %s", ref, res.Flags.Reason()),
		Severity:   domain.SeverityReview,
	}), true
}

func chainNames(chain georesolve.Chain) (region, department, commune string) {
	if chain.Region != nil {
		region = chain.Region.Name
	}
	if chain.Department != nil {
		department = chain.Department.Name
	}
	if chain.Commune != nil {
		commune = chain.Commune.Name
	}
	return region, department, commune
}

// entryRef names the i-th repeat-group entry of a submission in messages.
func entryRef(id string, i int) string {
	return fmt.Sprintf("%s#%d", id, i+1)
}
