package taxonomy

import (
	"context"
	"testing"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/testutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

func TestDiseaseSpeciesAssociationAccumulates(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	species := NewSpeciesRepo(db, log)
	diseases := NewDiseaseRepo(db, log)

	ovins, err := species.GetOrCreate(dbc, "OVINS")
	if err != nil {
		t.Fatalf("species: %v", err)
	}
	caprins, err := species.GetOrCreate(dbc, "CAPRINS")
	if err != nil {
		t.Fatalf("species: %v", err)
	}
	ppr, err := diseases.GetOrCreate(dbc, "PPR", "VIRALE", false)
	if err != nil {
		t.Fatalf("disease: %v", err)
	}

	if err := diseases.AttachSpecies(dbc, ppr, ovins); err != nil {
		t.Fatalf("attach ovins: %v", err)
	}
	if err := diseases.AttachSpecies(dbc, ppr, caprins); err != nil {
		t.Fatalf("attach caprins: %v", err)
	}
	if err := diseases.AttachSpecies(dbc, ppr, ovins); err != nil {
		t.Fatalf("attach ovins again: %v", err)
	}

	linked, err := diseases.SpeciesOf(dbc, ppr.ID)
	if err != nil {
		t.Fatalf("SpeciesOf: %v", err)
	}
	if len(linked) != 2 || linked[0].Name != "CAPRINS" || linked[1].Name != "OVINS" {
		t.Fatalf("unexpected association: %+v", linked)
	}
}

func TestGetOrCreateKeepsExistingFlags(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	diseases := NewDiseaseRepo(db, testutil.Logger(t))

	first, err := diseases.GetOrCreate(dbc, "MALADIE X", "INCONNU", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := diseases.GetOrCreate(dbc, "MALADIE X", "VIRALE", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.ID != first.ID || !second.NeedsReview || second.Type != "INCONNU" {
		t.Fatalf("existing row must be returned untouched: %+v", second)
	}

	review, err := diseases.ListNeedsReview(dbc)
	if err != nil || len(review) != 1 {
		t.Fatalf("ListNeedsReview: err=%v len=%d", err, len(review))
	}
}
