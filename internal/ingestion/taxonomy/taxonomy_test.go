package taxonomy

import (
	"context"
	"testing"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/testutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

func newNormalizer(t *testing.T) (*Normalizer, repos.Set, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	set := repos.NewSet(db, testutil.Logger(t))
	return New(nil, set.Species, set.Diseases, testutil.Logger(t)), set, dbctx.Context{Ctx: context.Background()}
}

func TestResolveCanonicalizesAndLinks(t *testing.T) {
	n, set, dbc := newNormalizer(t)
	res, err := n.Resolve(dbc, Input{Species: "moutons", Disease: "Clavelée"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Species.Name != "OVINS" || res.Disease.Name != "CLAVELEE" || res.Disease.NeedsReview {
		t.Fatalf("unexpected result: %s / %+v", res.Species.Name, res.Disease)
	}
	if res.Flags.NeedsReview() {
		t.Fatalf("no review expected: %+v", res.Flags)
	}
	linked, err := set.Diseases.SpeciesOf(dbc, res.Disease.ID)
	if err != nil || len(linked) != 1 || linked[0].ID != res.Species.ID {
		t.Fatalf("species not linked: err=%v linked=%v", err, linked)
	}
}

func TestResolveSplitsCompoundCode(t *testing.T) {
	n, _, dbc := newNormalizer(t)
	res, err := n.Resolve(dbc, Input{Code: "BovinsPPCB"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Species.Name != "BOVINS" || res.Disease.Name != "PERIPNEUMONIE CONTAGIEUSE BOVINE" {
		t.Fatalf("split: %s / %s", res.Species.Name, res.Disease.Name)
	}

	res, err = n.Resolve(dbc, Input{Disease: "OvinsPPR"})
	if err != nil {
		t.Fatalf("Resolve disease token: %v", err)
	}
	if res.Species.Name != "OVINS" || res.Disease.Name != "PPR" {
		t.Fatalf("split disease token: %s / %s", res.Species.Name, res.Disease.Name)
	}
}

func TestResolveUnmappedDiseaseNeedsReview(t *testing.T) {
	n, _, dbc := newNormalizer(t)
	res, err := n.Resolve(dbc, Input{Species: "bovins", Disease: "mal des pattes"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Disease.Name != "MAL DES PATTES" || !res.Disease.NeedsReview || res.Disease.Type != domain.UnknownDiseaseType {
		t.Fatalf("fallback disease: %+v", res.Disease)
	}
	if !res.Flags.DiseaseUnmapped || res.Flags.NeedsReview() {
		t.Fatalf("unmapped disease is flagged, not quarantined: %+v", res.Flags)
	}
}

func TestResolveMissingTokensUseSentinels(t *testing.T) {
	n, set, dbc := newNormalizer(t)
	res, err := n.Resolve(dbc, Input{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Species.Name != domain.UnknownName || res.Disease.Name != domain.UnknownName {
		t.Fatalf("sentinels: %s / %s", res.Species.Name, res.Disease.Name)
	}
	if !res.Flags.SpeciesMissing || !res.Flags.DiseaseMissing || res.Flags.Reason() != "species missing, disease missing" {
		t.Fatalf("flags: %+v", res.Flags)
	}
	linked, _ := set.Diseases.SpeciesOf(dbc, res.Disease.ID)
	if len(linked) != 0 {
		t.Fatalf("sentinels must not be linked")
	}
}

func TestResolveCamelCaseDiseaseKeepsWholeToken(t *testing.T) {
	n, set, dbc := newNormalizer(t)
	res, err := n.Resolve(dbc, Input{Disease: "FievreAphteuse"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Species.Name != domain.UnknownName || !res.Flags.SpeciesMissing {
		t.Fatalf("species must fall back to the sentinel: %s %+v", res.Species.Name, res.Flags)
	}
	if res.DiseaseRaw != "FievreAphteuse" {
		t.Fatalf("disease token must stay whole, got %q", res.DiseaseRaw)
	}
	if sp, err := set.Species.GetByName(dbc, "FIEVRE"); err != nil || sp != nil {
		t.Fatalf("no species may be invented from a disease name: %+v %v", sp, err)
	}
}
