package payload

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, src string) Record {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(src)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return Normalize(raw)
}

func TestGroupPrefixedLookup(t *testing.T) {
	r := decode(t, `{"_id": 42, "Grp4/region": " DAKAR ", "Grp4/departement": "pikine", "Type_de_campagne": "masse"}`)
	if got := r.ID(); got != "42" {
		t.Fatalf("ID: got %q", got)
	}
	if got := r.String("region"); got != "DAKAR" {
		t.Fatalf("region: got %q", got)
	}
	if got := r.String("Grp4/departement"); got != "pikine" {
		t.Fatalf("exact: got %q", got)
	}
	if got := r.String("missing", "Type_de_campagne"); got != "masse" {
		t.Fatalf("fallback names: got %q", got)
	}
}

func TestGroupsAreAlwaysLists(t *testing.T) {
	single := decode(t, `{"Grp5": {"commune": "a"}}`)
	list := decode(t, `{"Grp5": [{"commune": "a"}, {"commune": "b"}]}`)
	empty := decode(t, `{"Grp5": []}`)

	if g := single.Groups("Grp5"); len(g) != 1 || g[0].String("commune") != "a" {
		t.Fatalf("single object: %+v", g)
	}
	if g := list.Groups("Grp5"); len(g) != 2 || g[1].String("commune") != "b" {
		t.Fatalf("list: %+v", g)
	}
	if g := empty.Groups("Grp5"); len(g) != 0 {
		t.Fatalf("empty: %+v", g)
	}
}

func TestGroupsFallbackSkipsServiceMetadata(t *testing.T) {
	r := decode(t, `{
		"_validation_status": {"uid": "validation_status_approved"},
		"_attachments": [],
		"Grp7": [{"Grp7/produit": "viande"}]
	}`)
	g := r.Groups("Grp5")
	if len(g) != 1 {
		t.Fatalf("expected the one data group, got %d", len(g))
	}
	if got := g[0].String("produit"); got != "viande" {
		t.Fatalf("nested prefixed key: got %q", got)
	}
}

func TestInheritFallsBackToParent(t *testing.T) {
	r := decode(t, `{"region": "DAKAR", "Grp5": [{"commune": "x"}]}`)
	entry := r.Groups("Grp5")[0].Inherit(r)
	if entry.String("region") != "DAKAR" || entry.String("commune") != "x" {
		t.Fatalf("inherit lookup failed")
	}
}

func TestNumbers(t *testing.T) {
	r := decode(t, `{"a": "10", "b": 5, "c": "2,5", "d": "abc", "e": "", "f": "12.9"}`)
	cases := []struct {
		name string
		want int
	}{
		{"a", 10}, {"b", 5}, {"c", 2}, {"d", 0}, {"e", 0}, {"f", 12}, {"absent", 0},
	}
	for _, tc := range cases {
		if got := r.Int(tc.name); got != tc.want {
			t.Fatalf("Int(%s): got %d want %d", tc.name, got, tc.want)
		}
	}
	if got := r.Float("c"); got != 2.5 {
		t.Fatalf("Float comma: got %v", got)
	}
}

func TestGeolocation(t *testing.T) {
	r := decode(t, `{"gps": "14.7167 -17.4677 0 0", "bad": "north", "one": "14.7", "_geolocation": [14.5, -17.1]}`)
	lat, lon, ok := r.Geolocation("gps")
	if !ok || lat != 14.7167 || lon != -17.4677 {
		t.Fatalf("gps: %v %v %v", lat, lon, ok)
	}
	if _, _, ok := r.Geolocation("bad"); ok {
		t.Fatalf("bad geolocation must be unset")
	}
	if _, _, ok := r.Geolocation("one"); ok {
		t.Fatalf("single token must be unset")
	}
	lat, lon, ok = r.Geolocation("missing", "_geolocation")
	if !ok || lat != 14.5 || lon != -17.1 {
		t.Fatalf("array: %v %v %v", lat, lon, ok)
	}

	r = decode(t, `{"dc": "14,68 -17,44 0 0", "csv": "14.68,-17.44", "amb": "14,68", "many": "14,68,-17,44"}`)
	lat, lon, ok = r.Geolocation("dc")
	if !ok || lat != 14.68 || lon != -17.44 {
		t.Fatalf("decimal commas: %v %v %v", lat, lon, ok)
	}
	lat, lon, ok = r.Geolocation("csv")
	if !ok || lat != 14.68 || lon != -17.44 {
		t.Fatalf("comma separated: %v %v %v", lat, lon, ok)
	}
	for _, name := range []string{"amb", "many"} {
		if _, _, ok := r.Geolocation(name); ok {
			t.Fatalf("%s: ambiguous geolocation must be unset", name)
		}
	}
}

func TestTime(t *testing.T) {
	r := decode(t, `{"d": "2024-03-05", "s": "2024-03-05T10:11:12.345", "z": "2024-03-05T10:11:12+01:00", "x": "hier"}`)
	if got := r.Time("d"); got == nil || !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: %v", got)
	}
	if got := r.Time("s"); got == nil || got.Second() != 12 {
		t.Fatalf("fractional: %v", got)
	}
	if got := r.Time("z"); got == nil || got.Hour() != 9 {
		t.Fatalf("zoned: %v", got)
	}
	if got := r.Time("x"); got != nil {
		t.Fatalf("invalid must be nil: %v", got)
	}
}
