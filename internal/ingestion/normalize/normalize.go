package normalize

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// aliasTableEnv points at a YAML file that replaces the embedded table.
const aliasTableEnv = "TAXONOMY_ALIASES_YAML"

//go:embed aliases.yaml
var aliasFS embed.FS

type yamlTable struct {
	Version       int               `yaml:"version"`
	Diseases      []yamlDisease     `yaml:"diseases"`
	Abbreviations map[string]string `yaml:"abbreviations"`
	Species       []yamlSpecies     `yaml:"species"`
}

type yamlDisease struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Aliases []string `yaml:"aliases"`
}

type yamlSpecies struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type DiseaseName struct {
	Name string
	Type string
}

// Table resolves free-text disease and species tokens to canonical names.
// It is read-only after Load and safe for concurrent use.
type Table struct {
	diseases      map[string]DiseaseName
	abbreviations map[string]string
	species       map[string]string
}

// Load parses a YAML alias table. Canonical names are registered as their
// own aliases.
func Load(data []byte) (*Table, error) {
	var doc yamlTable
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	t := &Table{
		diseases:      map[string]DiseaseName{},
		abbreviations: map[string]string{},
		species:       map[string]string{},
	}
	types := map[string]string{}
	for _, d := range doc.Diseases {
		name := Clean(d.Name)
		if name == "" {
			return nil, fmt.Errorf("alias table: disease without name")
		}
		dtype := Clean(d.Type)
		if dtype == "" {
			dtype = domain.UnknownDiseaseType
		}
		entry := DiseaseName{Name: name, Type: dtype}
		types[name] = dtype
		for _, alias := range append([]string{d.Name}, d.Aliases...) {
			key := Fold(alias)
			if key == "" {
				continue
			}
			if prev, dup := t.diseases[key]; dup && prev.Name != name {
				return nil, fmt.Errorf("alias table: %q maps to both %q and %q", alias, prev.Name, name)
			}
			t.diseases[key] = entry
		}
	}
	for code, full := range doc.Abbreviations {
		code = Clean(code)
		full = Clean(full)
		if n := len([]rune(code)); n < 2 || n > 4 {
			return nil, fmt.Errorf("alias table: abbreviation %q must be 2 to 4 letters", code)
		}
		if _, known := types[full]; !known {
			return nil, fmt.Errorf("alias table: abbreviation %q expands to unknown disease %q", code, full)
		}
		t.abbreviations[code] = full
		if _, exists := t.diseases[Fold(code)]; !exists {
			t.diseases[Fold(code)] = DiseaseName{Name: full, Type: types[full]}
		}
	}
	for _, s := range doc.Species {
		name := Clean(s.Name)
		if name == "" {
			return nil, fmt.Errorf("alias table: species without name")
		}
		for _, alias := range append([]string{s.Name}, s.Aliases...) {
			if key := Fold(alias); key != "" {
				t.species[key] = name
			}
		}
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide table: the file named by
// TAXONOMY_ALIASES_YAML when set and valid, else the embedded one.
func Default(log *logger.Logger) *Table {
	defaultOnce.Do(func() {
		if path := strings.TrimSpace(os.Getenv(aliasTableEnv)); path != "" {
			data, err := os.ReadFile(path)
			if err == nil {
				defaultTable, err = Load(data)
			}
			if err == nil {
				return
			}
			if log != nil {
				log.Warn("alias table override failed; using embedded table", "path", path, "error", err)
			}
		}
		data, err := aliasFS.ReadFile("aliases.yaml")
		if err == nil {
			defaultTable, err = Load(data)
		}
		if err != nil {
			if log != nil {
				log.Error("embedded alias table invalid", "error", err)
			}
			defaultTable = &Table{diseases: map[string]DiseaseName{}, abbreviations: map[string]string{}, species: map[string]string{}}
		}
	})
	return defaultTable
}

var articles = map[string]bool{"la": true, "le": true, "les": true, "l": true}

// CanonicalDisease maps raw to its canonical disease. Unmapped input comes
// back upper-cased with collapsed whitespace and known=false.
func (t *Table) CanonicalDisease(raw string) (name, dtype string, known bool) {
	key := Fold(raw)
	if key == "" {
		return "", "", false
	}
	if d, ok := t.diseases[key]; ok {
		return d.Name, d.Type, true
	}
	if trimmed := stripArticle(key); trimmed != key {
		if d, ok := t.diseases[trimmed]; ok {
			return d.Name, d.Type, true
		}
	}
	return Clean(raw), domain.UnknownDiseaseType, false
}

// CanonicalSpecies maps raw to its canonical species, falling back to the
// cleaned input.
func (t *Table) CanonicalSpecies(raw string) string {
	name, _ := t.LookupSpecies(raw)
	return name
}

// LookupSpecies is CanonicalSpecies that also reports whether raw is a known
// species alias.
func (t *Table) LookupSpecies(raw string) (name string, known bool) {
	key := Fold(raw)
	if key == "" {
		return "", false
	}
	if s, ok := t.species[key]; ok {
		return s, true
	}
	return Clean(raw), false
}

// SplitSpeciesDisease splits a compound code such as "OvinsPPR" at the first
// lower-case rune followed by an upper-case rune. Both halves are upper-cased
// and a known abbreviation on the disease side is expanded. Without a split
// point the whole token is the disease.
func (t *Table) SplitSpeciesDisease(code string) (species, disease string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ""
	}
	rs := []rune(code)
	cut := -1
	for i := 0; i+1 < len(rs); i++ {
		if unicode.IsLower(rs[i]) && unicode.IsUpper(rs[i+1]) {
			cut = i + 1
			break
		}
	}
	if cut < 0 {
		return "", t.expand(Clean(code))
	}
	return Clean(string(rs[:cut])), t.expand(Clean(string(rs[cut:])))
}

func (t *Table) expand(disease string) string {
	if full, ok := t.abbreviations[disease]; ok {
		return full
	}
	return disease
}

func stripArticle(key string) string {
	first, rest, found := strings.Cut(key, " ")
	if found && articles[first] {
		return rest
	}
	return key
}

var ligatures = strings.NewReplacer("œ", "oe", "Œ", "OE", "æ", "ae", "Æ", "AE")

// Fold produces the lookup key for alias matching: accents removed,
// lower-cased, punctuation turned into spaces, whitespace collapsed.
func Fold(s string) string {
	s = ligatures.Replace(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(tr, s); err == nil {
		s = out
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Clean trims, collapses inner whitespace and upper-cases. Accents are kept.
func Clean(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CampaignType recognizes mass and targeted campaign labels regardless of
// case, accents or surrounding words.
func CampaignType(raw string) (domain.CampaignType, bool) {
	key := Fold(raw)
	switch {
	case key == "":
		return "", false
	case strings.Contains(key, "masse") || key == "mass":
		return domain.CampaignMasse, true
	case strings.Contains(key, "cibl") || strings.Contains(key, "target"):
		return domain.CampaignCiblee, true
	default:
		return "", false
	}
}

// TradeDirection recognizes import, export and transit operation labels.
func TradeDirection(raw string) (domain.TradeDirection, bool) {
	key := Fold(raw)
	switch {
	case strings.HasPrefix(key, "import"):
		return domain.TradeImport, true
	case strings.HasPrefix(key, "export"):
		return domain.TradeExport, true
	case strings.HasPrefix(key, "transit"):
		return domain.TradeTransit, true
	default:
		return "", false
	}
}

// Package-level helpers over the default table.

func CanonicalDisease(raw string) (string, string, bool) {
	return Default(nil).CanonicalDisease(raw)
}

func CanonicalSpecies(raw string) string {
	return Default(nil).CanonicalSpecies(raw)
}

func SplitSpeciesDisease(code string) (string, string) {
	return Default(nil).SplitSpeciesDisease(code)
}
