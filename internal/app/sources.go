package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/parsers"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// SourceSeed is one FormSource entry of a sources YAML file.
type SourceSeed struct {
	Name     string `yaml:"name"`
	UID      string `yaml:"uid"`
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
	BaseURL  string `yaml:"base_url"`
	Parser   string `yaml:"parser"`
	Active   *bool  `yaml:"active"`
}

type sourcesFile struct {
	Sources []SourceSeed `yaml:"sources"`
}

// ParseSources decodes and validates a sources file. Every parser name must
// be registered; a token may be read from the variable named by token_env.
func ParseSources(data []byte, registry *parsers.Registry) ([]*domain.FormSource, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	seen := map[string]bool{}
	out := make([]*domain.FormSource, 0, len(f.Sources))
	for i, s := range f.Sources {
		uid := strings.TrimSpace(s.UID)
		if uid == "" {
			return nil, fmt.Errorf("sources[%d]: uid required", i)
		}
		if seen[uid] {
			return nil, fmt.Errorf("sources[%d]: duplicate uid %q", i, uid)
		}
		seen[uid] = true
		parser := strings.TrimSpace(s.Parser)
		if err := registry.Validate(parser); err != nil {
			return nil, fmt.Errorf("sources[%d] %s: %w", i, uid, err)
		}
		token := s.Token
		if s.TokenEnv != "" {
			token = os.Getenv(s.TokenEnv)
		}
		if strings.TrimSpace(token) == "" {
			return nil, fmt.Errorf("sources[%d] %s: token required", i, uid)
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = uid
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		out = append(out, &domain.FormSource{
			Name:    name,
			UID:     uid,
			Token:   strings.TrimSpace(token),
			BaseURL: strings.TrimSpace(s.BaseURL),
			Parser:  parser,
			Active:  active,
		})
	}
	return out, nil
}

// SeedSources upserts the sources of path by uid.
func SeedSources(dbc dbctx.Context, path string, registry *parsers.Registry, sources repos.FormSourceRepo, log *logger.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read sources file: %w", err)
	}
	list, err := ParseSources(data, registry)
	if err != nil {
		return 0, err
	}
	for _, src := range list {
		if _, err := sources.UpsertByUID(dbc, src); err != nil {
			return 0, fmt.Errorf("upsert source %s: %w", src.UID, err)
		}
	}
	log.Info("form sources seeded", "path", path, "count", len(list))
	return len(list), nil
}
