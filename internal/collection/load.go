package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// fileSpec es el formato declarativo de colecciones (YAML o JSON/JSONC).
type fileSpec struct {
	Collections []collectionSpec `yaml:"collections" json:"collections"`
}

type collectionSpec struct {
	Slug    string      `yaml:"slug" json:"slug"`
	Label   string      `yaml:"label" json:"label"`
	Unique  bool        `yaml:"unique" json:"unique"`
	Version int         `yaml:"version" json:"version"`
	Fields  []fieldSpec `yaml:"fields" json:"fields"`
	Access  struct {
		Create []string `yaml:"create" json:"create"`
		Read   []string `yaml:"read" json:"read"`
		Update []string `yaml:"update" json:"update"`
		Delete []string `yaml:"delete" json:"delete"`
	} `yaml:"access" json:"access"`
}

type fieldSpec struct {
	Name     string      `yaml:"name" json:"name"`
	Label    string      `yaml:"label" json:"label"`
	Type     string      `yaml:"type" json:"type"`
	Required bool        `yaml:"required" json:"required"`
	Default  any         `yaml:"default" json:"default"`
	Fields   []fieldSpec `yaml:"fields" json:"fields"`
}

// LoadFile lee colecciones desde un archivo. El formato se decide por extensión:
// .yaml/.yml → YAML; .json/.jsonc → JSON con comentarios.
func LoadFile(path string) ([]Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	case ".json", ".jsonc":
		return ParseJSONC(b)
	default:
		return nil, fmt.Errorf("collections: unsupported file extension %q", filepath.Ext(path))
	}
}

// ParseYAML parsea definiciones de colecciones en YAML.
func ParseYAML(b []byte) ([]Collection, error) {
	var fs fileSpec
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return nil, fmt.Errorf("collections: parse yaml: %w", err)
	}
	return fs.build()
}

// ParseJSONC parsea definiciones en JSON, tolerando comentarios y comas finales.
func ParseJSONC(b []byte) ([]Collection, error) {
	var fs fileSpec
	if err := json.Unmarshal(jsonc.ToJSON(b), &fs); err != nil {
		return nil, fmt.Errorf("collections: parse json: %w", err)
	}
	return fs.build()
}

func (fs fileSpec) build() ([]Collection, error) {
	out := make([]Collection, 0, len(fs.Collections))
	for _, cs := range fs.Collections {
		fields, err := buildFields(cs.Fields)
		if err != nil {
			return nil, fmt.Errorf("collections: %q: %w", cs.Slug, err)
		}
		label := cs.Label
		if label == "" {
			label = cs.Slug
		}
		out = append(out, Collection{
			Slug:    cs.Slug,
			Label:   label,
			Fields:  fields,
			Unique:  cs.Unique,
			Version: cs.Version,
			Access: Access{
				Create: cs.Access.Create,
				Read:   cs.Access.Read,
				Update: cs.Access.Update,
				Delete: cs.Access.Delete,
			},
		})
	}
	return out, nil
}

func buildFields(specs []fieldSpec) ([]Field, error) {
	out := make([]Field, 0, len(specs))
	for _, s := range specs {
		kind, err := ParseFieldKind(s.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Name, err)
		}
		sub, err := buildFields(s.Fields)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Name, err)
		}
		label := s.Label
		if label == "" {
			label = s.Name
		}
		out = append(out, Field{
			Name:     s.Name,
			Label:    label,
			Kind:     kind,
			Required: s.Required,
			Default:  s.Default,
			Fields:   sub,
		})
	}
	return out, nil
}
