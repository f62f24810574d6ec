// Package schemafile reads and writes compiled schemas and raw catalog
// dumps as YAML.
package schemafile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rlch/sqlschema"
)

// Header is written at the top of every schema file.
const Header = "# Code generated by sqlschema. DO NOT EDIT."

// CatalogSuffix is the file name suffix of catalog dumps.
const CatalogSuffix = ".catalog.yaml"

// Document is a schema file: the compiled schemas of one database.
type Document struct {
	Dialect string              `yaml:"dialect"`
	Schemas []*sqlschema.Schema `yaml:"schemas"`
}

// Catalog is a catalog dump: raw table descriptions that can be compiled
// offline.
type Catalog struct {
	Dialect string                 `yaml:"dialect"`
	Tables  []sqlschema.TableInput `yaml:"tables"`
}

// WriteSchemas writes schemas as YAML, sorted by table name.
func WriteSchemas(w io.Writer, dialect string, schemas []*sqlschema.Schema) (err error) {
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return err
	}

	sorted := slices.Clone(schemas)
	slices.SortFunc(sorted, func(a, b *sqlschema.Schema) int {
		return strings.Compare(a.Source, b.Source)
	})

	return encode(w, &Document{Dialect: dialect, Schemas: sorted})
}

// WriteCatalog writes a catalog dump as YAML, tables sorted by name.
func WriteCatalog(w io.Writer, catalog *Catalog) error {
	sorted := *catalog
	sorted.Tables = slices.Clone(catalog.Tables)
	slices.SortFunc(sorted.Tables, func(a, b sqlschema.TableInput) int {
		return strings.Compare(a.Name, b.Name)
	})

	return encode(w, &sorted)
}

func encode(w io.Writer, v any) (err error) {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	defer func() {
		if cerr := encoder.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return encoder.Encode(v)
}

// LoadSchemas loads a schema file. The path can be absolute or relative to
// baseDir.
func LoadSchemas(path, baseDir string) (*Document, error) {
	data, err := readFile(path, baseDir)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}

	for i, s := range doc.Schemas {
		if s == nil || s.Source == "" {
			return nil, fmt.Errorf("schemas[%d]: missing source", i)
		}

		for _, f := range s.Fields {
			if f.Type == nil {
				return nil, fmt.Errorf("%s.%s: missing type", s.Source, f.Name)
			}

			if f.Meta.Default == nil {
				f.Meta.Default = sqlschema.Absent()
			}
		}

		if err := s.LinkPrimaryKey(); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

// LoadCatalog loads a catalog dump. The path can be absolute or relative to
// baseDir.
func LoadCatalog(path, baseDir string) (*Catalog, error) {
	data, err := readFile(path, baseDir)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if catalog.Dialect == "" {
		return nil, fmt.Errorf("%s: catalog has no dialect", path)
	}

	return &catalog, nil
}

func readFile(path, baseDir string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}
