// Package config provides infrastructure for loading the profile catalog.
// This package handles YAML parsing, file I/O, and structural validation.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	apperrors "github.com/scala-isabelle/devscripts/internal/application/errors"
	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
)

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

var compileCatalogSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource("catalog.schema.json", bytes.NewReader(catalogSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add catalog schema: %w", err)
	}
	return compiler.Compile("catalog.schema.json")
})

// CatalogLoader handles loading profile catalogs from YAML files.
type CatalogLoader struct{}

// NewCatalogLoader creates a new catalog loader.
func NewCatalogLoader() *CatalogLoader {
	return &CatalogLoader{}
}

// LoadCatalog loads and validates a catalog from a YAML file.
func (l *CatalogLoader) LoadCatalog(path string) (*catalog.Catalog, error) {
	// Security: Use os.OpenRoot to prevent path traversal attacks
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog directory: %w", err)
	}
	defer func() {
		_ = root.Close() // Best-effort cleanup
	}()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		_ = file.Close() // Best-effort cleanup
	}()

	return l.LoadCatalogFromReader(file)
}

// LoadCatalogFromReader loads a catalog from an io.Reader.
// The document is checked against the catalog schema before it is decoded,
// numbers keep their source text, then the domain invariants are enforced.
func (l *CatalogLoader) LoadCatalogFromReader(r io.Reader) (*catalog.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	if err := validateCatalogSchema(data); err != nil {
		return nil, err
	}

	var cat catalog.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog YAML: %w", err)
	}

	texts, err := scanNumberText(data)
	if err != nil {
		return nil, err
	}
	texts.apply(&cat)

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return &cat, nil
}

// ProfileNames lists the profiles of the catalog at path, for shell completion.
func (l *CatalogLoader) ProfileNames(path string) ([]string, error) {
	cat, err := l.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return cat.ProfileNames(), nil
}

func validateCatalogSchema(data []byte) error {
	// An empty document is validated as null.
	var doc interface{}
	if len(bytes.TrimSpace(data)) > 0 {
		jsonData, err := yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("failed to decode catalog YAML: %w", err)
		}
		if len(bytes.TrimSpace(jsonData)) > 0 {
			if err := json.Unmarshal(jsonData, &doc); err != nil {
				return fmt.Errorf("failed to decode catalog YAML: %w", err)
			}
		}
	}

	schema, err := compileCatalogSchema()
	if err != nil {
		return err
	}

	if err := schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return formatSchemaValidationError(validationErr)
		}
		return fmt.Errorf("catalog validation failed: %w", err)
	}
	return nil
}

// formatSchemaValidationError flattens a JSON Schema error tree into one validation error.
func formatSchemaValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collectErrors func(*jsonschema.ValidationError)
	collectErrors = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 && e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collectErrors(cause)
		}
	}
	collectErrors(err)

	if len(messages) == 0 {
		messages = append(messages, err.Error())
	}

	return apperrors.NewValidationError("catalog", strings.Join(messages, "; "), messages...)
}
