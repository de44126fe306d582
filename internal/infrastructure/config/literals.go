package config

import (
	"fmt"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
)

// numberText holds the source text of the numeric scalars of a catalog.
type numberText struct {
	defaults map[string]string
	configs  map[string]map[string]string
}

// scanNumberText walks the document's syntax tree and records how every
// number under defaults and configs was written.
func scanNumberText(data []byte) (*numberText, error) {
	file, err := parser.ParseBytes(data, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	texts := &numberText{
		defaults: map[string]string{},
		configs:  map[string]map[string]string{},
	}
	if len(file.Docs) == 0 {
		return texts, nil
	}

	for _, section := range mappingValues(file.Docs[0].Body) {
		switch keyOf(section) {
		case "defaults":
			collectNumbers(section.Value, texts.defaults)
		case "configs":
			for _, profile := range mappingValues(section.Value) {
				numbers := map[string]string{}
				collectNumbers(profile.Value, numbers)
				texts.configs[keyOf(profile)] = numbers
			}
		}
	}
	return texts, nil
}

// apply wraps the decoded numbers of cat in catalog.Literal.
func (n *numberText) apply(cat *catalog.Catalog) {
	wrap(cat.Defaults, n.defaults)
	for name, profile := range cat.Configs {
		wrap(profile, n.configs[name])
	}
}

func wrap(values map[string]interface{}, texts map[string]string) {
	for key, value := range values {
		text, ok := texts[key]
		if !ok {
			continue
		}
		switch value.(type) {
		case int, int64, uint64, float64:
			values[key] = catalog.Literal{Value: value, Text: text}
		}
	}
}

func collectNumbers(node ast.Node, into map[string]string) {
	for _, entry := range mappingValues(node) {
		switch value := entry.Value.(type) {
		case *ast.IntegerNode:
			into[keyOf(entry)] = value.GetToken().Value
		case *ast.FloatNode:
			into[keyOf(entry)] = value.GetToken().Value
		}
	}
}

func mappingValues(node ast.Node) []*ast.MappingValueNode {
	switch n := node.(type) {
	case *ast.MappingNode:
		return n.Values
	case *ast.MappingValueNode:
		return []*ast.MappingValueNode{n}
	default:
		return nil
	}
}

func keyOf(entry *ast.MappingValueNode) string {
	if entry.Key == nil || entry.Key.GetToken() == nil {
		return ""
	}
	return entry.Key.GetToken().Value
}
