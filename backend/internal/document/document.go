// Package document loads, validates and persists knowledge graph source documents.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported document extension %q", filepath.Ext(path))
	}
}

// Load reads and decodes the document at path. Validation is left to the caller.
func Load(path string) (*model.Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, apperrors.NewDocumentUnreadable(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewDocumentUnreadable(path, err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, apperrors.NewDocumentUnreadable(path, err)
	}
	return doc, nil
}

// Decode parses a document and fills in defaults for omitted fields
func Decode(data []byte, format Format) (*model.Document, error) {
	var doc model.Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON document: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode YAML document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	applyDefaults(&doc)
	return &doc, nil
}

// Encode renders a document. JSON is indented and keeps non-ASCII text unescaped.
func Encode(doc *model.Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode JSON document: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode YAML document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML document: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// Save writes the document to path in the format its extension names, creating
// parent directories as needed
func Save(path string, doc *model.Document) error {
	format, err := FormatFor(path)
	if err != nil {
		return apperrors.NewDocumentUnreadable(path, err)
	}
	data, err := Encode(doc, format)
	if err != nil {
		return apperrors.NewDocumentUnreadable(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewDocumentUnreadable(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewDocumentUnreadable(path, err)
	}
	return nil
}

func applyDefaults(doc *model.Document) {
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = model.DefaultWarehouseVersion
	}
	if doc.Nodes == nil {
		doc.Nodes = []model.Node{}
	}
	if doc.Relationships == nil {
		doc.Relationships = []model.Relationship{}
	}
	for i := range doc.Nodes {
		// an omitted level means a top-level node
		if doc.Nodes[i].Level == 0 {
			doc.Nodes[i].Level = 1
		}
		if doc.Nodes[i].Properties == nil {
			doc.Nodes[i].Properties = model.Properties{}
		}
	}
}
