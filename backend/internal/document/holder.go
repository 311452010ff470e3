package document

import (
	"sync"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
)

// Holder keeps the current document for concurrent readers. Documents handed out by
// Get must not be mutated; replace them with Set.
type Holder struct {
	mu   sync.RWMutex
	path string
	doc  *model.Document
}

// NewHolder creates a holder for the document loaded from path
func NewHolder(path string, doc *model.Document) *Holder {
	if doc == nil {
		doc = &model.Document{Nodes: []model.Node{}, Relationships: []model.Relationship{}}
	}
	return &Holder{path: path, doc: doc}
}

// Path returns the file the document is loaded from
func (h *Holder) Path() string {
	return h.path
}

// Get returns the current document
func (h *Holder) Get() *model.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc
}

// Set replaces the current document
func (h *Holder) Set(doc *model.Document) {
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
}

// Reload loads and validates the file again. The current document is only replaced
// when both succeed.
func (h *Holder) Reload() (*model.Document, Report, error) {
	doc, err := Load(h.path)
	if err != nil {
		return nil, Report{}, err
	}
	report, err := Validate(doc)
	if err != nil {
		return nil, Report{}, err
	}
	h.Set(doc)
	return doc, report, nil
}
