package document

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// report fields by their document names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Report lists the referential problems of a structurally valid document. Neither
// problem stops an import: duplicates collapse to the last definition and dangling
// relationships are skipped.
type Report struct {
	DuplicateNodeIDs []string `json:"duplicate_node_ids,omitempty"`
	// DanglingRelationships holds indices into Document.Relationships
	DanglingRelationships []int `json:"dangling_relationships,omitempty"`
}

// Clean reports whether the document has no referential problems
func (r Report) Clean() bool {
	return len(r.DuplicateNodeIDs) == 0 && len(r.DanglingRelationships) == 0
}

// Validate checks required fields and collects referential warnings. A structural
// failure is returned as *errors.ErrDocumentInvalid listing every problem.
func Validate(doc *model.Document) (Report, error) {
	if doc == nil {
		return Report{}, apperrors.NewDocumentInvalid([]string{"document is empty"}, nil)
	}

	if err := getValidator().Struct(doc); err != nil {
		var problems []string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				problems = append(problems, describe(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
		return Report{}, apperrors.NewDocumentInvalid(problems, err)
	}

	var report Report
	seen := make(map[string]int, len(doc.Nodes))
	for _, node := range doc.Nodes {
		seen[node.ID]++
		if seen[node.ID] == 2 {
			report.DuplicateNodeIDs = append(report.DuplicateNodeIDs, node.ID)
		}
	}
	for i, rel := range doc.Relationships {
		if seen[rel.Source] == 0 || seen[rel.Target] == 0 {
			report.DanglingRelationships = append(report.DanglingRelationships, i)
		}
	}
	return report, nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Document.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
