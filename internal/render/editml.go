// internal/render/editml.go
package render

import (
	"fmt"

	"github.com/verkaro/editml-go"
)

// EditorialCleaner resolves editorial markup (insertions, deletions,
// comments) into the clean text a reader should see.
type EditorialCleaner interface {
	Clean(source string) (string, error)
}

// EditML accepts the EditML markup and keeps the clean view of it.
type EditML struct{}

func NewEditML() EditML { return EditML{} }

func (EditML) Clean(source string) (string, error) {
	nodes, issues := editml.Parse(source)
	if len(issues) > 0 && issues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml parsing error: %s", issues[0].Message)
	}
	clean, issues := editml.TransformCleanView(nodes)
	if len(issues) > 0 && issues[0].Severity == editml.SeverityError {
		return "", fmt.Errorf("editml transformation error: %s", issues[0].Message)
	}
	return clean, nil
}
