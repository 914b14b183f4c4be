package projection

import (
	"context"
	"fmt"
	"strings"

	"github.com/zer0-A1/emineon-search/internal/model"
)

// Projection is the canonical searchable view of one source entity,
// regenerated in full on every reindex.
type Projection struct {
	Title    string
	Text     string
	HTML     string
	Metadata map[string]interface{}
	Perms    map[string]interface{}
}

// Projector builds the projection for entities of one source type from
// current entity state. Project returns errors.ErrEntityGone when the
// entity no longer exists.
type Projector interface {
	Project(ctx context.Context, sourceID string) (*Projection, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Registry maps source types to their projectors. Each entity module
// registers its own; there is no central switch to grow.
type Registry struct {
	projectors map[model.SourceType]Projector
}

func NewRegistry() *Registry {
	return &Registry{projectors: make(map[model.SourceType]Projector)}
}

func (r *Registry) Register(sourceType model.SourceType, p Projector) {
	if p == nil {
		return
	}
	r.projectors[sourceType] = p
}

func (r *Registry) Get(sourceType model.SourceType) (Projector, error) {
	p, ok := r.projectors[sourceType]
	if !ok {
		return nil, fmt.Errorf("no projector registered for source type: %s", sourceType)
	}
	return p, nil
}

func (r *Registry) SourceTypes() []model.SourceType {
	types := make([]model.SourceType, 0, len(r.projectors))
	for st := range r.projectors {
		types = append(types, st)
	}
	return types
}

// joinParts concatenates non-empty fragments with newlines, the shared text
// layout for all projections.
func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n")
}
