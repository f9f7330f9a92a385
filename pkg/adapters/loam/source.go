package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/loam"
)

// Source reads object documents from a Loam repository.
type Source struct {
	Repo *loam.TypedRepository[ObjectMetadata]
}

// New creates a new Loam document source.
func New(repo *loam.TypedRepository[ObjectMetadata]) *Source {
	return &Source{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
func Open(path string) (*Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict keeps numeric frontmatter as json.Number; read-only avoids Loam's dev sandbox.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ObjectMetadata](repo)), nil
}

// Document is one object described by a source document.
type Document struct {
	ID     string
	Ref    domain.ObjectRef
	Meta   ObjectMetadata
	Source string
}

// Get resolves the document with the given ID (extension optional).
func (s *Source) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	return toDocument(trimExtension(doc.ID), doc.Data, doc.Content)
}

// List returns every document that declares an object kind, ordered by ID.
// Documents without a kind (READMEs, notes) are skipped.
func (s *Source) List(ctx context.Context) ([]*Document, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	out := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Data.Kind == "" {
			continue
		}
		d, err := toDocument(trimExtension(doc.ID), doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[d.Ref.Key()]; ok {
			return nil, fmt.Errorf("collision detected: %s is defined in both '%s' and '%s'", d.Ref, other, doc.ID)
		}
		seen[d.Ref.Key()] = doc.ID
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Watch emits the IDs of documents that change, until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// CreateRequest builds the Create transaction for the document.
func (d *Document) CreateRequest() domain.CreateRequest {
	return domain.CreateRequest{
		Ref:              d.Ref,
		Description:      d.Meta.Description,
		Source:           d.Source,
		TransportRequest: d.Meta.Transport,
		Responsible:      d.Meta.Responsible,
		Extra:            flatten(d.Meta.Extra),
		Activate:         d.Meta.Activate,
	}
}

// UpdateRequest builds the Update transaction for the document.
func (d *Document) UpdateRequest() domain.UpdateRequest {
	return domain.UpdateRequest{
		Ref:              d.Ref,
		Source:           d.Source,
		TransportRequest: d.Meta.Transport,
		Activate:         d.Meta.Activate,
	}
}

func toDocument(id string, meta ObjectMetadata, content string) (*Document, error) {
	kind, err := domain.ParseKind(meta.Kind)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	name := meta.Name
	if name == "" {
		name = filepath.Base(id)
	}
	ref := domain.NewObjectRef(kind, name, meta.Package)
	if meta.FunctionGroup != "" {
		ref = ref.WithParent(meta.FunctionGroup)
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	return &Document{
		ID:     id,
		Ref:    ref,
		Meta:   meta,
		Source: extractSource(content),
	}, nil
}

// extractSource returns the first fenced code block of a Markdown body, or the whole body.
func extractSource(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	start := -1
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if start < 0 {
			if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
				start = i + 1
				fence = trimmed[:3]
			}
			continue
		}
		if strings.HasPrefix(trimmed, fence) {
			return strings.Join(lines[start:i], "\n")
		}
	}
	return strings.TrimSpace(content)
}

func flatten(src map[string]any) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
