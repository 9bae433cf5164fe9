package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lox/citywx/internal/models"
)

var (
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
	ErrMissingLocation      = errors.New("missing location name")
	ErrUnknownSource        = errors.New("unknown source")
)

// RejectError reports a source row that could not become a Record.
type RejectError struct {
	Source string
	Reason error
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Source, e.Reason, e.Detail)
}

func (e *RejectError) Unwrap() error { return e.Reason }

// Row is one raw input record. Field reports the raw text for a source field
// name and whether the source provided it at all.
type Row interface {
	Field(name string) (string, bool)
}

// MapRow is a row keyed by column name, as read from a CSV file.
type MapRow map[string]string

func (m MapRow) Field(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// JSONRow is a provider payload addressed with gjson paths such as
// "main.temp" or "weather.0.description". JSON null counts as absent.
type JSONRow []byte

func (j JSONRow) Field(path string) (string, bool) {
	res := gjson.GetBytes(j, path)
	if !res.Exists() || res.Type == gjson.Null {
		return "", false
	}
	return res.String(), true
}

// Mapper converts one raw row into a Record or rejects it. Mappers are pure.
type Mapper func(Row) (models.Record, error)

// Source describes one upstream schema.
type Source struct {
	ID string
	// Header is true when CSV input starts with a header row. Headerless
	// input is addressed by the names in Columns, in order.
	Header  bool
	Columns []string
	Map     Mapper
}

// Registry holds the known sources keyed by ID.
type Registry struct {
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds or replaces a source.
func (r *Registry) Register(src Source) {
	r.sources[src.ID] = src
}

func (r *Registry) Lookup(id string) (Source, error) {
	src, ok := r.sources[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return src, nil
}

// IDs returns the registered source IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalize maps row using the named source.
func (r *Registry) Normalize(sourceID string, row Row) (models.Record, error) {
	src, err := r.Lookup(sourceID)
	if err != nil {
		return models.Record{}, err
	}
	return src.Map(row)
}
