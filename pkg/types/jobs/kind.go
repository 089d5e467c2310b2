package jobs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKind is returned when a job kind name is not registered
var ErrUnknownKind = errors.New("unknown job kind")

// KindName identifies a job type
type KindName string

// Known job kinds
const (
	// KindResearch is the social plan research job
	KindResearch KindName = "research"
	// KindSynthesis is the focus lab synthesis job producing a document
	KindSynthesis KindName = "synthesis"
	// KindPlan is the business plan report job
	KindPlan KindName = "plan"
)

// Kind describes where a job type lives on the backend
type Kind struct {
	Name       KindName // Name used on the command line and in config
	Collection string   // Path segment of the job collection, e.g. "research"
	ResultPath string   // Path segment appended to a job URL to get its result, e.g. "detail"

	// SupportsRecommendations marks kinds whose needs_adjustment records carry structured recommendations
	SupportsRecommendations bool
}

func (k Kind) String() string {
	return string(k.Name)
}

// Validate checks that the kind can be turned into URLs
func (k Kind) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("job kind name is required")
	}
	if k.Collection == "" || strings.Contains(k.Collection, "/") {
		return fmt.Errorf("job kind %s: invalid collection %q", k.Name, k.Collection)
	}
	if k.ResultPath == "" || strings.Contains(k.ResultPath, "/") {
		return fmt.Errorf("job kind %s: invalid result path %q", k.Name, k.ResultPath)
	}
	return nil
}

// DefaultKinds returns the job kinds served by the Upgrowplan backends
func DefaultKinds() map[KindName]Kind {
	return map[KindName]Kind{
		KindResearch: {
			Name:                    KindResearch,
			Collection:              "research",
			ResultPath:              "detail",
			SupportsRecommendations: true,
		},
		KindSynthesis: {
			Name:       KindSynthesis,
			Collection: "synthesis",
			ResultPath: "result",
		},
		KindPlan: {
			Name:       KindPlan,
			Collection: "plans",
			ResultPath: "report",
		},
	}
}

// Registry resolves kind names to kind descriptors
type Registry struct {
	kinds map[KindName]Kind
}

// NewRegistry creates a registry with the default kinds overridden by the given ones
func NewRegistry(overrides ...Kind) (*Registry, error) {
	kinds := DefaultKinds()
	for _, k := range overrides {
		if base, ok := kinds[k.Name]; ok {
			if k.Collection == "" {
				k.Collection = base.Collection
			}
			if k.ResultPath == "" {
				k.ResultPath = base.ResultPath
			}
			k.SupportsRecommendations = k.SupportsRecommendations || base.SupportsRecommendations
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		kinds[k.Name] = k
	}
	return &Registry{kinds: kinds}, nil
}

// Lookup returns the kind registered under name
func (r *Registry) Lookup(name string) (Kind, error) {
	k, ok := r.kinds[KindName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownKind, name, strings.Join(r.Names(), ", "))
	}
	return k, nil
}

// ByCollection returns the kind served under the given collection path segment
func (r *Registry) ByCollection(collection string) (Kind, error) {
	for _, k := range r.kinds {
		if k.Collection == collection {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: no kind for collection %q", ErrUnknownKind, collection)
}

// Names returns the registered kind names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// LookupKind resolves a name against the default kinds
func LookupKind(name string) (Kind, error) {
	r, _ := NewRegistry()
	return r.Lookup(name)
}
