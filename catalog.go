package jsonrpc2

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrAmbiguousOverload is returned by [MethodCatalogBuilder.Build] when an overload
// set cannot be deterministically disambiguated by arity or parameter-name
// presence (§4.3). [Bind] does not return it: a tie between two admitted
// candidates at call time is reported as [ErrInvalidParams].
var ErrAmbiguousOverload = errors.New("jsonrpc2: ambiguous overload")

// MethodFunc is the Go-facing signature a free function must satisfy to be
// registered as a [MethodDescriptor] handle. args is positional, already decoded
// into the types named by the descriptor's [ParamDescriptor.Type] entries, in
// declared parameter order.
type MethodFunc func(ctx context.Context, args []any) (any, error)

// MethodEntry is one entry in a [ServiceDescriptor], describing a single callable
// method before it is resolved into an immutable [MethodDescriptor].
//
// Exactly one of Func or MethodName must be set. Func registers a free function
// handle called directly; MethodName names an exported method resolved, per
// request, against the instance produced by the host's [ServiceFactory] (so that
// stateful or session-scoped receivers work per §4.6).
type MethodEntry struct {
	Name             string
	Params           []ParamDescriptor
	Return           ReturnKind
	AllowExtraParams bool
	Func             MethodFunc
	MethodName       string
}

// ServiceDescriptor is a declarative collection of [MethodEntry] values, the input
// to [MethodCatalogBuilder.Register] (§4.3's "collection of service type
// descriptors").
type ServiceDescriptor struct {
	Methods []MethodEntry
}

// MethodCatalogBuilder accumulates [ServiceDescriptor] registrations and produces
// an immutable [MethodCatalog] via Build. A builder is used once, at host
// construction time; the resulting catalog is never mutated afterward.
type MethodCatalogBuilder struct {
	sets map[string][]*MethodDescriptor
	err  error
}

// NewMethodCatalogBuilder returns an empty builder.
func NewMethodCatalogBuilder() *MethodCatalogBuilder {
	return &MethodCatalogBuilder{sets: make(map[string][]*MethodDescriptor)}
}

// Register adds every method in svc to the catalog-to-be. Method names default
// to the entry's MethodName (for struct-bound entries) if Name is empty;
// free-function entries must set Name explicitly.
//
// Register is safe to call multiple times with different descriptors; it does
// not immediately detect ambiguity — that check runs in Build, once the full
// overload set for each name is known.
func (b *MethodCatalogBuilder) Register(svc ServiceDescriptor) error {
	for _, entry := range svc.Methods {
		name := entry.Name
		if name == "" {
			name = entry.MethodName
		}

		if name == "" {
			return fmt.Errorf("jsonrpc2: method entry missing both Name and MethodName")
		}

		if (entry.Func == nil) == (entry.MethodName == "") {
			return fmt.Errorf("jsonrpc2: method %q must set exactly one of Func or MethodName", name)
		}

		desc := &MethodDescriptor{
			Name:             name,
			Params:           entry.Params,
			Return:           entry.Return,
			AllowExtraParams: entry.AllowExtraParams,
			isMethod:         entry.MethodName != "",
			methodName:       entry.MethodName,
		}

		if entry.Func != nil {
			desc.handle = reflect.ValueOf(entry.Func)
		}

		seen := make(map[string]struct{}, len(desc.Params))

		for _, p := range desc.Params {
			if _, dup := seen[p.Name]; dup {
				return fmt.Errorf("jsonrpc2: method %q: %w: %s", name, ErrDuplicateParamName, p.Name)
			}

			seen[p.Name] = struct{}{}
		}

		b.sets[name] = append(b.sets[name], desc)
	}

	return nil
}

// arityRange returns the [min,max] number of positional arguments a descriptor
// admits. max is -1 when AllowExtraParams makes it unbounded.
func arityRange(d *MethodDescriptor) (minArgs, maxArgs int) {
	minArgs = d.requiredCount()
	if d.AllowExtraParams {
		return minArgs, -1
	}

	return minArgs, len(d.Params)
}

func requiredNames(d *MethodDescriptor) map[string]struct{} {
	names := make(map[string]struct{}, len(d.Params))

	for _, p := range d.Params {
		if !p.Optional {
			names[p.Name] = struct{}{}
		}
	}

	return names
}

func sameNameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

func overlaps(aMin, aMax, bMin, bMax int) bool {
	if aMax == -1 && bMax == -1 {
		return true
	}

	if aMax == -1 {
		return bMax >= aMin
	}

	if bMax == -1 {
		return aMax >= bMin
	}

	return aMin <= bMax && bMin <= aMax
}

// checkOverloadSet validates that every pair of descriptors registered under the
// same name can be deterministically disambiguated, per §4.3: two candidates are
// ambiguous if their positional-arity ranges overlap and their required
// parameter-name sets are identical, since no inbound request could pick one over
// the other under the §4.4 algorithm.
func checkOverloadSet(name string, descs []*MethodDescriptor) error {
	for i := 0; i < len(descs); i++ {
		for j := i + 1; j < len(descs); j++ {
			aMin, aMax := arityRange(descs[i])
			bMin, bMax := arityRange(descs[j])

			if !overlaps(aMin, aMax, bMin, bMax) {
				continue
			}

			if sameNameSet(requiredNames(descs[i]), requiredNames(descs[j])) {
				return fmt.Errorf("%w: method %q overloads %d and %d", ErrAmbiguousOverload, name, i, j)
			}
		}
	}

	return nil
}

// Build finalizes the builder into an immutable [MethodCatalog], failing with
// [ErrAmbiguousOverload] if any overload set cannot be deterministically
// disambiguated at bind time (§4.3).
func (b *MethodCatalogBuilder) Build() (*MethodCatalog, error) {
	for name, descs := range b.sets {
		if len(descs) > 1 {
			if err := checkOverloadSet(name, descs); err != nil {
				return nil, err
			}
		}
	}

	frozen := make(map[string][]*MethodDescriptor, len(b.sets))

	for name, descs := range b.sets {
		frozen[name] = append([]*MethodDescriptor(nil), descs...)
	}

	return &MethodCatalog{sets: frozen}, nil
}

// MethodCatalog is the immutable mapping from method name to overload set,
// constructed once via [MethodCatalogBuilder.Build] and thereafter read-only.
type MethodCatalog struct {
	sets map[string][]*MethodDescriptor
}

// Lookup returns the overload set registered under name, or nil if no method by
// that name was registered.
func (c *MethodCatalog) Lookup(name string) []*MethodDescriptor {
	return c.sets[name]
}

// Methods returns the names of every registered method. Order is not guaranteed.
func (c *MethodCatalog) Methods() []string {
	names := make([]string, 0, len(c.sets))

	for name := range c.sets {
		names = append(names, name)
	}

	return names
}
