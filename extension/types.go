package extension

import (
	"reflect"
	"strings"
	"sync"

	"github.com/viant/x"
)

// Types registers the concrete record types governed by the engine so that
// serialized snapshots stay self-describing: a snapshot carries the
// canonical type name and decodes back into a live instance of that type.
type Types struct {
	registry *x.Registry
	mu       sync.RWMutex
	byName   map[string]*x.Type
}

// Register adds a record type to the registry.
func (t *Types) Register(dataType *x.Type) {
	if dataType == nil {
		return
	}
	t.registry.Register(dataType)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName[TypeName(dataType.Type)] = dataType
}

// Lookup returns a registered type by canonical name, or nil when the name
// was never registered.
func (t *Types) Lookup(name string) *x.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[name]
}

// NewTypes creates a type registry.
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{
		registry: x.NewRegistry(options...),
		byName:   make(map[string]*x.Type),
	}
}

// TypeName returns the canonical "pkgPath.TypeName" identifier recorded in
// change descriptors.
func TypeName(rType reflect.Type) string {
	for rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if rType.PkgPath() == "" {
		return rType.Name()
	}
	return rType.PkgPath() + "." + rType.Name()
}

// FieldNames returns the JSON-level field names of a struct type. Dirty-field
// maps, policy exclusion sets and snapshot field maps all share this
// vocabulary.
func FieldNames(rType reflect.Type) []string {
	for rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if rType.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < rType.NumField(); i++ {
		field := rType.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		tag := field.Tag.Get("json")
		if field.Anonymous && tag == "" {
			out = append(out, FieldNames(field.Type)...)
			continue
		}
		name := field.Name
		if tag != "" {
			if value := strings.Split(tag, ",")[0]; value == "-" {
				continue
			} else if value != "" {
				name = value
			}
		}
		out = append(out, name)
	}
	return out
}
