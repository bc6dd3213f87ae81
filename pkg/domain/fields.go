package domain

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

var (
	fieldCatalogOnce sync.Once
	fieldCatalog     map[ModuleKind]map[string]struct{}
)

var moduleTypes = map[ModuleKind]reflect.Type{
	ModuleBasic:         reflect.TypeOf(BasicModule{}),
	ModuleFire:          reflect.TypeOf(FireModule{}),
	ModuleStructureFire: reflect.TypeOf(StructureFireModule{}),
	ModuleEms:           reflect.TypeOf(EmsModule{}),
	ModuleHazmat:        reflect.TypeOf(HazmatModule{}),
	ModuleWildland:      reflect.TypeOf(WildlandFireModule{}),
	ModuleArson:         reflect.TypeOf(ArsonModule{}),
}

func loadFieldCatalog() map[ModuleKind]map[string]struct{} {
	fieldCatalogOnce.Do(func() {
		fieldCatalog = make(map[ModuleKind]map[string]struct{}, len(moduleTypes))
		for kind, typ := range moduleTypes {
			paths := make(map[string]struct{})
			collectFieldPaths(typ, "", paths)
			fieldCatalog[kind] = paths
		}
	})
	return fieldCatalog
}

func collectFieldPaths(typ reflect.Type, prefix string, out map[string]struct{}) {
	localPkg := moduleTypes[ModuleBasic].PkgPath()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		ft := field.Type
		if field.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			collectFieldPaths(ft, prefix, out)
			continue
		}
		if name == "" {
			name = field.Name
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		out[path] = struct{}{}
		if ft.Kind() == reflect.Struct && ft.PkgPath() == localPkg {
			collectFieldPaths(ft, path, out)
		}
	}
}

// KnownFieldPaths lists the dotted field paths a policy may reference for a
// module, sorted.
func KnownFieldPaths(kind ModuleKind) []string {
	paths := loadFieldCatalog()[kind]
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ParsePolicyKey splits "<module>.<path>" and reports whether it names a
// known field.
func ParsePolicyKey(key string) (ModuleKind, string, bool) {
	module, path, ok := strings.Cut(key, ".")
	if !ok || path == "" {
		return "", "", false
	}
	kind := ModuleKind(module)
	paths, known := loadFieldCatalog()[kind]
	if !known {
		return "", "", false
	}
	if _, ok := paths[path]; !ok {
		return "", "", false
	}
	return kind, path, true
}

// FieldPresent reports whether the field at path holds a value in the given
// module. It returns applicable=false when the module is absent. Null, blank
// strings and empty collections count as missing. Encoding problems are
// treated as missing.
func FieldPresent(doc IncidentDocument, kind ModuleKind, path string) (present, applicable bool) {
	module := moduleValue(doc, kind)
	if module == nil {
		return false, false
	}
	raw, err := json.Marshal(module)
	if err != nil {
		return false, true
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return false, true
	}
	var node any = tree
	for _, segment := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return false, true
		}
		node, ok = obj[segment]
		if !ok {
			return false, true
		}
	}
	return hasValue(node), true
}

func moduleValue(doc IncidentDocument, kind ModuleKind) any {
	switch kind {
	case ModuleBasic:
		return doc.Basic
	case ModuleFire:
		if doc.Fire != nil {
			return doc.Fire
		}
	case ModuleStructureFire:
		if doc.StructureFire != nil {
			return doc.StructureFire
		}
	case ModuleEms:
		if doc.Ems != nil {
			return doc.Ems
		}
	case ModuleHazmat:
		if doc.Hazmat != nil {
			return doc.Hazmat
		}
	case ModuleWildland:
		if doc.Wildland != nil {
			return doc.Wildland
		}
	case ModuleArson:
		if doc.Arson != nil {
			return doc.Arson
		}
	}
	return nil
}

func hasValue(node any) bool {
	switch v := node.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		for _, child := range v {
			if hasValue(child) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
