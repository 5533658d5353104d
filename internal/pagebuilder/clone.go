package pagebuilder

import (
	"reflect"

	"storefront/internal/domain"
)

// CloneContent returns a deep copy of c that shares no maps or slices
// with it. A nil element list becomes an empty one.
func CloneContent(c domain.PageContent) domain.PageContent {
	out := c
	out.Elements = cloneElements(c.Elements)
	if out.Elements == nil {
		out.Elements = []domain.PageElement{}
	}
	return out
}

// CloneElement returns a deep copy of el.
func CloneElement(el domain.PageElement) domain.PageElement {
	el.Props = cloneProps(el.Props)
	el.Children = cloneElements(el.Children)
	return el
}

func cloneElements(list []domain.PageElement) []domain.PageElement {
	if list == nil {
		return nil
	}
	out := make([]domain.PageElement, len(list))
	for i, el := range list {
		out[i] = CloneElement(el)
	}
	return out
}

func cloneProps(p domain.Props) domain.Props {
	if p == nil {
		return nil
	}
	out := make(domain.Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case domain.Props:
		return cloneProps(t)
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		s := make([]map[string]any, len(t))
		for i, m := range t {
			s[i] = cloneValue(m).(map[string]any)
		}
		return s
	case nil, string, bool, float64, float32, int, int64, int32:
		return v
	default:
		return deepCopy(reflect.ValueOf(v)).Interface()
	}
}

// deepCopy copies slices, arrays, maps, pointers and the exported fields
// of structs of any type. Unexported struct fields are copied shallowly.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopy(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if f := out.Field(i); f.CanSet() {
				f.Set(deepCopy(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}

// Normalize returns a deep copy of c whose parentIds agree with the tree.
func Normalize(c domain.PageContent) domain.PageContent {
	out := CloneContent(c)
	syncParents(out.Elements, "")
	return out
}
