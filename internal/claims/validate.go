package claims

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError lists the required fields that were missing or empty. It is
// returned before any network call is made.
type ValidationError struct {
	Action string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Action, strings.Join(e.Fields, ", "))
}

// validateRequired treats every json-tagged field of req as required. Strings
// must be non-empty, lists must hold at least one element and list elements
// are checked recursively.
func validateRequired(action string, req any) error {
	v := reflect.ValueOf(req)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return &ValidationError{Action: action, Fields: []string{"body"}}
		}
		v = v.Elem()
	}
	if missing := missingFields(v, ""); len(missing) > 0 {
		return &ValidationError{Action: action, Fields: missing}
	}
	return nil
}

func missingFields(v reflect.Value, prefix string) []string {
	t := v.Type()
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.String:
			if fv.Len() == 0 {
				out = append(out, path)
			}
		case reflect.Slice:
			if fv.Len() == 0 {
				out = append(out, path)
				continue
			}
			for j := 0; j < fv.Len(); j++ {
				if el := fv.Index(j); el.Kind() == reflect.Struct {
					out = append(out, missingFields(el, fmt.Sprintf("%s[%d]", path, j))...)
				}
			}
		case reflect.Struct:
			out = append(out, missingFields(fv, path)...)
		}
	}
	return out
}
