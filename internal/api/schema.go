package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError is one entry of a 422 response, in the {"loc","msg"} shape.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type,omitempty"`
}

// shapes holds one compiled schema per request body.
type shapes map[string]*gojsonschema.Schema

func loadShapes(names ...string) (shapes, error) {
	out := make(shapes, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// decode checks body against the named schema and unmarshals it into dst.
// Any shape problem is reported as field errors and dst is left untouched.
func (s shapes) decode(name string, body []byte, dst any) []FieldError {
	schema, ok := s[name]
	if !ok {
		return []FieldError{{Loc: []string{"body"}, Msg: "unknown request type " + name}}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return []FieldError{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []FieldError{{Loc: []string{"body"}, Msg: "JSON inválido: " + err.Error(), Type: "value_error.jsondecode"}}
	}
	if !result.Valid() {
		errs := make([]FieldError, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			errs = append(errs, fieldError(re))
		}
		return errs
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return []FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}
	return nil
}

func fieldError(re gojsonschema.ResultError) FieldError {
	loc := []string{"body"}
	if field := re.Field(); field != "" && field != "(root)" {
		loc = append(loc, strings.Split(field, ".")...)
	}
	if re.Type() == "required" {
		if property := re.Details()["property"]; property != nil {
			loc = append(loc, fmt.Sprint(property))
		}
		return FieldError{Loc: loc, Msg: "field required", Type: "value_error.missing"}
	}
	return FieldError{Loc: loc, Msg: re.Description(), Type: "type_error." + re.Type()}
}
