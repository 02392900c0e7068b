package llmtool

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// FieldsFromStruct derives prompt output fields from a struct's tags:
// `json` names the field, `desc` describes it, and `prompt` may carry
// "optional" or "-" (skip). Fields are required unless marked optional.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	fields := make([]PromptField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		marks := strings.Split(f.Tag.Get("prompt"), ",")
		if hasMark(marks, "-") {
			continue
		}
		name := jsonName(f)
		if name == "" {
			continue
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        typeName(f.Type),
			Required:    !hasMark(marks, "optional"),
			Description: strings.TrimSpace(f.Tag.Get("desc")),
		})
	}
	return fields, nil
}

// MustFieldsFromStruct panics on error.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

func hasMark(marks []string, want string) bool {
	for _, m := range marks {
		if strings.TrimSpace(m) == want {
			return true
		}
	}
	return false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return snake(f.Name)
	}
	return name
}

// typeName renders JSON-facing type names since prompts describe JSON output.
func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "[" + typeName(t.Elem()) + "]"
	case reflect.Map:
		return "{" + typeName(t.Key()) + ": " + typeName(t.Elem()) + "}"
	case reflect.Struct:
		return "object"
	default:
		return "any"
	}
}

func snake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
