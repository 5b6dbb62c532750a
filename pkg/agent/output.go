package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// OutputType describes the structured output an agent must produce. The JSON
// schema is derived from the json tags of a struct prototype: fields tagged
// omitempty and pointer fields are optional, pointers are also nullable.
type OutputType struct {
	name      string
	typ       reflect.Type
	schema    map[string]interface{}
	validator *gojsonschema.Schema
}

// NewOutputType creates an output type from a struct value or pointer
func NewOutputType(name string, prototype any) (*OutputType, error) {
	if name == "" {
		return nil, fmt.Errorf("output type name is required")
	}

	typ := reflect.TypeOf(prototype)
	if typ == nil {
		return nil, fmt.Errorf("output type %s: prototype is required", name)
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("output type %s: prototype must be a struct, got %s", name, typ.Kind())
	}

	validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(structSchema(typ, false)))
	if err != nil {
		return nil, fmt.Errorf("output type %s: invalid schema: %w", name, err)
	}

	return &OutputType{
		name:      name,
		typ:       typ,
		schema:    structSchema(typ, true),
		validator: validator,
	}, nil
}

// MustOutputType is like NewOutputType but panics on error
func MustOutputType(name string, prototype any) *OutputType {
	o, err := NewOutputType(name, prototype)
	if err != nil {
		panic(err)
	}
	return o
}

// Name returns the output type name, which is also the result kind
func (o *OutputType) Name() string {
	return o.name
}

// Schema returns the JSON schema sent to the model
func (o *OutputType) Schema() map[string]interface{} {
	return o.schema
}

// SchemaJSON returns the schema as indented JSON for prompt embedding
func (o *OutputType) SchemaJSON() string {
	data, _ := json.MarshalIndent(o.schema, "", "  ")
	return string(data)
}

// Decode validates model content against the schema and decodes it into a
// new value of the prototype type. The returned value is a pointer.
func (o *OutputType) Decode(content string) (any, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	result, err := o.validator.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("model output does not match %s: %s", o.name, strings.Join(problems, "; "))
	}

	value := reflect.New(o.typ)
	if err := json.Unmarshal([]byte(raw), value.Interface()); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", o.name, err)
	}
	return value.Interface(), nil
}

// extractJSON strips markdown fences and surrounding prose from model output
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// structSchema builds an object schema. The model-facing variant forbids
// extra keys; the validation variant tolerates them.
func structSchema(typ reflect.Type, closed bool) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		parts := strings.Split(jsonTag, ",")
		jsonName := parts[0]
		omitempty := false
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}

		prop := fieldSchema(field.Type, closed)
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		properties[jsonName] = prop

		if !omitempty && field.Type.Kind() != reflect.Ptr {
			required = append(required, jsonName)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if closed {
		schema["additionalProperties"] = false
	}
	return schema
}

func fieldSchema(fieldType reflect.Type, closed bool) map[string]interface{} {
	nullable := false
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
		nullable = true
	}

	var schema map[string]interface{}
	switch fieldType.Kind() {
	case reflect.Bool:
		schema = map[string]interface{}{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema = map[string]interface{}{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		schema = map[string]interface{}{"type": "number"}
	case reflect.String:
		schema = map[string]interface{}{"type": "string"}
	case reflect.Slice, reflect.Array:
		schema = map[string]interface{}{
			"type":  "array",
			"items": fieldSchema(fieldType.Elem(), closed),
		}
	case reflect.Map:
		schema = map[string]interface{}{"type": "object"}
	case reflect.Struct:
		schema = structSchema(fieldType, closed)
	default:
		schema = map[string]interface{}{}
	}

	if nullable {
		if t, ok := schema["type"].(string); ok {
			schema["type"] = []interface{}{t, "null"}
		}
	}
	return schema
}
