package gemini

import (
	"fmt"
	"sort"

	"github.com/google/generative-ai-go/genai"
)

// ConvertSchema translates a JSON Schema map into the subset Gemini's
// response schema understands. Length and range constraints are dropped and
// enforced by the caller's validation instead.
func ConvertSchema(schema map[string]any) (*genai.Schema, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	return convertNode(schema, "$")
}

func convertNode(node map[string]any, path string) (*genai.Schema, error) {
	typeName, _ := node["type"].(string)
	out := &genai.Schema{}
	switch typeName {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("%s: unsupported schema type %q", path, typeName)
	}
	if desc, ok := node["description"].(string); ok {
		out.Description = desc
	}
	out.Enum = stringList(node["enum"])

	if items, ok := node["items"].(map[string]any); ok {
		converted, err := convertNode(items, path+"[]")
		if err != nil {
			return nil, err
		}
		out.Items = converted
	}

	if props, ok := node["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		keys := make([]string, 0, len(props))
		for key := range props {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child, ok := props[key].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s.%s: property must be an object", path, key)
			}
			converted, err := convertNode(child, path+"."+key)
			if err != nil {
				return nil, err
			}
			out.Properties[key] = converted
		}
	}
	out.Required = stringList(node["required"])
	return out, nil
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
