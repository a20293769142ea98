package genai

import "testing"

type schemaFixture struct {
	Name   string        `json:"name"`
	Score  float64       `json:"score"`
	Nested []schemaChild `json:"nested"`
}

type schemaChild struct {
	Label string `json:"label"`
}

func TestGenerateSchemaStrictObjects(t *testing.T) {
	schema := GenerateSchema[schemaFixture]()

	if schema[typeKey] != "object" {
		t.Fatalf("expected object schema, got %v", schema[typeKey])
	}
	if ap, ok := schema[additionalPropertiesKey].(bool); !ok || ap {
		t.Errorf("expected additionalProperties false, got %v", schema[additionalPropertiesKey])
	}

	required, ok := schema[requiredKey].([]string)
	if !ok {
		t.Fatalf("expected required field list, got %T", schema[requiredKey])
	}
	want := map[string]bool{"name": false, "score": false, "nested": false}
	for _, f := range required {
		if _, known := want[f]; !known {
			t.Errorf("unexpected required field %q", f)
			continue
		}
		want[f] = true
	}
	for f, seen := range want {
		if !seen {
			t.Errorf("field %q missing from required list", f)
		}
	}

	properties := schema[propertiesKey].(map[string]interface{})
	nested := properties["nested"].(map[string]interface{})
	items, ok := nested[itemsKey].(map[string]interface{})
	if !ok {
		t.Fatal("expected items schema for the nested array")
	}
	if ap, ok := items[additionalPropertiesKey].(bool); !ok || ap {
		t.Error("nested object schemas must also forbid additional properties")
	}
}
