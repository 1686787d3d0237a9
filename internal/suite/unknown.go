package suite

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// detectUnknownFields compares the raw descriptor with the known struct fields.
// Note: this is called after successful parsing, so a parse failure here
// would indicate an unexpected internal inconsistency.
func detectUnknownFields(data []byte) []string {
	var warnings []string

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{"internal: failed to re-parse descriptor for unknown field detection"}
	}

	knownTopLevel := getJSONFields(reflect.TypeOf(Descriptor{}))
	for key := range raw {
		if !knownTopLevel[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
		}
	}

	if testsRaw, ok := raw["tests"]; ok {
		warnings = append(warnings, checkTestsUnknownFields(testsRaw)...)
	}

	sort.Strings(warnings)
	return warnings
}

func checkTestsUnknownFields(data json.RawMessage) []string {
	var warnings []string

	var tests []map[string]json.RawMessage
	if err := json.Unmarshal(data, &tests); err != nil {
		return []string{"internal: failed to re-parse tests for unknown field detection"}
	}

	knownTestFields := getJSONFields(reflect.TypeOf(TestDescriptor{}))
	for i, fields := range tests {
		name := fmt.Sprintf("#%d", i)
		if raw, ok := fields["name"]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				name = s
			}
		}
		for key := range fields {
			if !knownTestFields[key] {
				warnings = append(warnings, fmt.Sprintf("unknown field %q in test %q (ignored)", key, name))
			}
		}
	}

	return warnings
}

// getJSONFields returns a map of known JSON field names for a struct type.
func getJSONFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			fields[name] = true
		}
	}
	return fields
}
