// Package suite loads the test descriptor of a squish suite directory.
package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Descriptor is the on-disk form of tests.json.
type Descriptor struct {
	Schema          string            `json:"$schema,omitempty"`
	Aut             string            `json:"aut"`
	StartScript     string            `json:"startScript,omitempty"`
	GlobalScriptDir string            `json:"globalScriptDir,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	OutputFilters   []string          `json:"outputFilters,omitempty"`
	Tests           []TestDescriptor  `json:"tests"`
}

// TestDescriptor is one entry of the tests list.
type TestDescriptor struct {
	Name              string       `json:"name"`
	Suite             string       `json:"suite"`
	Categories        []string     `json:"categories,omitempty"`
	Disabled          PlatformFlag `json:"disabled"`
	SupportsOffscreen PlatformFlag `json:"supports_offscreen"`
	FailureExpected   PlatformFlag `json:"failure_expected"`
}

// PlatformFlag is a boolean that may be given per platform: true, false,
// "linux", or ["macos", "windows"].
type PlatformFlag struct {
	set       bool
	value     bool
	platforms []string
}

// BoolFlag returns a flag with a fixed value.
func BoolFlag(v bool) PlatformFlag {
	return PlatformFlag{set: true, value: v}
}

// PlatformsFlag returns a flag that is true on the given platforms.
func PlatformsFlag(platforms ...string) PlatformFlag {
	return PlatformFlag{set: true, platforms: platforms}
}

// Eval resolves the flag for the platform named by goos, returning def
// when the flag was not given.
func (f PlatformFlag) Eval(goos string, def bool) bool {
	if !f.set {
		return def
	}
	if f.platforms == nil {
		return f.value
	}
	for _, p := range f.platforms {
		if matchPlatform(p, goos) {
			return true
		}
	}
	return false
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *PlatformFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = PlatformFlag{}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = BoolFlag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = PlatformsFlag(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*f = PlatformsFlag(list...)
		return nil
	}
	return fmt.Errorf("expected a boolean, a platform name or a list of platform names, got %s", data)
}

// MarshalJSON implements json.Marshaler.
func (f PlatformFlag) MarshalJSON() ([]byte, error) {
	switch {
	case !f.set:
		return []byte("null"), nil
	case f.platforms == nil:
		return json.Marshal(f.value)
	default:
		return json.Marshal(f.platforms)
	}
}

// platformNames maps GOOS values to descriptor platform names.
var platformNames = map[string]string{
	"linux":   "linux",
	"darwin":  "macos",
	"windows": "windows",
}

func matchPlatform(name, goos string) bool {
	want, ok := platformNames[goos]
	return ok && strings.EqualFold(name, want)
}
