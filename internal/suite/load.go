package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/filter"
	"github.com/AndreyAkinshin/squishrun/internal/model"
	"github.com/AndreyAkinshin/squishrun/internal/project"
	"github.com/AndreyAkinshin/squishrun/internal/schema"
)

// IDSource hands out sequential test case ids.
type IDSource interface {
	NextID() int
}

// counter is the IDSource used when the caller supplies none.
type counter struct {
	last int
}

func (c *counter) NextID() int {
	c.last++
	return c.last
}

// NewCounter returns an IDSource whose first id is 2.
func NewCounter() IDSource {
	return &counter{last: 1}
}

// Options control how a descriptor is turned into test cases.
type Options struct {
	IDs          IDSource // Nil starts a fresh counter
	MaxFlakyRuns int      // Retry budget of every case; values below 1 mean 1
	Platform     string   // GOOS the platform flags are evaluated for; empty means runtime.GOOS
}

// Suite is a loaded descriptor.
type Suite struct {
	Dir             string
	Path            string
	Aut             string
	StartScript     string
	GlobalScriptDir string // Absolute; empty when not configured
	Env             map[string]string
	Filter          *filter.Filter
	// Tests are the enabled cases in descriptor order.
	Tests    []*model.TestCase
	Disabled []*model.TestCase
	Warnings []string
}

// Load finds and loads the descriptor inside dir.
func Load(dir string, opts Options) (*Suite, error) {
	path, ok := project.FindDescriptor(dir)
	if !ok {
		return nil, errors.Configf("could not find %s in %s", project.DescriptorNames[0], dir)
	}
	return LoadFile(path, opts)
}

// LoadFile loads the descriptor at path.
func LoadFile(path string, opts Options) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configf("failed to read %s: %v", path, err)
	}

	desc, warnings, err := Parse(data, project.IsYAML(path))
	if err != nil {
		return nil, errors.Configf("%s: %v", filepath.Base(path), err)
	}

	s, err := build(desc, filepath.Dir(path), opts)
	if err != nil {
		return nil, err
	}
	s.Path = path
	s.Warnings = warnings
	return s, nil
}

// Parse validates and decodes a descriptor. YAML documents are converted to
// JSON first so both syntaxes go through the same schema.
func Parse(data []byte, isYAML bool) (*Descriptor, []string, error) {
	if isYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, nil, err
		}
		data = converted
	}

	if err := schema.ValidateSuite(data); err != nil {
		return nil, nil, err
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	return &desc, detectUnknownFields(data), nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported YAML: %w", err)
	}
	return out, nil
}

func build(desc *Descriptor, dir string, opts Options) (*Suite, error) {
	if desc.Aut == "" {
		return nil, errors.Config("aut attribute not found in descriptor")
	}

	ids := opts.IDs
	if ids == nil {
		ids = NewCounter()
	}
	budget := opts.MaxFlakyRuns
	if budget < 1 {
		budget = 1
	}
	goos := opts.Platform
	if goos == "" {
		goos = runtime.GOOS
	}

	f, err := filter.New(desc.OutputFilters)
	if err != nil {
		return nil, errors.Config(err.Error())
	}

	s := &Suite{
		Dir:         dir,
		Aut:         desc.Aut,
		StartScript: desc.StartScript,
		Env:         desc.Env,
		Filter:      f,
	}

	if desc.GlobalScriptDir != "" {
		gsd := desc.GlobalScriptDir
		if !filepath.IsAbs(gsd) {
			gsd = filepath.Join(dir, gsd)
		}
		if _, err := os.Stat(gsd); err != nil {
			return nil, errors.Configf("globalScriptDir %s does not exist", desc.GlobalScriptDir)
		}
		abs, err := filepath.Abs(gsd)
		if err != nil {
			return nil, errors.Wrap(err, "resolving globalScriptDir")
		}
		s.GlobalScriptDir = abs
	}

	seen := make(map[string]bool, len(desc.Tests))
	for _, td := range desc.Tests {
		if seen[td.Name] {
			return nil, errors.Configf("duplicate test name %q", td.Name)
		}
		seen[td.Name] = true

		tc := &model.TestCase{
			Name:             td.Name,
			Suite:            td.Suite,
			ID:               ids.NextID(),
			Categories:       td.Categories,
			Disabled:         td.Disabled.Eval(goos, false),
			SupportsHeadless: td.SupportsOffscreen.Eval(goos, true),
			ExpectFailure:    td.FailureExpected.Eval(goos, false),
			RemainingRetries: budget,
		}
		if tc.Disabled {
			s.Disabled = append(s.Disabled, tc)
			continue
		}
		s.Tests = append(s.Tests, tc)
	}

	return s, nil
}
