package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/squishrun/internal/suite"
)

// Options holds the parsed command line.
type Options struct {
	Verbose          bool
	List             bool
	Native           bool
	ContinuousOutput bool
	AbortOnFail      bool
	Help             bool
	Version          bool

	Selection       suite.Selection
	OutputDir       string
	AutPath         string
	StartScriptPath string
	Jobs            int // Zero picks the default for the platform
	MaxFlakyRuns    int
	SuiteDir        string // Empty means discover from the working directory
}

// valueFlags maps every spelling of a flag taking a value to its canonical name.
var valueFlags = map[string]string{
	"-t": "--tests", "--tests": "--tests",
	"-s": "--suites", "--suites": "--suites",
	"-c": "--categories", "--categories": "--categories",
	"-o": "--outputdir", "--outputdir": "--outputdir",
	"-a": "--autPath", "--autPath": "--autPath",
	"-start": "--startScriptPath", "--startScriptPath": "--startScriptPath",
	"-j": "--jobs", "--jobs": "--jobs",
	"--maxFlakyRuns": "--maxFlakyRuns",
}

// parseArgs manually parses the command line. Flags may appear before or
// after the suite directory, and both "--flag value" and "--flag=value" work.
func parseArgs(args []string) (*Options, error) {
	opts := &Options{MaxFlakyRuns: 1}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-v", "--verbose":
			opts.Verbose = true
			continue
		case "-l", "--list":
			opts.List = true
			continue
		case "--native":
			opts.Native = true
			continue
		case "--continuousOutput":
			opts.ContinuousOutput = true
			continue
		case "--abortOnFail":
			opts.AbortOnFail = true
			continue
		case "-h", "--help":
			opts.Help = true
			continue
		case "--version":
			opts.Version = true
			continue
		case "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
			continue
		}

		name, value, inline := strings.Cut(arg, "=")
		canonical, ok := valueFlags[name]
		if !ok {
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("unknown flag %q", arg)
			}
			positional = append(positional, arg)
			continue
		}
		if !inline {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", name)
			}
			i++
			value = args[i]
		}
		if err := opts.set(canonical, value); err != nil {
			return nil, err
		}
	}

	switch len(positional) {
	case 0:
	case 1:
		opts.SuiteDir = positional[0]
	default:
		return nil, fmt.Errorf("expected at most one suite directory, got %d: %s", len(positional), strings.Join(positional, " "))
	}

	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) set(flag, value string) error {
	switch flag {
	case "--tests":
		o.Selection.Tests = splitList(value)
	case "--suites":
		o.Selection.Suites = splitList(value)
	case "--categories":
		o.Selection.Categories = splitList(value)
	case "--outputdir":
		o.OutputDir = value
	case "--autPath":
		o.AutPath = value
	case "--startScriptPath":
		o.StartScriptPath = value
	case "--jobs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid --jobs value %q: not a number", value)
		}
		o.Jobs = n
	case "--maxFlakyRuns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid --maxFlakyRuns value %q: not a number", value)
		}
		o.MaxFlakyRuns = n
	}
	return nil
}

// validateOptions checks values that do not depend on the descriptor.
func validateOptions(opts *Options) error {
	if opts.MaxFlakyRuns < 1 {
		return fmt.Errorf("maxFlakyRuns should be bigger than 0 or omitted")
	}
	if opts.Jobs < 0 {
		return fmt.Errorf("--jobs should be bigger than 0 or omitted")
	}
	return nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
