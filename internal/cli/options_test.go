package cli

import (
	"reflect"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/squishrun/internal/suite"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Options
	}{
		{
			name: "defaults",
			args: nil,
			want: Options{MaxFlakyRuns: 1},
		},
		{
			name: "suite directory",
			args: []string{"tests/squish"},
			want: Options{MaxFlakyRuns: 1, SuiteDir: "tests/squish"},
		},
		{
			name: "boolean flags",
			args: []string{"-v", "-l", "--native", "--continuousOutput", "--abortOnFail"},
			want: Options{Verbose: true, List: true, Native: true, ContinuousOutput: true, AbortOnFail: true, MaxFlakyRuns: 1},
		},
		{
			name: "selection",
			args: []string{"-t", "tst_a,tst_b", "--suites=suite_main", "-c", "smoke, ui"},
			want: Options{
				MaxFlakyRuns: 1,
				Selection: suite.Selection{
					Tests:      []string{"tst_a", "tst_b"},
					Suites:     []string{"suite_main"},
					Categories: []string{"smoke", "ui"},
				},
			},
		},
		{
			name: "values after directory",
			args: []string{"suites", "-j", "4", "--maxFlakyRuns=3", "-o", "out"},
			want: Options{SuiteDir: "suites", Jobs: 4, MaxFlakyRuns: 3, OutputDir: "out"},
		},
		{
			name: "aut paths",
			args: []string{"-a", "/opt/app", "-start", "/opt/scripts"},
			want: Options{MaxFlakyRuns: 1, AutPath: "/opt/app", StartScriptPath: "/opt/scripts"},
		},
		{
			name: "long aut paths",
			args: []string{"--autPath=/opt/app", "--startScriptPath", "/opt/scripts"},
			want: Options{MaxFlakyRuns: 1, AutPath: "/opt/app", StartScriptPath: "/opt/scripts"},
		},
		{
			name: "double dash",
			args: []string{"--", "-odd-dir"},
			want: Options{MaxFlakyRuns: 1, SuiteDir: "-odd-dir"},
		},
		{
			name: "help and version",
			args: []string{"-h", "--version"},
			want: Options{Help: true, Version: true, MaxFlakyRuns: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs() error = %v", err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("parseArgs() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--docker"}, "unknown flag"},
		{"missing value", []string{"-t"}, "requires a value"},
		{"jobs not a number", []string{"-j", "many"}, "invalid --jobs"},
		{"negative jobs", []string{"-j", "-1"}, "--jobs should be bigger than 0"},
		{"zero flaky runs", []string{"--maxFlakyRuns", "0"}, "maxFlakyRuns should be bigger than 0"},
		{"flaky runs not a number", []string{"--maxFlakyRuns=x"}, "invalid --maxFlakyRuns"},
		{"two directories", []string{"a", "b"}, "at most one suite directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args)
			if err == nil {
				t.Fatal("parseArgs() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parseArgs() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
