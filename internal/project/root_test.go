package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"json", []string{"tests.json"}, "tests.json"},
		{"yaml", []string{"tests.yaml"}, "tests.yaml"},
		{"yml", []string{"tests.yml"}, "tests.yml"},
		{"json preferred", []string{"tests.yml", "tests.json"}, "tests.json"},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, f))
			}

			got, ok := FindDescriptor(dir)
			if tt.want == "" {
				if ok {
					t.Errorf("FindDescriptor() = %q, want not found", got)
				}
				return
			}
			if !ok || got != filepath.Join(dir, tt.want) {
				t.Errorf("FindDescriptor() = %q, %v, want %q", got, ok, tt.want)
			}
		})
	}
}

func TestFindDescriptor_IgnoresDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "tests.json"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok := FindDescriptor(dir); ok {
		t.Error("FindDescriptor() matched a directory")
	}
}

func TestFindSuiteDirFrom(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tests.json"))
	nested := filepath.Join(root, "suite_main", "tst_login")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindSuiteDirFrom(nested)
	if err != nil {
		t.Fatalf("FindSuiteDirFrom() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindSuiteDirFrom() = %q, want %q", got, want)
	}
}

func TestFindSuiteDirFrom_NotFound(t *testing.T) {
	_, err := FindSuiteDirFrom(t.TempDir())
	if !errors.Is(err, ErrNoSuiteDir) {
		t.Errorf("FindSuiteDirFrom() error = %v, want ErrNoSuiteDir", err)
	}
}

func TestIsYAML(t *testing.T) {
	tests := map[string]bool{
		"tests.json":     false,
		"tests.yaml":     true,
		"/a/b/TESTS.YML": true,
	}
	for path, want := range tests {
		if got := IsYAML(path); got != want {
			t.Errorf("IsYAML(%q) = %v, want %v", path, got, want)
		}
	}
}
