package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Assert deep equality (and provide useful difference as a test failure)
func AssertEq(t *testing.T, actual, expected interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(actual, expected, opts...); diff != "" {
		t.Fatal(diff)
	}
}

func AssertNotEq(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if diff := cmp.Diff(actual, expected); diff == "" {
		t.Fatalf("Expected values to differ: %s", actual)
	}
}

func AssertTrue(t *testing.T, actual interface{}) {
	t.Helper()
	AssertEq(t, actual, true)
}

func AssertFalse(t *testing.T, actual interface{}) {
	t.Helper()
	AssertEq(t, actual, false)
}

func AssertContains(t *testing.T, actual, expected string) {
	t.Helper()
	if !strings.Contains(actual, expected) {
		t.Fatalf(
			"Expected '%s' to contain '%s'\n\nDiff:%s",
			actual,
			expected,
			cmp.Diff(expected, actual),
		)
	}
}

func AssertNotContains(t *testing.T, actual, expected string) {
	t.Helper()
	if strings.Contains(actual, expected) {
		t.Fatalf("Expected '%s' not to be in '%s'", expected, actual)
	}
}

func AssertSliceContains(t *testing.T, slice []string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		found := false
		for _, s := range slice {
			if s == e {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Expected %+v to contain: %s", slice, e)
		}
	}
}

func AssertError(t *testing.T, actual error, expected string) {
	t.Helper()
	if actual == nil {
		t.Fatalf("Expected an error but got nil")
	}

	if !strings.Contains(actual.Error(), expected) {
		t.Fatalf(
			`Expected error to contain "%s", got "%s"\n\n Diff:\n%s`,
			expected,
			actual.Error(),
			cmp.Diff(expected, actual.Error()),
		)
	}
}

func AssertNil(t *testing.T, actual interface{}) {
	t.Helper()
	if !isNil(actual) {
		t.Fatalf("Expected nil: %s", actual)
	}
}

func AssertNotNil(t *testing.T, actual interface{}) {
	t.Helper()
	if isNil(actual) {
		t.Fatal("Expected not nil")
	}
}

func isNil(value interface{}) bool {
	return value == nil || (reflect.TypeOf(value).Kind() == reflect.Ptr && reflect.ValueOf(value).IsNil())
}

func AssertPathExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("Expected %q to exist: %s", path, err)
	}
}

func AssertPathDoesNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	if err == nil {
		t.Fatalf("Expected %q to not exist", path)
	} else if !os.IsNotExist(err) {
		t.Fatalf("Expected %q to not exist, got: %s", path, err)
	}
}

func AssertFileContents(t *testing.T, path, expected string) {
	t.Helper()
	contents, err := os.ReadFile(filepath.Clean(path))
	AssertNil(t, err)
	AssertEq(t, string(contents), expected)
}

// WriteFile creates path and any missing parent directories with the given contents.
func WriteFile(t *testing.T, path, contents string) {
	t.Helper()
	AssertNil(t, os.MkdirAll(filepath.Dir(path), 0750))
	AssertNil(t, os.WriteFile(path, []byte(contents), 0600))
}

// TempDir returns a fresh directory with symlinks resolved, removed at the end of the test.
func TempDir(t *testing.T, prefix string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", prefix)
	AssertNil(t, err)
	dir, err = filepath.EvalSymlinks(dir)
	AssertNil(t, err)
	t.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			fmt.Fprintf(os.Stderr, "removing temp dir %s: %s\n", dir, err)
		}
	})
	return dir
}
