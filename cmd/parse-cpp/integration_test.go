package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// PreprocTestSpec represents a single preprocessing test case
type PreprocTestSpec struct {
	Name      string   `yaml:"name"`
	Input     string   `yaml:"input"`
	Args      []string `yaml:"args,omitempty"`      // extra CLI arguments
	Expect    []string `yaml:"expect"`              // strings that must appear in output
	ExpectNot []string `yaml:"expect_not"`          // strings that must NOT appear in output
	WantError bool     `yaml:"want_error,omitempty"`
	Skip      string   `yaml:"skip,omitempty"`
}

// PreprocTestFile represents the preproc.yaml file structure
type PreprocTestFile struct {
	Tests []PreprocTestSpec `yaml:"tests"`
}

// TestPreprocYAML runs the CLI over the yaml test cases end to end.
func TestPreprocYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/preproc.yaml")
	if err != nil {
		t.Fatalf("preproc.yaml not found: %v", err)
	}

	var testFile PreprocTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse preproc.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			tmpDir := t.TempDir()
			srcPath := filepath.Join(tmpDir, "test.txt")
			if err := os.WriteFile(srcPath, []byte(tc.Input), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			resetFlags()
			var out, errOut bytes.Buffer
			cmd := newRootCmd(&out, &errOut)
			cmd.SetArgs(append(append([]string{}, tc.Args...), srcPath))
			err := cmd.Execute()

			if tc.WantError {
				if err == nil {
					t.Fatalf("expected an error, got none\nOutput:\n%s", out.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("parse-cpp failed: %v\nStderr: %s", err, errOut.String())
			}

			output := out.String()
			for _, exp := range tc.Expect {
				if !strings.Contains(output, exp) {
					t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
				}
			}
			for _, exp := range tc.ExpectNot {
				if strings.Contains(output, exp) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", exp, output)
				}
			}
		})
	}
}

// TestIncludeSearchPath tests the -I flag end to end.
func TestIncludeSearchPath(t *testing.T) {
	tmpDir := t.TempDir()

	includeDir := filepath.Join(tmpDir, "include")
	if err := os.Mkdir(includeDir, 0755); err != nil {
		t.Fatalf("failed to create include dir: %v", err)
	}

	headerContent := `#ifndef CONFIG_H
#define CONFIG_H
#define MAX_CLIENTS 64
#endif
`
	if err := os.WriteFile(filepath.Join(includeDir, "config.h"), []byte(headerContent), 0644); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	sourceContent := `#include <config.h>
clients = MAX_CLIENTS;
`
	srcPath := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(srcPath, []byte(sourceContent), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"-I", includeDir, srcPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse-cpp failed: %v\nStderr: %s", err, errOut.String())
	}

	if !strings.Contains(out.String(), "64") {
		t.Errorf("expected MAX_CLIENTS to expand to 64\nGot:\n%s", out.String())
	}
}
