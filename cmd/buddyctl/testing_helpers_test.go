package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	// Read concurrently so large outputs cannot block on a full pipe.
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()
	w.Close()
	<-done
	r.Close()

	return buf.String(), fnErr
}

// resetGlobalFlags restores the persistent flags to their defaults
func resetGlobalFlags() {
	quiet = false
	verbose = false
	jsonOut = false
	logFile = ""
	logLevel = ""
}

// assertJSON checks that output is a single valid JSON document
func assertJSON(t *testing.T, output string) {
	t.Helper()
	assert.True(t, json.Valid([]byte(output)), "invalid JSON output:\n%s", output)
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		assert.Contains(t, output, want)
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		assert.NotContains(t, output, dont)
	}
}
