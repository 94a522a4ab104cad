package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildKind_String verifies that BuildKind values produce the expected
// string representations for CLI output and JSON serialization.
func TestBuildKind_String(t *testing.T) {
	tests := []struct {
		kind     BuildKind
		expected string
	}{
		{KindApp, "app"},
		{KindModule, "module"},
		{KindNone, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

// TestLibrarySettings_IsEmpty covers nil, empty and populated libraries.
func TestLibrarySettings_IsEmpty(t *testing.T) {
	var nilLib *LibrarySettings
	assert.True(t, nilLib.IsEmpty())
	assert.True(t, (&LibrarySettings{Name: "vendor"}).IsEmpty())
	assert.False(t, (&LibrarySettings{Libs: []string{"react"}}).IsEmpty())
}

// TestBuildConfiguration_Paths checks the derived output and library paths,
// including defaults when the library block leaves fields empty.
func TestBuildConfiguration_Paths(t *testing.T) {
	cfg := BuildConfiguration{
		AppPath: "/work/shop",
		Output: OutputSettings{
			OutputRoot: "dist",
			Library:    &LibrarySettings{Libs: []string{"react"}},
		},
	}

	assert.Equal(t, "/work/shop/dist", cfg.OutputPath())
	assert.Equal(t, "lib", cfg.LibraryDir())
	assert.Equal(t, "vendor", cfg.LibraryName())
	assert.Equal(t, "/work/shop/dist/lib", cfg.LibraryPath())

	cfg.Output.Library = &LibrarySettings{Name: "base", Directory: "shared", Libs: []string{"react"}}
	assert.Equal(t, "base", cfg.LibraryName())
	assert.Equal(t, "/work/shop/dist/shared", cfg.LibraryPath())
}

// TestEntryMap_Keys verifies that keys come back sorted regardless of
// map iteration order.
func TestEntryMap_Keys(t *testing.T) {
	m := EntryMap{
		"b/index": {"/b/index.js"},
		"a/list":  {"/a/list.js"},
		"a/index": {"/a/index.js"},
	}
	assert.Equal(t, []string{"a/index", "a/list", "b/index"}, m.Keys())
	assert.Empty(t, EntryMap{}.Keys())
}

// TestPageDirectory_Each verifies deterministic module-then-page ordering.
func TestPageDirectory_Each(t *testing.T) {
	dir := PageDirectory{
		"user": {
			"profile": {Filename: "profile.html"},
			"index":   {Filename: "index.html"},
		},
		"home": {
			"index": {Filename: "index.html"},
		},
	}

	var visited []string
	dir.Each(func(module, page string, p Page) {
		visited = append(visited, module+"/"+page)
	})

	assert.Equal(t, []string{"home/index", "user/index", "user/profile"}, visited)
	assert.Equal(t, 3, dir.Len())
}

// TestReport_Failed covers the stage combinations that count as a failed run.
func TestReport_Failed(t *testing.T) {
	tests := []struct {
		name   string
		stages []StageResult
		want   bool
	}{
		{"no stages", nil, false},
		{"main success", []StageResult{{Stage: StageMain, Outcome: OutcomeSuccess}}, false},
		{"main warning", []StageResult{{Stage: StageMain, Outcome: OutcomeWarning}}, false},
		{"main failure", []StageResult{{Stage: StageMain, Outcome: OutcomeFailure}}, true},
		{"vendor warning blocks", []StageResult{{Stage: StageVendor, Outcome: OutcomeWarning}}, true},
		{"vendor success then main success", []StageResult{
			{Stage: StageVendor, Outcome: OutcomeSuccess},
			{Stage: StageMain, Outcome: OutcomeSuccess},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Stages: tt.stages}
			assert.Equal(t, tt.want, r.Failed())
		})
	}
}

// TestValidateName checks module/page name validation.
func TestValidateName(t *testing.T) {
	valid := []string{"home", "user-center", "page_2", "A1"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "-home", "_tmp", "a/b", "a b", "../x"}
	for _, name := range invalid {
		assert.Error(t, ValidateName(name), name)
	}
}

// TestCLIError verifies message formatting and unwrapping.
func TestCLIError(t *testing.T) {
	base := errors.New("boom")

	plain := NewCLIError(ExitNoEntries, "no file to build")
	assert.Equal(t, "no file to build", plain.Error())
	assert.Nil(t, plain.Unwrap())
	assert.Equal(t, ExitNoEntries, plain.Code)

	wrapped := WrapCLIError(ExitConfigInvalid, "invalid config", base)
	assert.Equal(t, "invalid config: boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, base))

	var target *CLIError
	require.True(t, errors.As(error(wrapped), &target))
	assert.Equal(t, ExitConfigInvalid, target.Code)
	assert.False(t, target.Reported)

	reported := ReportedCLIError(ExitNotBuildTarget, "not a build target")
	assert.True(t, reported.Reported)
	assert.Equal(t, ExitNotBuildTarget, reported.Code)
}
