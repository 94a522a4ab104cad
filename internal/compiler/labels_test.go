package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildLabels_ParseLabels verifies that parsing the labels produced by
// BuildLabels restores every field.
func TestBuildLabels_ParseLabels(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	labels := BuildLabels("build-1", "vendor", "/work/shop", created)

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])

	bc, err := ParseLabels("abc123", labels)
	require.NoError(t, err)
	assert.Equal(t, "abc123", bc.ID)
	assert.Equal(t, "build-1", bc.BuildID)
	assert.Equal(t, "vendor", bc.Stage)
	assert.Equal(t, "/work/shop", bc.AppPath)
	assert.True(t, created.Equal(bc.CreatedAt))
}

// TestParseLabels_Errors verifies rejection of incomplete or foreign label
// sets.
func TestParseLabels_Errors(t *testing.T) {
	valid := func() map[string]string {
		return BuildLabels("b", "main", "/app", time.Now())
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{
			name:    "missing build id",
			mutate:  func(l map[string]string) { delete(l, LabelBuildID) },
			wantErr: "missing required labels",
		},
		{
			name:    "foreign manager",
			mutate:  func(l map[string]string) { l[LabelManagedBy] = "someone-else" },
			wantErr: "not managed by ath2",
		},
		{
			name:    "bad timestamp",
			mutate:  func(l map[string]string) { l[LabelCreatedAt] = "yesterday" },
			wantErr: "invalid " + LabelCreatedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := valid()
			tt.mutate(labels)
			_, err := ParseLabels("id", labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
