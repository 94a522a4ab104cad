package compiler

import (
	"fmt"
	"time"
)

// Label keys put on every build container. They let `ath2 clean` find
// containers left behind by interrupted builds.
const (
	// LabelPrefix is the common prefix of all ath2 labels.
	LabelPrefix = "ath2."

	// LabelManagedBy marks containers created by ath2.
	// Key: "ath2.managed-by", Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelBuildID stores the build id of the run.
	LabelBuildID = LabelPrefix + "build-id"

	// LabelStage stores the stage ("vendor" or "main").
	LabelStage = LabelPrefix + "stage"

	// LabelAppPath stores the absolute host path of the app.
	LabelAppPath = LabelPrefix + "app-path"

	// LabelCreatedAt stores the RFC3339 creation time.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "ath2"

// BuildContainer is a build container reconstructed from its labels.
type BuildContainer struct {
	ID        string
	BuildID   string
	Stage     string
	AppPath   string
	CreatedAt time.Time
	State     string
}

// BuildLabels returns the labels of a build container.
func BuildLabels(buildID, stage, appPath string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelBuildID:   buildID,
		LabelStage:     stage,
		LabelAppPath:   appPath,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels is the inverse of BuildLabels. All labels are required.
func ParseLabels(id string, labels map[string]string) (*BuildContainer, error) {
	required := []string{LabelManagedBy, LabelBuildID, LabelStage, LabelAppPath, LabelCreatedAt}
	var missing []string
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("container %s is missing required labels: %v", id, missing)
	}
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf("container %s is not managed by ath2 (managed-by=%q)", id, labels[LabelManagedBy])
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("container %s has an invalid %s label: %w", id, LabelCreatedAt, err)
	}

	return &BuildContainer{
		ID:        id,
		BuildID:   labels[LabelBuildID],
		Stage:     labels[LabelStage],
		AppPath:   labels[LabelAppPath],
		CreatedAt: createdAt,
	}, nil
}
