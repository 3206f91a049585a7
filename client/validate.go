package client

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DetectionType of a detector
type DetectionType string

// OutputType of a detector
type OutputType string

// AnnotationType of an annotation set attached to a (detector, raster) pair
type AnnotationType string

// Values accepted by the platform
const (
	DetectionCount        DetectionType = "count"
	DetectionSegmentation DetectionType = "segmentation"

	OutputPolygon OutputType = "polygon"
	OutputBBox    OutputType = "bbox"

	AnnotationOutline        AnnotationType = "outline"
	AnnotationTrainingArea   AnnotationType = "training_area"
	AnnotationTestingArea    AnnotationType = "testing_area"
	AnnotationValidationArea AnnotationType = "validation_area"
)

// Training steps bounds accepted by the platform
const (
	MinTrainingSteps = 500
	MaxTrainingSteps = 40000
)

func checkDetectionType(t DetectionType) error {
	switch t {
	case DetectionCount, DetectionSegmentation:
		return nil
	}
	return &ValidationError{Field: "detection_type", Value: t, Allowed: "count, segmentation"}
}

func checkOutputType(t OutputType) error {
	switch t {
	case OutputPolygon, OutputBBox:
		return nil
	}
	return &ValidationError{Field: "output_type", Value: t, Allowed: "polygon, bbox"}
}

func checkAnnotationType(t AnnotationType) error {
	switch t {
	case AnnotationOutline, AnnotationTrainingArea, AnnotationTestingArea, AnnotationValidationArea:
		return nil
	}
	return &ValidationError{Field: "annotation_type", Value: t, Allowed: "outline, training_area, testing_area, validation_area"}
}

func checkTrainingSteps(steps int) error {
	if steps < MinTrainingSteps || steps > MaxTrainingSteps {
		return &ValidationError{Field: "training_steps", Value: steps, Allowed: fmt.Sprintf("[%d, %d]", MinTrainingSteps, MaxTrainingSteps)}
	}
	return nil
}

func checkUUID(field, id string) error {
	// uuid.Parse also tolerates braced, urn-prefixed and unhyphenated forms;
	// only the canonical 36-character form is a valid identifier here.
	if len(id) != 36 {
		return &ValidationError{Field: field, Value: id, Allowed: "canonical UUID"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: field, Value: id, Allowed: "canonical UUID"}
	}
	return nil
}

// normalizeConfiguration lowercases the detection type and validates the
// whole configuration. A zero TrainingSteps defaults to MinTrainingSteps.
func normalizeConfiguration(cfg DetectorConfiguration) (DetectorConfiguration, error) {
	cfg.DetectionType = DetectionType(strings.ToLower(string(cfg.DetectionType)))
	if err := checkDetectionType(cfg.DetectionType); err != nil {
		return cfg, err
	}
	if err := checkOutputType(cfg.OutputType); err != nil {
		return cfg, err
	}
	if cfg.TrainingSteps == 0 {
		cfg.TrainingSteps = MinTrainingSteps
	}
	if err := checkTrainingSteps(cfg.TrainingSteps); err != nil {
		return cfg, err
	}
	return cfg, nil
}
