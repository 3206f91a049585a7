package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DetectorConfiguration describes how a detector segments or counts.
type DetectorConfiguration struct {
	DetectionType DetectionType `json:"detection_type"`
	OutputType    OutputType    `json:"output_type"`
	TrainingSteps int           `json:"training_steps"`
}

// Detector is a configured detection model.
type Detector struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Configuration DetectorConfiguration `json:"configuration"`
}

// CreateDetector creates a detector and returns its id. The configuration is
// validated before any network call; the detection type is case-insensitive.
func (c *Client) CreateDetector(ctx context.Context, name string, cfg DetectorConfiguration) (string, error) {
	cfg, err := normalizeConfiguration(cfg)
	if err != nil {
		return "", err
	}
	body := struct {
		Name          string                `json:"name,omitempty"`
		Configuration DetectorConfiguration `json:"configuration"`
	}{name, cfg}
	var d Detector
	if err := c.postJSON(ctx, "/detectors/", body, &d); err != nil {
		return "", fmt.Errorf("CreateDetector: %w", err)
	}
	return d.ID, nil
}

// DetectorUpdate holds the fields of a partial edit. Nil fields are neither
// validated nor sent: the server leaves them untouched.
type DetectorUpdate struct {
	Name          *string
	DetectionType *DetectionType
	OutputType    *OutputType
	TrainingSteps *int
}

// EditDetector applies a partial update to the detector.
func (c *Client) EditDetector(ctx context.Context, detectorID string, update DetectorUpdate) error {
	body := map[string]interface{}{}
	cfg := map[string]interface{}{}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	if update.DetectionType != nil {
		dt := DetectionType(strings.ToLower(string(*update.DetectionType)))
		if err := checkDetectionType(dt); err != nil {
			return err
		}
		cfg["detection_type"] = dt
	}
	if update.OutputType != nil {
		if err := checkOutputType(*update.OutputType); err != nil {
			return err
		}
		cfg["output_type"] = *update.OutputType
	}
	if update.TrainingSteps != nil {
		if err := checkTrainingSteps(*update.TrainingSteps); err != nil {
			return err
		}
		cfg["training_steps"] = *update.TrainingSteps
	}
	if len(cfg) > 0 {
		body["configuration"] = cfg
	}
	if len(body) == 0 {
		return nil
	}
	if err := c.putJSON(ctx, "/detectors/"+detectorID+"/", body, nil); err != nil {
		return fmt.Errorf("EditDetector: %w", err)
	}
	return nil
}

// Detectors lists every detector of the account.
func (c *Client) Detectors(ctx context.Context) ([]Detector, error) {
	detectors, err := listAll[Detector](ctx, c, "/detectors/")
	if err != nil {
		return nil, fmt.Errorf("Detectors: %w", err)
	}
	return detectors, nil
}

// Detector returns one detector.
func (c *Client) Detector(ctx context.Context, detectorID string) (*Detector, error) {
	var d Detector
	if err := c.getJSON(ctx, "/detectors/"+detectorID+"/", &d); err != nil {
		return nil, fmt.Errorf("Detector: %w", err)
	}
	return &d, nil
}

// AddRasterToDetector registers the raster as a training raster of the
// detector. Both ids must be canonical UUIDs.
func (c *Client) AddRasterToDetector(ctx context.Context, detectorID, rasterID string) error {
	if err := checkUUID("detector_id", detectorID); err != nil {
		return err
	}
	if err := checkUUID("raster_id", rasterID); err != nil {
		return err
	}
	body := map[string]string{"raster_id": rasterID}
	if err := c.postJSON(ctx, "/detectors/"+detectorID+"/training_rasters/", body, nil); err != nil {
		return fmt.Errorf("AddRasterToDetector: %w", err)
	}
	return nil
}

// SetAnnotations overwrites the annotations of the given type for the
// (detector, raster) pair. geometries is an opaque geometry collection,
// JSON-encoded and staged through the bulk-upload endpoint.
func (c *Client) SetAnnotations(ctx context.Context, detectorID, rasterID string, typ AnnotationType, geometries interface{}) error {
	if err := checkAnnotationType(typ); err != nil {
		return err
	}
	payload, err := json.Marshal(geometries)
	if err != nil {
		return fmt.Errorf("SetAnnotations.Marshal: %w", err)
	}
	base := "/detectors/" + detectorID + "/training_rasters/" + rasterID + "/" + string(typ) + "/upload/bulk/"
	_, err = c.stagedUpload(ctx, base, nil, bytes.NewReader(payload), int64(len(payload)),
		func(id string) string {
			return base + id + "/commit/"
		})
	if err != nil {
		return fmt.Errorf("SetAnnotations: %w", err)
	}
	return nil
}

// TrainDetector launches a training job and waits for its completion.
func (c *Client) TrainDetector(ctx context.Context, detectorID string) error {
	var ref operationRef
	if err := c.postJSON(ctx, "/detectors/"+detectorID+"/train/", nil, &ref); err != nil {
		return fmt.Errorf("TrainDetector: %w", err)
	}
	if _, err := c.waitRef(ctx, ref); err != nil {
		return fmt.Errorf("TrainDetector: %w", err)
	}
	return nil
}

// RunDetector runs the detector on the raster, waits for the detection to
// finish and returns the terminal operation holding the result. Both ids must
// be canonical UUIDs.
func (c *Client) RunDetector(ctx context.Context, detectorID, rasterID string) (*Operation, error) {
	if err := checkUUID("detector_id", detectorID); err != nil {
		return nil, err
	}
	if err := checkUUID("raster_id", rasterID); err != nil {
		return nil, err
	}
	var ref operationRef
	if err := c.postJSON(ctx, "/detectors/"+detectorID+"/run/", map[string]string{"raster_id": rasterID}, &ref); err != nil {
		return nil, fmt.Errorf("RunDetector: %w", err)
	}
	op, err := c.waitRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("RunDetector: %w", err)
	}
	return op, nil
}
