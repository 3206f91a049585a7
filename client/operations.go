package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/terrapix/terrapix-client-go/service/log"
)

// OperationStatus is the polled state of a server-side job.
type OperationStatus string

// Statuses reported by the operations endpoint. Transitions are monotonic:
// once a terminal status (success, failed) is observed, no further transition
// occurs.
const (
	OperationPending OperationStatus = "pending"
	OperationRunning OperationStatus = "running"
	OperationSuccess OperationStatus = "success"
	OperationFailed  OperationStatus = "failed"
)

// Terminal returns whether no further transition can occur.
func (s OperationStatus) Terminal() bool {
	return s == OperationSuccess || s == OperationFailed
}

// OperationResults is the payload attached to a successful operation.
type OperationResults struct {
	URL        string `json:"url,omitempty"`
	RasterID   string `json:"raster_id,omitempty"`
	DetectorID string `json:"detector_id,omitempty"`
}

// Operation is a server-tracked asynchronous job. It is observed, never
// mutated, by the client.
type Operation struct {
	ID      string            `json:"id"`
	Status  OperationStatus   `json:"status"`
	Results *OperationResults `json:"results,omitempty"`
	Errors  json.RawMessage   `json:"errors,omitempty"`
}

// operationRef is the {operation_id, poll_interval} envelope returned by
// commit, train and run endpoints. Run responses name the field result_id;
// both poll on the operations endpoint.
type operationRef struct {
	OperationID  string  `json:"operation_id"`
	ResultID     string  `json:"result_id"`
	PollInterval float64 `json:"poll_interval"`
}

func (r operationRef) id() string {
	if r.OperationID != "" {
		return r.OperationID
	}
	return r.ResultID
}

const defaultPollInterval = time.Second

func (r operationRef) interval() time.Duration {
	if r.PollInterval <= 0 {
		return defaultPollInterval
	}
	return time.Duration(r.PollInterval * float64(time.Second))
}

// GetOperation fetches the current state of an operation.
func (c *Client) GetOperation(ctx context.Context, operationID string) (*Operation, error) {
	var op Operation
	if err := c.getJSON(ctx, "/operations/"+operationID+"/", &op); err != nil {
		return nil, fmt.Errorf("GetOperation: %w", err)
	}
	if op.ID == "" {
		op.ID = operationID
	}
	return &op, nil
}

// WaitOperation polls the operation until it reaches a terminal status or the
// client timeout elapses. It returns the terminal operation on success, an
// *OperationError if the server reports failure and a *TimeoutError if the
// deadline is exceeded. Cancelling ctx aborts both the sleeps and the
// requests.
func (c *Client) WaitOperation(ctx context.Context, operationID string, pollInterval time.Duration) (*Operation, error) {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	deadline := time.Now().Add(c.timeout)
	logger := log.Logger(ctx)

	// the job was just submitted: first check after a fraction of the interval
	if err := sleep(ctx, pollInterval/4); err != nil {
		return nil, err
	}
	for {
		op, err := c.GetOperation(ctx, operationID)
		if err != nil {
			return nil, fmt.Errorf("WaitOperation: %w", err)
		}
		switch op.Status {
		case OperationSuccess:
			return op, nil
		case OperationFailed:
			return nil, &OperationError{OperationID: operationID, Detail: string(op.Errors)}
		}
		logger.Debug("operation pending",
			zap.String("operation", operationID),
			zap.String("status", string(op.Status)))
		if time.Now().After(deadline) {
			return nil, &TimeoutError{OperationID: operationID, Timeout: c.timeout}
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

func (c *Client) waitRef(ctx context.Context, ref operationRef) (*Operation, error) {
	return c.WaitOperation(ctx, ref.id(), ref.interval())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
