package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cavaliercoder/grab"
	"go.uber.org/zap"

	"github.com/terrapix/terrapix-client-go/service/log"
)

// ErrResultNotReady is returned when downloading the result of an operation
// that has not reached the success status.
const ErrResultNotReady = resultErr("operation result is not ready")

type resultErr string

func (e resultErr) Error() string {
	return string(e)
}

// resultURL fetches the operation and returns the embedded result URL.
func (c *Client) resultURL(ctx context.Context, operationID string) (string, error) {
	op, err := c.GetOperation(ctx, operationID)
	if err != nil {
		return "", err
	}
	if op.Status != OperationSuccess {
		return "", fmt.Errorf("operation %s is %s: %w", operationID, op.Status, ErrResultNotReady)
	}
	if op.Results == nil || op.Results.URL == "" {
		return "", fmt.Errorf("operation %s: missing result url", operationID)
	}
	return op.Results.URL, nil
}

// DownloadResultTo downloads the result of a successfully terminated
// operation to the file at dst. The transfer is streamed to disk. It must be
// called after a successful wait.
func (c *Client) DownloadResultTo(ctx context.Context, operationID, dst string) error {
	url, err := c.resultURL(ctx, operationID)
	if err != nil {
		return fmt.Errorf("DownloadResultTo: %w", err)
	}
	req, err := grab.NewRequest(dst, url)
	if err != nil {
		return fmt.Errorf("DownloadResultTo.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)

	resp := c.downloader.Do(req)
	if err := resp.Err(); err != nil {
		err = fmt.Errorf("DownloadResultTo[%s]: %w", url, err)
		if resp.HTTPResponse == nil {
			return MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return MakeTemporary(err)
		default:
			return err
		}
	}
	log.Logger(ctx).Debug("result downloaded",
		zap.String("operation", operationID),
		zap.String("file", resp.Filename))
	return nil
}

// WriteResultTo streams the result of a successfully terminated operation to
// w, chunk by chunk.
func (c *Client) WriteResultTo(ctx context.Context, operationID string, w io.Writer) error {
	url, err := c.resultURL(ctx, operationID)
	if err != nil {
		return fmt.Errorf("WriteResultTo: %w", err)
	}
	resp, err := c.do(ctx, http.MethodGet, url, nil, false)
	if err != nil {
		return fmt.Errorf("WriteResultTo: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("WriteResultTo[%s]: %w", url, err)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("WriteResultTo: %w", err)
	}
	return nil
}
