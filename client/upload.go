package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/terrapix/terrapix-client-go/service/log"
)

// uploadTarget is the response of every upload-initiate endpoint. Raster
// initiations return raster_id, detection-area and annotation initiations
// return upload_id.
type uploadTarget struct {
	UploadURL string `json:"upload_url"`
	UploadID  string `json:"upload_id"`
	RasterID  string `json:"raster_id"`
}

func (t uploadTarget) id() string {
	if t.UploadID != "" {
		return t.UploadID
	}
	return t.RasterID
}

// uploadToURL PUTs the payload to a pre-signed storage URL. The request is
// unauthenticated and never retried: a partial write to a pre-signed target
// is not resumable.
func (c *Client) uploadToURL(ctx context.Context, url string, payload io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, payload)
	if err != nil {
		return fmt.Errorf("uploadToURL.NewRequest: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("uploadToURL[%s]: %w", url, err)
	}
	return nil
}

// stagedUpload runs the initiate/transfer/commit/await sequence shared by
// raster, detection-area and annotation uploads. commitPath builds the commit
// endpoint from the id returned by the initiate call. The returned id is
// usable only because the operation was awaited: a failure at any hop aborts
// the remaining hops.
func (c *Client) stagedUpload(ctx context.Context, initiatePath string, metadata interface{}, payload io.Reader, size int64, commitPath func(id string) string) (string, error) {
	var target uploadTarget
	if err := c.postJSON(ctx, initiatePath, metadata, &target); err != nil {
		return "", fmt.Errorf("initiate upload: %w", err)
	}
	if target.UploadURL == "" {
		return "", fmt.Errorf("initiate upload %s: missing upload_url", initiatePath)
	}
	log.Logger(ctx).Debug("upload initiated", zap.String("id", target.id()))

	if err := c.uploadToURL(ctx, target.UploadURL, payload, size); err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}

	var ref operationRef
	if err := c.postJSON(ctx, commitPath(target.id()), nil, &ref); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if _, err := c.waitRef(ctx, ref); err != nil {
		return "", err
	}
	return target.id(), nil
}
