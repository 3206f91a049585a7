package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/terrapix/terrapix-client-go/service/log"
)

// RasterStatus of an uploaded image
type RasterStatus string

const (
	RasterProcessing RasterStatus = "processing"
	RasterReady      RasterStatus = "ready"
	RasterFailed     RasterStatus = "failed"
)

// Raster is an uploaded image targetable by detectors.
type Raster struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Status   RasterStatus `json:"status"`
	FolderID string       `json:"folder_id,omitempty"`
}

// UploadRasterOptions are the recognized options of UploadRaster.
type UploadRasterOptions struct {
	// Name is the display name of the raster. UploadRaster defaults it to
	// the file base name.
	Name string
	// FolderID is the optional destination folder.
	FolderID string
}

// UploadRaster streams the image at path to the platform and returns the
// raster id. The id is returned only once the raster is ready: initiate,
// transfer, commit and the readiness poll all happened.
func (c *Client) UploadRaster(ctx context.Context, path string, opts *UploadRasterOptions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("UploadRaster: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("UploadRaster: %w", err)
	}
	o := UploadRasterOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Name == "" {
		o.Name = filepath.Base(path)
	}
	return c.UploadRasterFrom(ctx, f, fi.Size(), &o)
}

// UploadRasterFrom is UploadRaster reading from an arbitrary stream. The
// payload is streamed to storage, never buffered in memory. size may be -1
// when unknown.
func (c *Client) UploadRasterFrom(ctx context.Context, payload io.Reader, size int64, opts *UploadRasterOptions) (string, error) {
	meta := map[string]string{}
	if opts != nil {
		if opts.Name != "" {
			meta["name"] = opts.Name
		}
		if opts.FolderID != "" {
			meta["folder_id"] = opts.FolderID
		}
	}
	id, err := c.stagedUpload(ctx, "/rasters/upload/file/", meta, payload, size, func(id string) string {
		return "/rasters/" + id + "/commit/"
	})
	if err != nil {
		return "", fmt.Errorf("UploadRasterFrom: %w", err)
	}
	log.Logger(ctx).Debug("raster ready", zap.String("raster", id))
	return id, nil
}

// SetDetectionArea restricts detection on the raster to the areas in the
// GeoJSON file at path.
func (c *Client) SetDetectionArea(ctx context.Context, rasterID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("SetDetectionArea: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("SetDetectionArea: %w", err)
	}
	_, err = c.stagedUpload(ctx,
		"/rasters/"+rasterID+"/detection_areas/upload/file/", nil, f, fi.Size(),
		func(id string) string {
			return "/rasters/" + rasterID + "/detection_areas/upload/" + id + "/commit/"
		})
	if err != nil {
		return fmt.Errorf("SetDetectionArea: %w", err)
	}
	return nil
}

// listPage is the paginated envelope of every listing endpoint.
type listPage[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// listAll follows the pagination of basePath until the envelope carries no
// next URL, concatenating the pages in server order. next is followed
// verbatim; an absolute next on the configured server is rebased so the api
// key is still sent.
func listAll[T any](ctx context.Context, c *Client, basePath string) ([]T, error) {
	var all []T
	for path := basePath; ; {
		var pg listPage[T]
		if err := c.getJSON(ctx, path, &pg); err != nil {
			return nil, err
		}
		all = append(all, pg.Results...)
		if pg.Next == "" {
			break
		}
		path = strings.TrimPrefix(pg.Next, c.server)
	}
	return all, nil
}

// Rasters lists every raster of the account.
func (c *Client) Rasters(ctx context.Context) ([]Raster, error) {
	rasters, err := listAll[Raster](ctx, c, "/rasters/")
	if err != nil {
		return nil, fmt.Errorf("Rasters: %w", err)
	}
	return rasters, nil
}

// Raster returns one raster.
func (c *Client) Raster(ctx context.Context, rasterID string) (*Raster, error) {
	var r Raster
	if err := c.getJSON(ctx, "/rasters/"+rasterID+"/", &r); err != nil {
		return nil, fmt.Errorf("Raster: %w", err)
	}
	return &r, nil
}

// DeleteRaster removes the raster from the platform.
func (c *Client) DeleteRaster(ctx context.Context, rasterID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/rasters/"+rasterID+"/", nil, true)
	if err != nil {
		return fmt.Errorf("DeleteRaster: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("DeleteRaster: %w", err)
	}
	return nil
}
