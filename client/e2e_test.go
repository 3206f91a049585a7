package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/terrapix/terrapix-client-go/client"
)

const detectionsGeoJSON = `{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[0,0]]]}}]}`

// fakePlatform is an in-memory Terrapix server covering the full detection
// workflow: staged uploads, operations, detectors, training and runs.
type fakePlatform struct {
	mu sync.Mutex

	base        string
	rasters     map[string]string         // id -> status
	detectors   map[string]bool
	training    map[string][]string       // detector -> rasters
	annotations map[string][]byte         // detector/raster/type -> payload
	uploads     map[string][]byte         // upload id -> payload
	pendingAnn  map[string]string         // upload id -> annotation key
	operations  map[string]*fakeOperation // id -> state
	results     map[string][]byte         // operation id -> result payload
}

type fakeOperation struct {
	remaining int // non-terminal polls left
	results   string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		rasters:     map[string]string{},
		detectors:   map[string]bool{},
		training:    map[string][]string{},
		annotations: map[string][]byte{},
		uploads:     map[string][]byte{},
		pendingAnn:  map[string]string{},
		operations:  map[string]*fakeOperation{},
		results:     map[string][]byte{},
	}
}

func (p *fakePlatform) newOperation(remaining int, results string) string {
	id := uuid.NewString()
	p.operations[id] = &fakeOperation{remaining: remaining, results: results}
	return id
}

func (p *fakePlatform) opEnvelope(id string) string {
	return fmt.Sprintf(`{"operation_id": %q, "poll_interval": 0.01}`, id)
}

func (p *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	// staged upload storage
	case r.Method == http.MethodPut && seg[0] == "storage":
		b := new(bytes.Buffer)
		b.ReadFrom(r.Body)
		p.uploads[seg[1]] = b.Bytes()

	// rasters
	case r.Method == http.MethodPost && r.URL.Path == "/rasters/upload/file/":
		id := uuid.NewString()
		p.rasters[id] = "processing"
		fmt.Fprintf(w, `{"raster_id": %q, "upload_url": %q}`, id, p.base+"/storage/"+id)
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "rasters" && seg[2] == "commit":
		id := seg[1]
		if _, ok := p.uploads[id]; !ok {
			http.Error(w, "nothing uploaded", http.StatusConflict)
			return
		}
		p.rasters[id] = "ready"
		fmt.Fprint(w, p.opEnvelope(p.newOperation(2, fmt.Sprintf(`{"raster_id": %q}`, id))))
	case r.Method == http.MethodGet && r.URL.Path == "/rasters/":
		var items []string
		for id, status := range p.rasters {
			items = append(items, fmt.Sprintf(`{"id": %q, "name": "raster", "status": %q}`, id, status))
		}
		fmt.Fprintf(w, `{"count": %d, "next": "", "results": [%s]}`, len(items), strings.Join(items, ","))

	// detection areas
	case r.Method == http.MethodPost && len(seg) == 5 && seg[0] == "rasters" && seg[2] == "detection_areas" && seg[4] == "file":
		id := uuid.NewString()
		fmt.Fprintf(w, `{"upload_id": %q, "upload_url": %q}`, id, p.base+"/storage/"+id)
	case r.Method == http.MethodPost && len(seg) == 6 && seg[0] == "rasters" && seg[2] == "detection_areas" && seg[5] == "commit":
		fmt.Fprint(w, p.opEnvelope(p.newOperation(1, "")))

	// detectors
	case r.Method == http.MethodPost && r.URL.Path == "/detectors/":
		id := uuid.NewString()
		p.detectors[id] = true
		fmt.Fprintf(w, `{"id": %q}`, id)
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "detectors" && seg[2] == "training_rasters":
		var body struct {
			RasterID string `json:"raster_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		p.training[seg[1]] = append(p.training[seg[1]], body.RasterID)
		w.WriteHeader(http.StatusCreated)

	// annotations: /detectors/{d}/training_rasters/{r}/{type}/upload/bulk/
	case r.Method == http.MethodPost && len(seg) == 7 && seg[0] == "detectors" && seg[6] == "bulk":
		id := uuid.NewString()
		p.pendingAnn[id] = strings.Join([]string{seg[1], seg[3], seg[4]}, "/")
		fmt.Fprintf(w, `{"upload_id": %q, "upload_url": %q}`, id, p.base+"/storage/"+id)
	case r.Method == http.MethodPost && len(seg) == 9 && seg[0] == "detectors" && seg[8] == "commit":
		id := seg[7]
		p.annotations[p.pendingAnn[id]] = p.uploads[id]
		fmt.Fprint(w, p.opEnvelope(p.newOperation(1, "")))

	// train and run
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "detectors" && seg[2] == "train":
		fmt.Fprint(w, p.opEnvelope(p.newOperation(3, "")))
	case r.Method == http.MethodPost && len(seg) == 3 && seg[0] == "detectors" && seg[2] == "run":
		op := p.newOperation(2, "")
		p.results[op] = []byte(detectionsGeoJSON)
		p.operations[op].results = fmt.Sprintf(`{"url": %q}`, p.base+"/results/"+op)
		fmt.Fprintf(w, `{"result_id": %q, "poll_interval": 0.01}`, op)
	case (r.Method == http.MethodGet || r.Method == http.MethodHead) && len(seg) == 2 && seg[0] == "results":
		http.ServeContent(w, r, "result.geojson", time.Time{}, bytes.NewReader(p.results[seg[1]]))

	// operations
	case r.Method == http.MethodGet && len(seg) == 2 && seg[0] == "operations":
		op, ok := p.operations[seg[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if op.remaining > 0 {
			op.remaining--
			fmt.Fprint(w, `{"status": "running"}`)
			return
		}
		if op.results != "" {
			fmt.Fprintf(w, `{"status": "success", "results": %s}`, op.results)
		} else {
			fmt.Fprint(w, `{"status": "success"}`)
		}

	default:
		http.Error(w, fmt.Sprintf("unexpected request: %s %s", r.Method, r.URL.Path), http.StatusNotImplemented)
	}
}

var _ = Describe("Detection workflow", func() {
	var (
		ctx      context.Context
		platform *fakePlatform
		srv      *httptest.Server
		clt      *client.Client
		tmpDir   string
	)

	BeforeEach(func() {
		ctx = context.Background()
		platform = newFakePlatform()
		srv = httptest.NewServer(platform)
		platform.base = srv.URL
		var err error
		clt, err = client.Connector{Server: srv.URL, APIKey: "test-key", Timeout: 10 * time.Second}.Dial()
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = os.MkdirTemp("", "terrapix")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		srv.Close()
		os.RemoveAll(tmpDir)
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	It("uploads a raster, trains a detector and downloads the detections", func() {
		rasterPath := writeFile("field.tif", "tif bytes")
		rasterID, err := clt.UploadRaster(ctx, rasterPath, &client.UploadRasterOptions{Name: "field"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rasterID).NotTo(BeEmpty())

		rasters, err := clt.Rasters(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rasters).To(HaveLen(1))
		Expect(rasters[0].ID).To(Equal(rasterID))
		Expect(rasters[0].Status).To(Equal(client.RasterReady))

		areaPath := writeFile("area.geojson", `{"type": "FeatureCollection"}`)
		Expect(clt.SetDetectionArea(ctx, rasterID, areaPath)).To(Succeed())

		detectorID, err := clt.CreateDetector(ctx, "trees", client.DetectorConfiguration{
			DetectionType: client.DetectionCount,
			OutputType:    client.OutputPolygon,
			TrainingSteps: 500,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(clt.AddRasterToDetector(ctx, detectorID, rasterID)).To(Succeed())

		outlines := map[string]interface{}{"type": "FeatureCollection", "features": []interface{}{}}
		Expect(clt.SetAnnotations(ctx, detectorID, rasterID, client.AnnotationOutline, outlines)).To(Succeed())
		Expect(clt.SetAnnotations(ctx, detectorID, rasterID, client.AnnotationTrainingArea, outlines)).To(Succeed())

		Expect(clt.TrainDetector(ctx, detectorID)).To(Succeed())

		op, err := clt.RunDetector(ctx, detectorID, rasterID)
		Expect(err).NotTo(HaveOccurred())
		Expect(op.Status).To(Equal(client.OperationSuccess))
		Expect(op.Results.URL).NotTo(BeEmpty())

		var buf bytes.Buffer
		Expect(clt.WriteResultTo(ctx, op.ID, &buf)).To(Succeed())
		Expect(buf.String()).To(MatchJSON(detectionsGeoJSON))

		dst := filepath.Join(tmpDir, "detections.geojson")
		Expect(clt.DownloadResultTo(ctx, op.ID, dst)).To(Succeed())
		Expect(os.ReadFile(dst)).To(WithTransform(func(b []byte) string { return string(b) }, MatchJSON(detectionsGeoJSON)))
	})

	It("refuses to run a detector on malformed identifiers", func() {
		_, err := clt.RunDetector(ctx, "not-a-uuid", uuid.NewString())
		var verr *client.ValidationError
		Expect(err).To(BeAssignableToTypeOf(verr))
	})
})
