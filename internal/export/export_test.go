package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

func testZones() []zone.Record {
	return []zone.Record{
		{
			ID: 0, Key: "k0", Box: geometry.Box{X1: 10, Y1: 20, X2: 30, Y2: 40},
			Label: "2024-03-01", FluidType: catalog.FluidAir, Category: "Small",
			FlowRateRange: "0-5 l/min", AnnualCost: 120, Severity: zone.SeverityHigh,
			State: zone.StateDamaged, Area: "Press, north", MachineID: "P-1", InstallationType: "Ground",
		},
		{
			ID: 2, Key: "k2", Box: geometry.Box{X1: 1.5, Y1: 2, X2: 3, Y2: 4},
			FluidType: catalog.FluidInspectionOK, Category: "No Leak", State: zone.StateCompleted,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testZones()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows: got %d, want 3", len(records))
	}
	header := records[0]
	if header[0] != "id" || header[1] != "x1" || header[len(header)-1] != "key" {
		t.Errorf("header: %v", header)
	}
	row := records[1]
	if row[0] != "0" || row[1] != "10" || row[5] != "2024-03-01" {
		t.Errorf("row: %v", row)
	}
	if row[7] != "Press, north" {
		t.Errorf("quoted area lost: %q", row[7])
	}
	if records[2][0] != "2" || records[2][1] != "1.5" {
		t.Errorf("second row: %v", records[2])
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 9, 4))
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 9 {
		t.Errorf("width: got %d", decoded.Bounds().Dx())
	}
}

func TestFSSink_Put(t *testing.T) {
	root := filepath.Join(t.TempDir(), "reports")
	sink, err := NewFSSink(root)
	if err != nil {
		t.Fatalf("NewFSSink failed: %v", err)
	}

	loc, err := sink.Put(context.Background(), "hall-b/zones.csv", ContentTypeCSV, strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if loc != filepath.Join(root, "hall-b", "zones.csv") {
		t.Errorf("location: got %s", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("content: got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "hall-b"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFSSink_RejectsEscapingNames(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSink failed: %v", err)
	}
	for _, name := range []string{"", "  ", "../x.csv", "/etc/passwd", "a/../../b"} {
		if _, err := sink.Put(context.Background(), name, "", strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) should fail", name)
		}
	}
}

// mockS3 is a tiny fake that accepts PutObject over path-style URLs.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: 501, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	body, _ := io.ReadAll(req.Body)
	m.objects[key] = body
	m.types[key] = req.Header.Get("Content-Type")
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newMockS3Sink(t *testing.T, prefix string) (*S3Sink, *mockS3) {
	t.Helper()
	rt := &mockS3{objects: make(map[string][]byte), types: make(map[string]string)}
	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:          "reports",
		Endpoint:        "https://mock.s3.local",
		Prefix:          prefix,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewS3Sink failed: %v", err)
	}
	return sink, rt
}

func TestS3Sink_Put(t *testing.T) {
	sink, rt := newMockS3Sink(t, "plant-1")

	loc, err := sink.Put(context.Background(), "zones.csv", ContentTypeCSV, bytes.NewReader([]byte("id,x1\n0,10\n")))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if loc != "s3://reports/plant-1/zones.csv" {
		t.Errorf("location: got %s", loc)
	}
	body, ok := rt.objects["reports/plant-1/zones.csv"]
	if !ok {
		t.Fatalf("object not stored; have %v", rt.objects)
	}
	if !bytes.Contains(body, []byte("0,10")) {
		t.Errorf("body: got %q", body)
	}
	if rt.types["reports/plant-1/zones.csv"] != ContentTypeCSV {
		t.Errorf("content type: got %q", rt.types["reports/plant-1/zones.csv"])
	}
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	if _, err := NewS3Sink(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	sink, err := Open(ctx, Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Open fs failed: %v", err)
	}
	if _, ok := sink.(*FSSink); !ok {
		t.Errorf("default driver: got %T", sink)
	}
	if _, err := Open(ctx, Options{Driver: "ftp"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(ctx, Options{Driver: DriverS3}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
}

func TestExporter_PublishReport(t *testing.T) {
	root := t.TempDir()
	sink, err := NewFSSink(root)
	if err != nil {
		t.Fatalf("NewFSSink failed: %v", err)
	}
	e := NewExporter(sink)
	e.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	overlay := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	overlay.Set(1, 1, color.White)

	rep, err := e.PublishReport(context.Background(), "hall-b", testZones(), overlay)
	if err != nil {
		t.Fatalf("PublishReport failed: %v", err)
	}
	if rep.Zones != 2 {
		t.Errorf("zones: got %d", rep.Zones)
	}
	if rep.CSV != filepath.Join(root, "hall-b-20260314-092653.csv") {
		t.Errorf("csv location: %s", rep.CSV)
	}
	if rep.Overlay != filepath.Join(root, "hall-b-20260314-092653.png") {
		t.Errorf("overlay location: %s", rep.Overlay)
	}
	if _, err := os.Stat(rep.Overlay); err != nil {
		t.Errorf("overlay not written: %v", err)
	}

	csvOnly, err := e.PublishReport(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("PublishReport without overlay failed: %v", err)
	}
	if csvOnly.Overlay != "" || !strings.Contains(csvOnly.CSV, "leakzones-") {
		t.Errorf("csv-only report: %+v", csvOnly)
	}
}
