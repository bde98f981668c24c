// Package export writes zone reports (CSV tables and overlay PNGs) and
// publishes them to a filesystem directory or an S3-compatible bucket.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/leakzone-mcp/internal/store"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

// Content types of published artefacts.
const (
	ContentTypeCSV = "text/csv"
	ContentTypePNG = "image/png"
)

// CSVHeader is the header row of WriteCSV: the snapshot id followed by the
// store columns.
var CSVHeader = append([]string{"id"}, store.Columns...)

// WriteCSV writes zones, one row each, in the given order.
func WriteCSV(w io.Writer, zones []zone.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, z := range zones {
		rec := append([]string{strconv.Itoa(z.ID)}, z.Row().Values()...)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write zone %d: %w", z.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Report is where a published report ended up.
type Report struct {
	CSV     string `json:"csv"`
	Overlay string `json:"overlay,omitempty"`
	Zones   int    `json:"zones"`
}

// Exporter publishes reports through a Sink.
type Exporter struct {
	sink Sink
	now  func() time.Time
}

// NewExporter publishes through sink.
func NewExporter(sink Sink) *Exporter {
	return &Exporter{sink: sink, now: time.Now}
}

// Publish stores body under name and returns its location.
func (e *Exporter) Publish(ctx context.Context, name, contentType string, body []byte) (string, error) {
	loc, err := e.sink.Put(ctx, name, contentType, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return loc, nil
}

// PublishReport writes the zones table and, if overlay is non-nil, the
// rendered overlay under timestamped names starting with prefix.
func (e *Exporter) PublishReport(ctx context.Context, prefix string, zones []zone.Record, overlay image.Image) (Report, error) {
	if prefix == "" {
		prefix = "leakzones"
	}
	stamp := e.now().UTC().Format("20060102-150405")
	base := fmt.Sprintf("%s-%s", prefix, stamp)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, zones); err != nil {
		return Report{}, err
	}
	csvLoc, err := e.Publish(ctx, base+".csv", ContentTypeCSV, buf.Bytes())
	if err != nil {
		return Report{}, err
	}
	rep := Report{CSV: csvLoc, Zones: len(zones)}

	if overlay != nil {
		buf.Reset()
		if err := EncodePNG(&buf, overlay); err != nil {
			return Report{}, err
		}
		rep.Overlay, err = e.Publish(ctx, base+".png", ContentTypePNG, buf.Bytes())
		if err != nil {
			return Report{}, err
		}
	}
	return rep, nil
}
