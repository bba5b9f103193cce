// Package export writes registrations as JSONL for downstream reporting.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// Source lists the registrations to export.
type Source interface {
	List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
}

// Destination stores an export under the given object key.
type Destination interface {
	Write(ctx context.Context, key string, data []byte) error
}

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version   string                   `json:"version"`
	Type      string                   `json:"type"`
	Timestamp time.Time                `json:"timestamp"`
	Count     int                      `json:"registration_count"`
	Filter    model.RegistrationFilter `json:"filter"`
}

type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Result describes a finished export.
type Result struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// WriteJSONL writes a header line followed by one line per registration.
func WriteJSONL(w io.Writer, regs []model.Registration, f model.RegistrationFilter, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: now.UTC(),
		Count:     len(regs),
		Filter:    f,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i := range regs {
		if err := enc.Encode(record{Type: "registration", Data: &regs[i]}); err != nil {
			return fmt.Errorf("encode registration %s: %w", regs[i].ID, err)
		}
	}
	return nil
}

// ObjectKey names an export taken at now under prefix.
func ObjectKey(prefix string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format("20060102T150405Z")+".jsonl")
}

// Exporter pulls registrations from a Source and pushes JSONL to a Destination.
type Exporter struct {
	src    Source
	dest   Destination
	prefix string
	now    func() time.Time
}

// NewExporter constructs an Exporter writing objects under prefix.
func NewExporter(src Source, dest Destination, prefix string) *Exporter {
	return &Exporter{src: src, dest: dest, prefix: prefix, now: time.Now}
}

// Run exports every registration matching f.
func (e *Exporter) Run(ctx context.Context, f model.RegistrationFilter) (*Result, error) {
	regs, err := e.src.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	now := e.now()
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, regs, f, now); err != nil {
		return nil, err
	}

	key := ObjectKey(e.prefix, now)
	if err := e.dest.Write(ctx, key, buf.Bytes()); err != nil {
		return nil, err
	}
	return &Result{Key: key, Count: len(regs)}, nil
}
