// Package transfer imports save documents into profile storage and exports
// stored profiles as canonical save documents.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/riftforge/internal/forge/savefile"
	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/louisbranch/riftforge/internal/forge/storage"
	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedInput indicates the input is not parseable JSON.
	ErrMalformedInput = errors.New("malformed save document")
	// ErrUnknownFormat indicates the input matches no recognized document shape.
	ErrUnknownFormat = savefile.ErrUnknownFormat
)

// ValidationError carries every defect found in a rejected document.
type ValidationError struct {
	Format  savefile.Format
	Defects []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Defects) == 0 {
		return "save document failed validation"
	}
	return fmt.Sprintf("save document failed validation: %s", e.Defects[0])
}

// Report summarizes a completed import.
type Report struct {
	Format     savefile.Format
	AppVersion string
	Machines   int
	Heroes     int
}

// Importer writes save documents into a profile.
type Importer struct {
	store   storage.StateStore
	catalog *schema.Catalog
	stamp   savefile.StampPolicy
}

// NewImporter builds an Importer. A nil catalog uses schema.Default().
func NewImporter(store storage.StateStore, catalog *schema.Catalog, stamp savefile.StampPolicy) *Importer {
	if catalog == nil {
		catalog = schema.Default()
	}
	return &Importer{store: store, catalog: catalog, stamp: stamp}
}

// Import parses, detects, validates and converts raw, then replaces the
// profile's state in one transaction. Any failure leaves stored data as it was.
func (i *Importer) Import(ctx context.Context, profileID int64, raw []byte) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if i == nil || i.store == nil {
		return Report{}, fmt.Errorf("importer is not configured")
	}
	if len(strings.TrimSpace(string(raw))) == 0 || !gjson.ValidBytes(raw) {
		return Report{}, ErrMalformedInput
	}

	format := savefile.Detect(raw)
	if format == savefile.FormatUnknown {
		return Report{}, ErrUnknownFormat
	}
	if defects := savefile.Validate(raw, format); len(defects) > 0 {
		log.Printf("transfer: %s document rejected with %d defects: %s", format, len(defects), strings.Join(defects, "; "))
		return Report{}, &ValidationError{Format: format, Defects: defects}
	}

	doc, err := savefile.Convert(raw, format, savefile.ConvertOptions{Catalog: i.catalog, Stamp: i.stamp})
	if err != nil {
		return Report{}, &ValidationError{Format: format, Defects: []string{err.Error()}}
	}
	if err := i.store.ReplaceState(ctx, profileID, DocumentToState(doc)); err != nil {
		return Report{}, fmt.Errorf("replace profile state: %w", err)
	}
	return Report{
		Format:     format,
		AppVersion: doc.AppVersion,
		Machines:   len(doc.Machines),
		Heroes:     len(doc.Heroes),
	}, nil
}

// Exporter reads a profile back out as a canonical document.
type Exporter struct {
	store   storage.StateStore
	catalog *schema.Catalog
}

// NewExporter builds an Exporter. A nil catalog uses schema.Default().
func NewExporter(store storage.StateStore, catalog *schema.Catalog) *Exporter {
	if catalog == nil {
		catalog = schema.Default()
	}
	return &Exporter{store: store, catalog: catalog}
}

// Export returns the profile as a canonical document stamped with the running
// app version. A profile that only holds its seeded defaults yields the
// minimal default document.
func (e *Exporter) Export(ctx context.Context, profileID int64) (savefile.Document, error) {
	if err := ctx.Err(); err != nil {
		return savefile.Document{}, err
	}
	if e == nil || e.store == nil {
		return savefile.Document{}, fmt.Errorf("exporter is not configured")
	}

	state, err := e.store.ReadState(ctx, profileID)
	if err != nil {
		return savefile.Document{}, fmt.Errorf("load profile state: %w", err)
	}
	doc := StateToDocument(state)
	doc.AppVersion = e.catalog.AppVersion
	return savefile.FillDefaults(doc, e.catalog), nil
}

// ExportJSON returns Export encoded as indented JSON.
func (e *Exporter) ExportJSON(ctx context.Context, profileID int64) ([]byte, error) {
	doc, err := e.Export(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}
