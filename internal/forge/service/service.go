// Package service exposes the profile, state, result and transfer operations
// behind one process-wide handle. Every error it returns is an
// *apperrors.Error carrying a stable code.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/louisbranch/riftforge/internal/forge/savefile"
	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/louisbranch/riftforge/internal/forge/storage"
	"github.com/louisbranch/riftforge/internal/forge/storage/sqlite"
	"github.com/louisbranch/riftforge/internal/forge/transfer"
	apperrors "github.com/louisbranch/riftforge/internal/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/riftforge/internal/forge/service"

// Config configures Open.
type Config struct {
	DBPath           string
	MaxProfiles      int
	Locale           string
	StampAppVersion  bool
	StrictInvariants bool
	// Catalog defaults to schema.Default().
	Catalog        *schema.Catalog
	TracerProvider trace.TracerProvider
}

// Service is the process-wide storage handle.
type Service struct {
	store    storage.Store
	importer *transfer.Importer
	exporter *transfer.Exporter
	catalog  *schema.Catalog
	locale   string
	tracer   trace.Tracer

	mu            sync.Mutex
	lastKnownGood *storage.State
	failing       bool
	failureCode   apperrors.Code
}

// Open creates the database directory if needed, opens the SQLite store and
// returns the service handle.
func Open(ctx context.Context, cfg Config) (*Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.DBPath)
	if path == "" {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "db path is required",
			map[string]string{"Reason": "database path is required"})
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "create database directory", err)
		}
	}

	opts := []sqlite.Option{
		sqlite.WithCatalog(cfg.Catalog),
		sqlite.WithMaxProfiles(cfg.MaxProfiles),
		sqlite.WithStrictInvariants(cfg.StrictInvariants),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, sqlite.WithTracerProvider(cfg.TracerProvider))
	}
	store, err := sqlite.Open(path, opts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "open storage", err)
	}
	return New(store, cfg), nil
}

// New wraps an already opened store.
func New(store storage.Store, cfg Config) *Service {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = schema.Default()
	}
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Service{
		store:    store,
		importer: transfer.NewImporter(store, catalog, savefile.PolicyFor(cfg.StampAppVersion)),
		exporter: transfer.NewExporter(store, catalog),
		catalog:  catalog,
		locale:   cfg.Locale,
		tracer:   provider.Tracer(tracerName),
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Catalog returns the schema catalog in use.
func (s *Service) Catalog() *schema.Catalog {
	return s.catalog
}

// CreateProfile creates a named profile.
func (s *Service) CreateProfile(ctx context.Context, name string) (storage.Profile, error) {
	profile, err := s.store.CreateProfile(ctx, name)
	if err != nil {
		return storage.Profile{}, s.classify(err, 0)
	}
	return profile, nil
}

// ListProfiles returns every profile ordered by id.
func (s *Service) ListProfiles(ctx context.Context) ([]storage.Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, s.classify(err, 0)
	}
	return profiles, nil
}

// ActiveProfile returns the active profile.
func (s *Service) ActiveProfile(ctx context.Context) (storage.Profile, error) {
	profile, err := s.store.GetActiveProfile(ctx)
	if err != nil {
		return storage.Profile{}, s.classify(err, 0)
	}
	return profile, nil
}

// SwitchProfile activates id and forgets the in-memory state of the previous profile.
func (s *Service) SwitchProfile(ctx context.Context, id int64) error {
	if err := s.store.SwitchProfile(ctx, id); err != nil {
		return s.classify(err, id)
	}
	s.resetMemory()
	return nil
}

// RenameProfile renames id.
func (s *Service) RenameProfile(ctx context.Context, id int64, name string) error {
	if err := s.store.RenameProfile(ctx, id, name); err != nil {
		return s.classify(err, id)
	}
	return nil
}

// DeleteProfile deletes id and all of its data.
func (s *Service) DeleteProfile(ctx context.Context, id int64) error {
	active, activeErr := s.store.GetActiveProfile(ctx)
	if err := s.store.DeleteProfile(ctx, id); err != nil {
		return s.classify(err, id)
	}
	if activeErr == nil && active.ID == id {
		s.resetMemory()
	}
	return nil
}

// SaveState upserts state into the active profile. The stored result,
// after normalization, becomes the last-known-good state.
func (s *Service) SaveState(ctx context.Context, state storage.State) error {
	profile, err := s.active(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SaveState(ctx, profile.ID, state); err != nil {
		return s.classify(err, profile.ID)
	}
	saved, err := s.store.ReadState(ctx, profile.ID)
	if err != nil {
		log.Printf("service: read back saved state for profile %d: %v", profile.ID, err)
		return nil
	}
	s.remember(saved)
	return nil
}

// LoadState returns the active profile's state. ok is false when the profile
// holds no data yet.
func (s *Service) LoadState(ctx context.Context) (state storage.State, ok bool, err error) {
	profile, err := s.active(ctx)
	if err != nil {
		return storage.State{}, false, err
	}
	state, err = s.store.LoadState(ctx, profile.ID)
	if errors.Is(err, storage.ErrNoData) {
		return storage.State{}, false, nil
	}
	if err != nil {
		return storage.State{}, false, s.classify(err, profile.ID)
	}
	s.remember(state)
	return state, true, nil
}

// ResetActiveProfile restores the active profile's defaults.
func (s *Service) ResetActiveProfile(ctx context.Context) error {
	profile, err := s.active(ctx)
	if err != nil {
		return err
	}
	if err := s.store.ClearProfileData(ctx, profile.ID); err != nil {
		return s.classify(err, profile.ID)
	}
	s.resetMemory()
	return nil
}

// SaveResult replaces the active profile's cached result for mode.
func (s *Service) SaveResult(ctx context.Context, mode string, payload json.RawMessage) (storage.OptimizationResult, error) {
	profile, err := s.active(ctx)
	if err != nil {
		return storage.OptimizationResult{}, err
	}
	result, err := s.store.SaveResult(ctx, profile.ID, mode, payload)
	if err != nil {
		return storage.OptimizationResult{}, s.classify(err, profile.ID)
	}
	return result, nil
}

// LatestResult returns the active profile's cached result for mode. ok is
// false when nothing is cached.
func (s *Service) LatestResult(ctx context.Context, mode string) (storage.OptimizationResult, bool, error) {
	profile, err := s.active(ctx)
	if err != nil {
		return storage.OptimizationResult{}, false, err
	}
	result, err := s.store.GetLatestResult(ctx, profile.ID, mode)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.OptimizationResult{}, false, nil
	}
	if err != nil {
		return storage.OptimizationResult{}, false, s.classify(err, profile.ID)
	}
	return result, true, nil
}

// Import replaces the active profile's state with the save document raw.
func (s *Service) Import(ctx context.Context, raw []byte) (report transfer.Report, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Import")
	defer func() { endSpan(span, err) }()

	profile, err := s.active(ctx)
	if err != nil {
		return transfer.Report{}, err
	}
	report, err = s.importer.Import(ctx, profile.ID, raw)
	if err != nil {
		return transfer.Report{}, s.classify(err, profile.ID)
	}
	s.resetMemory()
	return report, nil
}

// Export returns the active profile as an indented canonical document.
func (s *Service) Export(ctx context.Context) (data []byte, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Export")
	defer func() { endSpan(span, err) }()

	profile, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	data, err = s.exporter.ExportJSON(ctx, profile.ID)
	if err != nil {
		return nil, s.classify(err, profile.ID)
	}
	return data, nil
}

// active resolves the active profile fresh for each call.
func (s *Service) active(ctx context.Context) (storage.Profile, error) {
	if s == nil || s.store == nil {
		return storage.Profile{}, apperrors.New(apperrors.CodeStorageFailure, "service is not configured")
	}
	profile, err := s.store.GetActiveProfile(ctx)
	if err != nil {
		return storage.Profile{}, s.classify(err, 0)
	}
	return profile, nil
}

func (s *Service) remember(state storage.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := state
	s.lastKnownGood = &copied
	s.failing = false
	s.failureCode = ""
}

func (s *Service) resetMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownGood = nil
	s.failing = false
	s.failureCode = ""
}

// LastKnownGood returns the most recent state that was saved or loaded
// successfully for the active profile.
func (s *Service) LastKnownGood() (storage.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastKnownGood == nil {
		return storage.State{}, false
	}
	return *s.lastKnownGood, true
}
