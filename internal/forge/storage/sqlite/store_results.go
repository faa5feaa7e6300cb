package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/louisbranch/riftforge/internal/forge/storage"
)

// SaveResult replaces the cached result for (profileID, mode).
func (s *Store) SaveResult(ctx context.Context, profileID int64, mode string, payload json.RawMessage) (result storage.OptimizationResult, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.OptimizationResult{}, err
	}
	ctx, span := s.startSpan(ctx, "SaveResult", profileID)
	defer func() { endSpan(span, err) }()

	mode = strings.ToLower(strings.TrimSpace(mode))
	if !s.catalog.HasMode(mode) {
		return storage.OptimizationResult{}, fmt.Errorf("%w: unknown result mode %q", storage.ErrInvalidArgument, mode)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return storage.OptimizationResult{}, fmt.Errorf("%w: result payload must be valid JSON", storage.ErrInvalidArgument)
	}

	result = storage.OptimizationResult{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Mode:      mode,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: s.now().UTC(),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProfile(ctx, tx, profileID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.ErrNoActiveProfile
			}
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM optimization_results WHERE profile_id = ? AND mode = ?`, profileID, mode,
		); err != nil {
			return fmt.Errorf("delete cached result: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO optimization_results (profile_id, mode, result_id, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
			profileID, mode, result.ID, string(result.Payload), toMillis(result.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert cached result: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.OptimizationResult{}, err
	}
	return result, nil
}

// GetLatestResult returns the cached result for (profileID, mode).
func (s *Store) GetLatestResult(ctx context.Context, profileID int64, mode string) (result storage.OptimizationResult, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.OptimizationResult{}, err
	}
	ctx, span := s.startSpan(ctx, "GetLatestResult", profileID)
	defer func() { endSpan(span, err) }()

	mode = strings.ToLower(strings.TrimSpace(mode))
	var (
		payload   string
		createdAt int64
	)
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT result_id, payload, created_at FROM optimization_results WHERE profile_id = ? AND mode = ?`,
		profileID, mode,
	).Scan(&result.ID, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.OptimizationResult{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.OptimizationResult{}, fmt.Errorf("get cached result: %w", err)
	}
	result.ProfileID = profileID
	result.Mode = mode
	result.Payload = json.RawMessage(payload)
	result.CreatedAt = fromMillis(createdAt)
	return result, nil
}
