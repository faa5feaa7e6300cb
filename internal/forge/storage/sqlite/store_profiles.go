package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/riftforge/internal/forge/storage"
)

// CreateProfile inserts a profile and seeds its default state. The first
// profile becomes active.
func (s *Store) CreateProfile(ctx context.Context, name string) (profile storage.Profile, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.Profile{}, err
	}
	ctx, span := s.startSpan(ctx, "CreateProfile", 0)
	defer func() { endSpan(span, err) }()

	name, err = normalizeProfileName(name)
	if err != nil {
		return storage.Profile{}, err
	}
	now := s.now().UTC()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		count, err := countProfiles(ctx, tx)
		if err != nil {
			return err
		}
		if count >= s.maxProfiles {
			return storage.ErrCapacityExceeded
		}
		active := count == 0

		result, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (name, is_active, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			name, boolToInt(active), toMillis(now), toMillis(now),
		)
		if err != nil {
			if isConstraintError(err) {
				return s.invariantViolation("second active profile rejected on create")
			}
			return fmt.Errorf("insert profile: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read profile id: %w", err)
		}
		if err := s.seedDefaults(ctx, tx, id, now); err != nil {
			return err
		}
		profile = storage.Profile{ID: id, Name: name, IsActive: active, CreatedAt: now, UpdatedAt: now}
		return nil
	})
	if err != nil {
		return storage.Profile{}, err
	}
	return profile, nil
}

// SwitchProfile makes id the only active profile.
func (s *Store) SwitchProfile(ctx context.Context, id int64) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "SwitchProfile", id)
	defer func() { endSpan(span, err) }()

	now := toMillis(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProfile(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET is_active = 0, updated_at = ? WHERE is_active = 1 AND id <> ?`,
			now, id,
		); err != nil {
			return fmt.Errorf("clear active profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET is_active = 1, updated_at = ? WHERE id = ? AND is_active = 0`,
			now, id,
		); err != nil {
			return fmt.Errorf("activate profile: %w", err)
		}
		return nil
	})
}

// RenameProfile updates a profile name.
func (s *Store) RenameProfile(ctx context.Context, id int64, name string) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "RenameProfile", id)
	defer func() { endSpan(span, err) }()

	name, err = normalizeProfileName(name)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE profiles SET name = ?, updated_at = ? WHERE id = ?`,
		name, toMillis(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("rename profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename profile rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteProfile removes a profile and every row scoped to it. When the
// deleted profile was active, the remaining profile with the lowest id is
// promoted.
func (s *Store) DeleteProfile(ctx context.Context, id int64) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "DeleteProfile", id)
	defer func() { endSpan(span, err) }()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		profile, err := getProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := deleteScopedRows(ctx, tx, id, true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if !profile.IsActive {
			return nil
		}

		var survivor int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM profiles ORDER BY id LIMIT 1`).Scan(&survivor)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select surviving profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET is_active = 1, updated_at = ? WHERE id = ?`,
			toMillis(s.now()), survivor,
		); err != nil {
			return fmt.Errorf("promote surviving profile: %w", err)
		}
		return nil
	})
}

// GetProfile loads one profile by id.
func (s *Store) GetProfile(ctx context.Context, id int64) (storage.Profile, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Profile{}, err
	}
	return getProfile(ctx, s.sqlDB, id)
}

// GetActiveProfile returns the unique active profile.
func (s *Store) GetActiveProfile(ctx context.Context) (profile storage.Profile, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.Profile{}, err
	}
	ctx, span := s.startSpan(ctx, "GetActiveProfile", 0)
	defer func() { endSpan(span, err) }()

	profiles, err := s.listProfiles(ctx)
	if err != nil {
		return storage.Profile{}, err
	}
	if len(profiles) == 0 {
		return storage.Profile{}, storage.ErrNoActiveProfile
	}
	if err := s.checkSingleActive(profiles); err != nil {
		return storage.Profile{}, err
	}
	for _, p := range profiles {
		if p.IsActive {
			return p, nil
		}
	}
	return storage.Profile{}, storage.ErrNoActiveProfile
}

// ListProfiles returns all profiles ordered by id.
func (s *Store) ListProfiles(ctx context.Context) ([]storage.Profile, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	profiles, err := s.listProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) > 0 {
		if err := s.checkSingleActive(profiles); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// CountProfiles returns the number of stored profiles.
func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return countProfiles(ctx, s.sqlDB)
}

func (s *Store) listProfiles(ctx context.Context) ([]storage.Profile, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM profiles ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []storage.Profile
	for rows.Next() {
		profile, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) checkSingleActive(profiles []storage.Profile) error {
	active := 0
	for _, p := range profiles {
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		return s.invariantViolation("%d active profiles among %d", active, len(profiles))
	}
	return nil
}

func countProfiles(ctx context.Context, q queryer) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

func getProfile(ctx context.Context, q queryer, id int64) (storage.Profile, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM profiles WHERE id = ?`, id,
	)
	profile, err := scanProfile(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Profile{}, storage.ErrNotFound
		}
		return storage.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func scanProfile(scan func(dest ...any) error) (storage.Profile, error) {
	var (
		profile   storage.Profile
		active    int
		createdAt int64
		updatedAt int64
	)
	if err := scan(&profile.ID, &profile.Name, &active, &createdAt, &updatedAt); err != nil {
		return storage.Profile{}, err
	}
	profile.IsActive = active == 1
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	return profile, nil
}
