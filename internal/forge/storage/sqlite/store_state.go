package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/louisbranch/riftforge/internal/forge/storage"
)

// SaveState overwrites general settings and upserts every machine, hero and
// artifact tier present in state. Rows not mentioned are left untouched.
func (s *Store) SaveState(ctx context.Context, profileID int64, state storage.State) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "SaveState", profileID)
	defer func() { endSpan(span, err) }()

	normalized, err := s.normalizeState(state)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProfile(ctx, tx, profileID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.ErrNoActiveProfile
			}
			return err
		}
		return writeState(ctx, tx, profileID, normalized)
	})
}

// ReplaceState deletes the profile's general, machine, hero and artifact rows
// and rewrites them from state on top of the default seed.
func (s *Store) ReplaceState(ctx context.Context, profileID int64, state storage.State) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "ReplaceState", profileID)
	defer func() { endSpan(span, err) }()

	normalized, err := s.normalizeState(state)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProfile(ctx, tx, profileID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.ErrNoActiveProfile
			}
			return err
		}
		if err := deleteScopedRows(ctx, tx, profileID, false); err != nil {
			return err
		}
		if err := s.seedDefaults(ctx, tx, profileID, normalized.UpdatedAt); err != nil {
			return err
		}
		return writeState(ctx, tx, profileID, normalized)
	})
}

// ClearProfileData resets a profile to the state CreateProfile leaves it in.
// Cached results are kept.
func (s *Store) ClearProfileData(ctx context.Context, profileID int64) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "ClearProfileData", profileID)
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProfile(ctx, tx, profileID); err != nil {
			return err
		}
		if err := deleteScopedRows(ctx, tx, profileID, false); err != nil {
			return err
		}
		return s.seedDefaults(ctx, tx, profileID, now)
	})
}

// LoadState returns the composed profile state. It returns storage.ErrNoData
// when the profile has no machine rows yet.
func (s *Store) LoadState(ctx context.Context, profileID int64) (state storage.State, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.State{}, err
	}
	ctx, span := s.startSpan(ctx, "LoadState", profileID)
	defer func() { endSpan(span, err) }()

	state, err = s.readState(ctx, profileID)
	if err != nil {
		return storage.State{}, err
	}
	if len(state.Machines) == 0 {
		return storage.State{}, storage.ErrNoData
	}
	return state, nil
}

// ReadState returns everything stored for the profile, seeded defaults
// included, whether or not it holds machine rows.
func (s *Store) ReadState(ctx context.Context, profileID int64) (state storage.State, err error) {
	if err := s.ready(ctx); err != nil {
		return storage.State{}, err
	}
	ctx, span := s.startSpan(ctx, "ReadState", profileID)
	defer func() { endSpan(span, err) }()

	return s.readState(ctx, profileID)
}

func (s *Store) readState(ctx context.Context, profileID int64) (storage.State, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.State{}, fmt.Errorf("begin load state: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := getProfile(ctx, tx, profileID); err != nil {
		return storage.State{}, err
	}
	var state storage.State
	if state.Machines, err = loadMachines(ctx, tx, profileID); err != nil {
		return storage.State{}, err
	}
	general, appVersion, err := s.loadGeneral(ctx, tx, profileID)
	if err != nil {
		return storage.State{}, err
	}
	state.General = general
	state.AppVersion = appVersion

	if state.Heroes, err = loadHeroes(ctx, tx, profileID); err != nil {
		return storage.State{}, err
	}
	if state.Artifacts, err = s.loadArtifacts(ctx, tx, profileID); err != nil {
		return storage.State{}, err
	}
	return state, nil
}

// seedDefaults writes default general settings and a zero row for every
// known stat and tier.
func (s *Store) seedDefaults(ctx context.Context, tx *sql.Tx, profileID int64, now time.Time) error {
	defaults := s.catalog.Defaults.General
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO general_settings (profile_id, engineer_level, scarab_level, rift_rank, app_version, updated_at)
		 VALUES (?, ?, ?, ?, '', ?)`,
		profileID, defaults.EngineerLevel, defaults.ScarabLevel, defaults.RiftRank, toMillis(now),
	); err != nil {
		return fmt.Errorf("seed general settings: %w", err)
	}
	for _, stat := range s.catalog.Stats {
		for _, tier := range s.catalog.Tiers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (profile_id, stat, tier, count, updated_at) VALUES (?, ?, ?, 0, ?)`,
				profileID, stat, tier, toMillis(now),
			); err != nil {
				return fmt.Errorf("seed artifact %s/%d: %w", stat, tier, err)
			}
		}
	}
	return nil
}

// deleteScopedRows removes the profile's entity rows, and its cached results
// when includeResults is set.
func deleteScopedRows(ctx context.Context, tx *sql.Tx, profileID int64, includeResults bool) error {
	tables := []string{"general_settings", "machines", "heroes", "artifacts"}
	if includeResults {
		tables = append(tables, "optimization_results")
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE profile_id = ?`, profileID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func writeState(ctx context.Context, tx *sql.Tx, profileID int64, state normalizedState) error {
	updatedAt := toMillis(state.UpdatedAt)
	general := state.General
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO general_settings (profile_id, engineer_level, scarab_level, rift_rank, app_version, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
		   engineer_level = excluded.engineer_level,
		   scarab_level = excluded.scarab_level,
		   rift_rank = excluded.rift_rank,
		   app_version = CASE WHEN excluded.app_version <> '' THEN excluded.app_version ELSE general_settings.app_version END,
		   updated_at = excluded.updated_at`,
		profileID, general.EngineerLevel, general.ScarabLevel, general.RiftRank, state.AppVersion, updatedAt,
	); err != nil {
		return fmt.Errorf("write general settings: %w", err)
	}

	position, err := nextPosition(ctx, tx, "machines", profileID)
	if err != nil {
		return err
	}
	for _, m := range state.Machines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO machines (
			   profile_id, machine_id, numeric_id, position, rarity, level,
			   blueprint_damage, blueprint_health, blueprint_armor,
			   inscription_level, sacred_level, updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(profile_id, machine_id) DO UPDATE SET
			   numeric_id = excluded.numeric_id,
			   rarity = excluded.rarity,
			   level = excluded.level,
			   blueprint_damage = excluded.blueprint_damage,
			   blueprint_health = excluded.blueprint_health,
			   blueprint_armor = excluded.blueprint_armor,
			   inscription_level = excluded.inscription_level,
			   sacred_level = excluded.sacred_level,
			   updated_at = excluded.updated_at`,
			profileID, m.ID.Value, boolToInt(m.ID.Numeric), position, m.Rarity, m.Level,
			m.Blueprints.Damage, m.Blueprints.Health, m.Blueprints.Armor,
			m.InscriptionLevel, m.SacredLevel, updatedAt,
		); err != nil {
			return fmt.Errorf("write machine %s: %w", m.ID, err)
		}
		position++
	}

	position, err = nextPosition(ctx, tx, "heroes", profileID)
	if err != nil {
		return err
	}
	for _, h := range state.Heroes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO heroes (profile_id, hero_id, numeric_id, position, damage_pct, health_pct, armor_pct, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(profile_id, hero_id) DO UPDATE SET
			   numeric_id = excluded.numeric_id,
			   damage_pct = excluded.damage_pct,
			   health_pct = excluded.health_pct,
			   armor_pct = excluded.armor_pct,
			   updated_at = excluded.updated_at`,
			profileID, h.ID.Value, boolToInt(h.ID.Numeric), position,
			h.Percentages.Damage, h.Percentages.Health, h.Percentages.Armor, updatedAt,
		); err != nil {
			return fmt.Errorf("write hero %s: %w", h.ID, err)
		}
		position++
	}

	for _, artifact := range state.Artifacts {
		for tier, count := range artifact.Values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (profile_id, stat, tier, count, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(profile_id, stat, tier) DO UPDATE SET
				   count = excluded.count,
				   updated_at = excluded.updated_at`,
				profileID, artifact.Stat, tier, count, updatedAt,
			); err != nil {
				return fmt.Errorf("write artifact %s/%d: %w", artifact.Stat, tier, err)
			}
		}
	}
	return nil
}

func nextPosition(ctx context.Context, tx *sql.Tx, table string, profileID int64) (int, error) {
	var position int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM `+table+` WHERE profile_id = ?`, profileID,
	).Scan(&position); err != nil {
		return 0, fmt.Errorf("next %s position: %w", table, err)
	}
	return position, nil
}

func (s *Store) loadGeneral(ctx context.Context, q queryer, profileID int64) (storage.GeneralSettings, string, error) {
	var (
		general    storage.GeneralSettings
		appVersion string
	)
	err := q.QueryRowContext(ctx,
		`SELECT engineer_level, scarab_level, rift_rank, app_version FROM general_settings WHERE profile_id = ?`,
		profileID,
	).Scan(&general.EngineerLevel, &general.ScarabLevel, &general.RiftRank, &appVersion)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := s.catalog.Defaults.General
		return storage.GeneralSettings{
			EngineerLevel: defaults.EngineerLevel,
			ScarabLevel:   defaults.ScarabLevel,
			RiftRank:      defaults.RiftRank,
		}, "", nil
	}
	if err != nil {
		return storage.GeneralSettings{}, "", fmt.Errorf("load general settings: %w", err)
	}
	return general, appVersion, nil
}

func loadMachines(ctx context.Context, q queryer, profileID int64) ([]storage.Machine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT machine_id, numeric_id, rarity, level, blueprint_damage, blueprint_health, blueprint_armor,
		        inscription_level, sacred_level
		 FROM machines WHERE profile_id = ? ORDER BY position`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load machines: %w", err)
	}
	defer rows.Close()

	var machines []storage.Machine
	for rows.Next() {
		var (
			m       storage.Machine
			numeric int
		)
		if err := rows.Scan(&m.ID.Value, &numeric, &m.Rarity, &m.Level,
			&m.Blueprints.Damage, &m.Blueprints.Health, &m.Blueprints.Armor,
			&m.InscriptionLevel, &m.SacredLevel,
		); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		m.ID.Numeric = numeric == 1
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}
	return machines, nil
}

func loadHeroes(ctx context.Context, q queryer, profileID int64) ([]storage.Hero, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT hero_id, numeric_id, damage_pct, health_pct, armor_pct
		 FROM heroes WHERE profile_id = ? ORDER BY position`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load heroes: %w", err)
	}
	defer rows.Close()

	heroes := []storage.Hero{}
	for rows.Next() {
		var (
			h       storage.Hero
			numeric int
		)
		if err := rows.Scan(&h.ID.Value, &numeric, &h.Percentages.Damage, &h.Percentages.Health, &h.Percentages.Armor); err != nil {
			return nil, fmt.Errorf("scan hero: %w", err)
		}
		h.ID.Numeric = numeric == 1
		heroes = append(heroes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heroes: %w", err)
	}
	return heroes, nil
}

// loadArtifacts returns every known stat with every known tier, in catalog order.
func (s *Store) loadArtifacts(ctx context.Context, q queryer, profileID int64) ([]storage.ArtifactStat, error) {
	grid := s.catalog.ZeroArtifacts()
	rows, err := q.QueryContext(ctx,
		`SELECT stat, tier, count FROM artifacts WHERE profile_id = ?`, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stat  string
			tier  int
			count int
		)
		if err := rows.Scan(&stat, &tier, &count); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if values, ok := grid[stat]; ok && s.catalog.HasTier(tier) {
			values[tier] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifactsInOrder(s.catalog, grid), nil
}

func artifactsInOrder(catalog *schema.Catalog, grid map[string]map[int]int) []storage.ArtifactStat {
	out := make([]storage.ArtifactStat, 0, len(catalog.Stats))
	for _, stat := range catalog.Stats {
		out = append(out, storage.ArtifactStat{Stat: stat, Values: grid[stat]})
	}
	return out
}
