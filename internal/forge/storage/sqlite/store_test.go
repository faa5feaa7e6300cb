package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/louisbranch/riftforge/internal/forge/storage"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func openTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "forge.db"), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func mustCreateProfile(t *testing.T, store *Store, name string) storage.Profile {
	t.Helper()
	profile, err := store.CreateProfile(context.Background(), name)
	if err != nil {
		t.Fatalf("create profile %q: %v", name, err)
	}
	return profile
}

func countRows(t *testing.T, store *Store, table string, profileID int64) int {
	t.Helper()
	var count int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE profile_id = ?`, profileID).Scan(&count); err != nil {
		t.Fatalf("count %s rows: %v", table, err)
	}
	return count
}

func assertSingleActive(t *testing.T, store *Store) {
	t.Helper()
	profiles, err := store.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) == 0 {
		return
	}
	active := 0
	for _, p := range profiles {
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active profiles = %d, want 1", active)
	}
}

func sampleState() storage.State {
	return storage.State{
		General: storage.GeneralSettings{EngineerLevel: 5, ScarabLevel: 2, RiftRank: "bronze"},
		Machines: []storage.Machine{
			{ID: schema.NumericID(1), Rarity: "Epic", Level: 10, Blueprints: storage.Blueprints{Damage: 1, Health: 1, Armor: 1}},
			{ID: schema.StringID("m2"), Rarity: "Rare", Level: 3, InscriptionLevel: 2, SacredLevel: 1},
		},
		Heroes: []storage.Hero{
			{ID: schema.StringID("h1"), Percentages: storage.Percentages{Damage: 5}},
		},
		Artifacts: []storage.ArtifactStat{
			{Stat: "damage", Values: map[int]int{30: 2}},
		},
		AppVersion: "2.4.0",
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestCreateProfileFirstIsActiveAndSeedsDefaults(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first := mustCreateProfile(t, store, "  Main ")
	second := mustCreateProfile(t, store, "Alt")

	if first.Name != "Main" {
		t.Fatalf("name = %q, want Main", first.Name)
	}
	if !first.IsActive || second.IsActive {
		t.Fatalf("active flags = %v/%v, want true/false", first.IsActive, second.IsActive)
	}

	catalog := schema.Default()
	for _, p := range []storage.Profile{first, second} {
		if got := countRows(t, store, "general_settings", p.ID); got != 1 {
			t.Fatalf("general rows = %d, want 1", got)
		}
		want := len(catalog.Stats) * len(catalog.Tiers)
		if got := countRows(t, store, "artifacts", p.ID); got != want {
			t.Fatalf("artifact rows = %d, want %d", got, want)
		}
	}

	if _, err := store.LoadState(context.Background(), first.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("load fresh profile err = %v, want ErrNoData", err)
	}
}

func TestCreateProfileRequiresName(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.CreateProfile(context.Background(), "   "); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateProfileCapacityBound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, WithMaxProfiles(2))
	mustCreateProfile(t, store, "One")
	mustCreateProfile(t, store, "Two")

	_, err := store.CreateProfile(context.Background(), "Three")
	if !errors.Is(err, storage.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	count, err := store.CountProfiles(context.Background())
	if err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestDefaultMaxProfilesComesFromCatalog(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if store.MaxProfiles() != schema.Default().MaxProfiles {
		t.Fatalf("max profiles = %d, want %d", store.MaxProfiles(), schema.Default().MaxProfiles)
	}
}

func TestSwitchProfile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	first := mustCreateProfile(t, store, "One")
	second := mustCreateProfile(t, store, "Two")

	if err := store.SwitchProfile(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("switch unknown err = %v, want ErrNotFound", err)
	}
	active, err := store.GetActiveProfile(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != first.ID {
		t.Fatalf("active after failed switch = %d, want %d", active.ID, first.ID)
	}

	if err := store.SwitchProfile(ctx, second.ID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	active, err = store.GetActiveProfile(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("active = %d, want %d", active.ID, second.ID)
	}
	assertSingleActive(t, store)

	if err := store.SwitchProfile(ctx, second.ID); err != nil {
		t.Fatalf("switch to already active: %v", err)
	}
	assertSingleActive(t, store)
}

func TestRenameProfile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if err := store.RenameProfile(ctx, profile.ID, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, err := store.GetProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("name = %q, want Renamed", got.Name)
	}
	if err := store.RenameProfile(ctx, 999, "Ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rename unknown err = %v, want ErrNotFound", err)
	}
}

func TestDeleteActiveProfilePromotesSurvivor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	first := mustCreateProfile(t, store, "One")
	second := mustCreateProfile(t, store, "Two")

	if err := store.SaveState(ctx, first.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if _, err := store.SaveResult(ctx, first.ID, "arena", json.RawMessage(`{"score":1}`)); err != nil {
		t.Fatalf("save result: %v", err)
	}

	if err := store.DeleteProfile(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != second.ID || !profiles[0].IsActive {
		t.Fatalf("profiles = %+v, want only %d active", profiles, second.ID)
	}
	for _, table := range []string{"general_settings", "machines", "heroes", "artifacts", "optimization_results"} {
		if got := countRows(t, store, table, first.ID); got != 0 {
			t.Fatalf("%s rows for deleted profile = %d, want 0", table, got)
		}
	}
}

func TestDeleteProfilePromotesLowestID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	mustCreateProfile(t, store, "One")
	second := mustCreateProfile(t, store, "Two")
	third := mustCreateProfile(t, store, "Three")
	mustCreateProfile(t, store, "Four")

	if err := store.SwitchProfile(ctx, third.ID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := store.DeleteProfile(ctx, 1); err != nil {
		t.Fatalf("delete inactive: %v", err)
	}
	active, err := store.GetActiveProfile(ctx)
	if err != nil || active.ID != third.ID {
		t.Fatalf("active = %d (%v), want %d", active.ID, err, third.ID)
	}
	if err := store.DeleteProfile(ctx, third.ID); err != nil {
		t.Fatalf("delete active: %v", err)
	}
	active, err = store.GetActiveProfile(ctx)
	if err != nil || active.ID != second.ID {
		t.Fatalf("active = %d (%v), want %d", active.ID, err, second.ID)
	}
	assertSingleActive(t, store)
}

func TestDeleteLastProfileLeavesNoActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "Only")

	if err := store.DeleteProfile(ctx, profile.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetActiveProfile(ctx); !errors.Is(err, storage.ErrNoActiveProfile) {
		t.Fatalf("err = %v, want ErrNoActiveProfile", err)
	}
	if err := store.DeleteProfile(ctx, profile.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete again err = %v, want ErrNotFound", err)
	}
}

func TestActiveProfileInvariantHoldsAcrossSequence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)

	steps := []func() error{
		func() error { _, err := store.CreateProfile(ctx, "A"); return err },
		func() error { _, err := store.CreateProfile(ctx, "B"); return err },
		func() error { return store.SwitchProfile(ctx, 2) },
		func() error { _, err := store.CreateProfile(ctx, "C"); return err },
		func() error { return store.DeleteProfile(ctx, 2) },
		func() error { return store.SwitchProfile(ctx, 3) },
		func() error { return store.DeleteProfile(ctx, 1) },
		func() error { _, err := store.CreateProfile(ctx, "D"); return err },
		func() error { return store.DeleteProfile(ctx, 3) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertSingleActive(t, store)
	}
}

func TestGetActiveProfileNoneOnFirstRun(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetActiveProfile(context.Background()); !errors.Is(err, storage.ErrNoActiveProfile) {
		t.Fatalf("err = %v, want ErrNoActiveProfile", err)
	}
}

func TestInvariantViolationDetectedOnRead(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	mustCreateProfile(t, store, "One")
	if _, err := store.sqlDB.Exec(`UPDATE profiles SET is_active = 0`); err != nil {
		t.Fatalf("corrupt profiles: %v", err)
	}
	if _, err := store.GetActiveProfile(context.Background()); !errors.Is(err, storage.ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}

func TestStrictInvariantsPanic(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, WithStrictInvariants(true))
	mustCreateProfile(t, store, "One")
	if _, err := store.sqlDB.Exec(`UPDATE profiles SET is_active = 0`); err != nil {
		t.Fatalf("corrupt profiles: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invariant violation")
		}
	}()
	_, _ = store.ListProfiles(context.Background())
}

func TestSecondActiveRowRejectedBySchema(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	mustCreateProfile(t, store, "One")
	second := mustCreateProfile(t, store, "Two")
	_, err := store.sqlDB.Exec(`UPDATE profiles SET is_active = 1 WHERE id = ?`, second.ID)
	if err == nil || !isConstraintError(err) {
		t.Fatalf("err = %v, want constraint error", err)
	}
}

func TestSaveStateAndLoadState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if err := store.SaveState(ctx, profile.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	state, err := store.LoadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}

	if state.General.EngineerLevel != 5 || state.General.ScarabLevel != 2 || state.General.RiftRank != "bronze" {
		t.Fatalf("general = %+v", state.General)
	}
	if state.AppVersion != "2.4.0" {
		t.Fatalf("app version = %q, want 2.4.0", state.AppVersion)
	}
	if len(state.Machines) != 2 {
		t.Fatalf("machines = %d, want 2", len(state.Machines))
	}
	if m := state.Machines[0]; m.ID != schema.NumericID(1) || m.Rarity != "Epic" || m.Level != 10 || m.Blueprints.Damage != 1 {
		t.Fatalf("machine[0] = %+v", m)
	}
	if m := state.Machines[1]; m.ID != schema.StringID("m2") || m.InscriptionLevel != 2 || m.SacredLevel != 1 {
		t.Fatalf("machine[1] = %+v", m)
	}
	if len(state.Heroes) != 1 || state.Heroes[0].ID != schema.StringID("h1") || state.Heroes[0].Percentages.Damage != 5 {
		t.Fatalf("heroes = %+v", state.Heroes)
	}

	catalog := schema.Default()
	if len(state.Artifacts) != len(catalog.Stats) {
		t.Fatalf("artifact stats = %d, want %d", len(state.Artifacts), len(catalog.Stats))
	}
	for i, artifact := range state.Artifacts {
		if artifact.Stat != catalog.Stats[i] {
			t.Fatalf("artifact[%d] = %q, want %q", i, artifact.Stat, catalog.Stats[i])
		}
		if len(artifact.Values) != len(catalog.Tiers) {
			t.Fatalf("%s tiers = %d, want %d", artifact.Stat, len(artifact.Values), len(catalog.Tiers))
		}
		for tier, count := range artifact.Values {
			want := 0
			if artifact.Stat == "damage" && tier == 30 {
				want = 2
			}
			if count != want {
				t.Fatalf("%s[%d] = %d, want %d", artifact.Stat, tier, count, want)
			}
		}
	}
}

func TestSaveStateUpsertsWithoutDeleting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if err := store.SaveState(ctx, profile.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	update := storage.State{
		General: storage.GeneralSettings{EngineerLevel: 6, RiftRank: "silver"},
		Machines: []storage.Machine{
			{ID: schema.StringID("m2"), Rarity: "Legendary", Level: 4},
			{ID: schema.StringID("m3"), Rarity: "Common", Level: 1},
		},
		Artifacts: []storage.ArtifactStat{{Stat: "armor", Values: map[int]int{65: 7}}},
	}
	if err := store.SaveState(ctx, profile.ID, update); err != nil {
		t.Fatalf("save update: %v", err)
	}

	state, err := store.LoadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	ids := make([]string, 0, len(state.Machines))
	for _, m := range state.Machines {
		ids = append(ids, m.ID.Value)
	}
	if len(ids) != 3 || ids[0] != "1" || ids[1] != "m2" || ids[2] != "m3" {
		t.Fatalf("machine order = %v, want [1 m2 m3]", ids)
	}
	if state.Machines[1].Rarity != "Legendary" || state.Machines[1].Level != 4 {
		t.Fatalf("updated machine = %+v", state.Machines[1])
	}
	if len(state.Heroes) != 1 {
		t.Fatalf("heroes = %d, want untouched 1", len(state.Heroes))
	}
	if state.AppVersion != "2.4.0" {
		t.Fatalf("app version = %q, want kept 2.4.0", state.AppVersion)
	}
	if state.General.EngineerLevel != 6 || state.General.RiftRank != "silver" {
		t.Fatalf("general = %+v", state.General)
	}
	counts := map[string]map[int]int{}
	for _, a := range state.Artifacts {
		counts[a.Stat] = a.Values
	}
	if counts["damage"][30] != 2 || counts["armor"][65] != 7 {
		t.Fatalf("artifacts = %v", counts)
	}
}

func TestSaveStateNormalizesBeforeWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	state := storage.State{
		General: storage.GeneralSettings{EngineerLevel: -3, ScarabLevel: -1, RiftRank: " GOLD "},
		Machines: []storage.Machine{
			{ID: schema.NumericID(7), Level: -5, Blueprints: storage.Blueprints{Damage: -1}, SacredLevel: -2},
		},
		Heroes: []storage.Hero{
			{ID: schema.StringID("h"), Percentages: storage.Percentages{Damage: 50, Health: -4, Armor: 20}},
		},
		Artifacts: []storage.ArtifactStat{
			{Stat: "luck", Values: map[int]int{30: 9}},
			{Stat: "Health", Values: map[int]int{31: 4, 35: -2, 40: 3}},
		},
	}
	if err := store.SaveState(ctx, profile.ID, state); err != nil {
		t.Fatalf("save state: %v", err)
	}
	got, err := store.LoadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if got.General.EngineerLevel != 0 || got.General.ScarabLevel != 0 || got.General.RiftRank != "gold" {
		t.Fatalf("general = %+v", got.General)
	}
	m := got.Machines[0]
	if m.Level != 0 || m.Blueprints.Damage != 0 || m.SacredLevel != 0 || m.Rarity != "Common" {
		t.Fatalf("machine = %+v", m)
	}
	h := got.Heroes[0]
	if h.Percentages.Damage != 20 || h.Percentages.Health != 0 || h.Percentages.Armor != 20 {
		t.Fatalf("hero = %+v", h)
	}
	for _, a := range got.Artifacts {
		if a.Stat == "luck" {
			t.Fatal("unknown stat persisted")
		}
		if a.Stat == "health" && (a.Values[35] != 0 || a.Values[40] != 3) {
			t.Fatalf("health = %v", a.Values)
		}
	}
	var unknownTier int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(*) FROM artifacts WHERE tier = 31`).Scan(&unknownTier); err != nil {
		t.Fatalf("count unknown tier: %v", err)
	}
	if unknownTier != 0 {
		t.Fatalf("unknown tier rows = %d, want 0", unknownTier)
	}
}

func TestSaveStateRejectsMissingIDWithoutWriting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	state := sampleState()
	state.Heroes = append(state.Heroes, storage.Hero{})
	if err := store.SaveState(ctx, profile.ID, state); err == nil {
		t.Fatal("expected error for hero without id")
	}
	if _, err := store.LoadState(ctx, profile.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("load err = %v, want ErrNoData", err)
	}
}

func TestSaveStateUnknownProfile(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SaveState(context.Background(), 42, sampleState()); !errors.Is(err, storage.ErrNoActiveProfile) {
		t.Fatalf("err = %v, want ErrNoActiveProfile", err)
	}
}

func TestLoadStateUnknownProfile(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.LoadState(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveStateSameIDTextKeepsLastEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	state := sampleState()
	state.Machines = []storage.Machine{
		{ID: schema.NumericID(1), Rarity: "Epic", Level: 10},
		{ID: schema.StringID("1"), Rarity: "Rare", Level: 4},
	}
	if err := store.SaveState(ctx, profile.ID, state); err != nil {
		t.Fatalf("save state: %v", err)
	}
	got, err := store.LoadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(got.Machines) != 1 {
		t.Fatalf("machines = %+v, want one row", got.Machines)
	}
	if m := got.Machines[0]; m.ID != schema.StringID("1") || m.Level != 4 {
		t.Fatalf("machine = %+v, want last entry", m)
	}
}

func TestReadStateReturnsDataWithoutMachines(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	state := sampleState()
	state.Machines = nil
	if err := store.ReplaceState(ctx, profile.ID, state); err != nil {
		t.Fatalf("replace state: %v", err)
	}
	if _, err := store.LoadState(ctx, profile.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("load err = %v, want ErrNoData", err)
	}

	got, err := store.ReadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if got.General != state.General {
		t.Fatalf("general = %+v, want %+v", got.General, state.General)
	}
	if len(got.Machines) != 0 || len(got.Heroes) != 1 || got.Heroes[0].Percentages.Damage != 5 {
		t.Fatalf("entities = %+v / %+v", got.Machines, got.Heroes)
	}
	if got.Artifacts[0].Stat != "damage" || got.Artifacts[0].Values[30] != 2 {
		t.Fatalf("artifacts = %+v", got.Artifacts)
	}
	if got.AppVersion != "2.4.0" {
		t.Fatalf("app version = %q", got.AppVersion)
	}
}

func TestReadStateUnknownProfile(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.ReadState(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStateIsProfileScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	first := mustCreateProfile(t, store, "One")
	second := mustCreateProfile(t, store, "Two")

	if err := store.SaveState(ctx, first.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if _, err := store.LoadState(ctx, second.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("second profile err = %v, want ErrNoData", err)
	}
}

func TestReplaceStateDropsUnmentionedRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if err := store.SaveState(ctx, profile.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	replacement := storage.State{
		General:  storage.GeneralSettings{EngineerLevel: 1, RiftRank: "gold"},
		Machines: []storage.Machine{{ID: schema.StringID("m9"), Rarity: "Mythic", Level: 2}},
	}
	if err := store.ReplaceState(ctx, profile.ID, replacement); err != nil {
		t.Fatalf("replace state: %v", err)
	}
	state, err := store.LoadState(ctx, profile.ID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(state.Machines) != 1 || state.Machines[0].ID.Value != "m9" {
		t.Fatalf("machines = %+v", state.Machines)
	}
	if len(state.Heroes) != 0 {
		t.Fatalf("heroes = %+v, want none", state.Heroes)
	}
	for _, a := range state.Artifacts {
		for tier, count := range a.Values {
			if count != 0 {
				t.Fatalf("%s[%d] = %d, want 0 after replace", a.Stat, tier, count)
			}
		}
	}
	if got := countRows(t, store, "artifacts", profile.ID); got != len(schema.Default().Stats)*len(schema.Default().Tiers) {
		t.Fatalf("artifact rows = %d after replace", got)
	}
}

func TestClearProfileDataResetsToDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if err := store.SaveState(ctx, profile.ID, sampleState()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if _, err := store.SaveResult(ctx, profile.ID, "campaign", json.RawMessage(`[1,2]`)); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := store.ClearProfileData(ctx, profile.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, err := store.LoadState(ctx, profile.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("load err = %v, want ErrNoData", err)
	}
	general, appVersion, err := store.loadGeneral(ctx, store.sqlDB, profile.ID)
	if err != nil {
		t.Fatalf("load general: %v", err)
	}
	defaults := schema.Default().Defaults.General
	if general.EngineerLevel != defaults.EngineerLevel || general.RiftRank != defaults.RiftRank || appVersion != "" {
		t.Fatalf("general = %+v (%q), want defaults", general, appVersion)
	}
	if got := countRows(t, store, "heroes", profile.ID); got != 0 {
		t.Fatalf("hero rows = %d, want 0", got)
	}
	if _, err := store.GetLatestResult(ctx, profile.ID, "campaign"); err != nil {
		t.Fatalf("cached result should survive reset: %v", err)
	}
	if err := store.ClearProfileData(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("clear unknown err = %v, want ErrNotFound", err)
	}
}

func TestSaveResultReplacesCachedResult(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	first, err := store.SaveResult(ctx, profile.ID, "arena", json.RawMessage(`{"run":1}`))
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := store.SaveResult(ctx, profile.ID, "arena", json.RawMessage(`{"run":2}`))
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct result ids")
	}

	var rows int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(*) FROM optimization_results WHERE profile_id = ? AND mode = 'arena'`, profile.ID).Scan(&rows); err != nil {
		t.Fatalf("count results: %v", err)
	}
	if rows != 1 {
		t.Fatalf("result rows = %d, want 1", rows)
	}
	latest, err := store.GetLatestResult(ctx, profile.ID, "arena")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.ID != second.ID || string(latest.Payload) != `{"run":2}` {
		t.Fatalf("latest = %+v, want second result", latest)
	}
	if _, err := store.GetLatestResult(ctx, profile.ID, "campaign"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("campaign err = %v, want ErrNotFound", err)
	}
}

func TestSaveResultRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	profile := mustCreateProfile(t, store, "One")

	if _, err := store.SaveResult(ctx, profile.ID, "raid", json.RawMessage(`{}`)); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Fatalf("unknown mode err = %v, want ErrInvalidArgument", err)
	}
	if _, err := store.SaveResult(ctx, profile.ID, "arena", json.RawMessage(`{oops`)); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Fatalf("invalid payload err = %v, want ErrInvalidArgument", err)
	}
	if _, err := store.SaveResult(ctx, 999, "arena", json.RawMessage(`{}`)); !errors.Is(err, storage.ErrNoActiveProfile) {
		t.Fatalf("unknown profile err = %v, want ErrNoActiveProfile", err)
	}
}

func TestWithClockStampsTimestamps(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openTempStore(t, WithClock(func() time.Time { return fixed }))
	profile := mustCreateProfile(t, store, "One")

	got, err := store.GetProfile(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if !got.CreatedAt.Equal(fixed) || !got.UpdatedAt.Equal(fixed) {
		t.Fatalf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, fixed)
	}
	result, err := store.SaveResult(context.Background(), profile.ID, "arena", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if !result.CreatedAt.Equal(fixed) {
		t.Fatalf("result created at = %v, want %v", result.CreatedAt, fixed)
	}
}

func TestStoreRecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	store := openTempStore(t, WithTracerProvider(provider))

	profile := mustCreateProfile(t, store, "One")
	if _, err := store.LoadState(context.Background(), profile.ID); !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("load err = %v, want ErrNoData", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "storage.CreateProfile" || spans[1].Name() != "storage.LoadState" {
		t.Fatalf("span names = %q, %q", spans[0].Name(), spans[1].Name())
	}
	found := false
	for _, attr := range spans[1].Attributes() {
		if attr.Key == attribute.Key("riftforge.profile_id") && attr.Value.AsInt64() == profile.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected profile id attribute on load span")
	}
	if len(spans[1].Events()) == 0 {
		t.Fatal("expected recorded error event on load span")
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.CreateProfile(ctx, "One"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if _, err := store.GetActiveProfile(context.Background()); err == nil {
		t.Fatal("expected error for nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}
