package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/riftforge/internal/forge/storage"
)

// normalizedState is a State after the pre-write step, stamped with the write time.
type normalizedState struct {
	storage.State
	UpdatedAt time.Time
}

func nonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

func normalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: profile name is required", storage.ErrInvalidArgument)
	}
	return name, nil
}

func (s *Store) normalizeGeneral(general storage.GeneralSettings) storage.GeneralSettings {
	return storage.GeneralSettings{
		EngineerLevel: nonNegative(general.EngineerLevel),
		ScarabLevel:   nonNegative(general.ScarabLevel),
		RiftRank:      s.catalog.NormalizeRiftRank(general.RiftRank),
	}
}

func (s *Store) normalizeMachine(machine storage.Machine) (storage.Machine, error) {
	if machine.ID.IsZero() {
		return storage.Machine{}, fmt.Errorf("%w: machine id is required", storage.ErrInvalidArgument)
	}
	machine.ID.Value = strings.TrimSpace(machine.ID.Value)
	machine.Rarity = s.catalog.NormalizeRarity(machine.Rarity)
	machine.Level = nonNegative(machine.Level)
	machine.Blueprints = storage.Blueprints{
		Damage: nonNegative(machine.Blueprints.Damage),
		Health: nonNegative(machine.Blueprints.Health),
		Armor:  nonNegative(machine.Blueprints.Armor),
	}
	machine.InscriptionLevel = nonNegative(machine.InscriptionLevel)
	machine.SacredLevel = nonNegative(machine.SacredLevel)
	return machine, nil
}

func (s *Store) normalizeHero(hero storage.Hero) (storage.Hero, error) {
	if hero.ID.IsZero() {
		return storage.Hero{}, fmt.Errorf("%w: hero id is required", storage.ErrInvalidArgument)
	}
	hero.ID.Value = strings.TrimSpace(hero.ID.Value)
	bounds := s.catalog.HeroPercentage
	hero.Percentages = storage.Percentages{
		Damage: bounds.Clamp(hero.Percentages.Damage),
		Health: bounds.Clamp(hero.Percentages.Health),
		Armor:  bounds.Clamp(hero.Percentages.Armor),
	}
	return hero, nil
}

// normalizeArtifacts drops unknown stats and tiers and merges duplicate stats.
// Output follows catalog stat order.
func (s *Store) normalizeArtifacts(artifacts []storage.ArtifactStat) []storage.ArtifactStat {
	merged := make(map[string]map[int]int, len(artifacts))
	for _, artifact := range artifacts {
		stat := strings.ToLower(strings.TrimSpace(artifact.Stat))
		if !s.catalog.HasStat(stat) {
			continue
		}
		values, ok := merged[stat]
		if !ok {
			values = make(map[int]int, len(artifact.Values))
			merged[stat] = values
		}
		for tier, count := range artifact.Values {
			if !s.catalog.HasTier(tier) {
				continue
			}
			values[tier] = nonNegative(count)
		}
	}

	out := make([]storage.ArtifactStat, 0, len(merged))
	for _, stat := range s.catalog.Stats {
		if values, ok := merged[stat]; ok {
			out = append(out, storage.ArtifactStat{Stat: stat, Values: values})
		}
	}
	return out
}

// normalizeState is the single pre-write step every state write passes through.
func (s *Store) normalizeState(state storage.State) (normalizedState, error) {
	out := normalizedState{UpdatedAt: s.now().UTC()}
	out.General = s.normalizeGeneral(state.General)
	out.AppVersion = strings.TrimSpace(state.AppVersion)

	seenMachines := make(map[string]int, len(state.Machines))
	for _, machine := range state.Machines {
		normalized, err := s.normalizeMachine(machine)
		if err != nil {
			return normalizedState{}, err
		}
		if idx, ok := seenMachines[normalized.ID.Value]; ok {
			out.Machines[idx] = normalized
			continue
		}
		seenMachines[normalized.ID.Value] = len(out.Machines)
		out.Machines = append(out.Machines, normalized)
	}

	seenHeroes := make(map[string]int, len(state.Heroes))
	for _, hero := range state.Heroes {
		normalized, err := s.normalizeHero(hero)
		if err != nil {
			return normalizedState{}, err
		}
		if idx, ok := seenHeroes[normalized.ID.Value]; ok {
			out.Heroes[idx] = normalized
			continue
		}
		seenHeroes[normalized.ID.Value] = len(out.Heroes)
		out.Heroes = append(out.Heroes, normalized)
	}

	out.Artifacts = s.normalizeArtifacts(state.Artifacts)
	return out, nil
}
