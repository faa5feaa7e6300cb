package transfer

import (
	"github.com/louisbranch/riftforge/internal/forge/savefile"
	"github.com/louisbranch/riftforge/internal/forge/storage"
)

// DocumentToState maps a canonical document onto storage entities.
func DocumentToState(doc savefile.Document) storage.State {
	state := storage.State{
		General: storage.GeneralSettings{
			EngineerLevel: doc.General.EngineerLevel,
			ScarabLevel:   doc.General.ScarabLevel,
			RiftRank:      doc.General.RiftRank,
		},
		AppVersion: doc.AppVersion,
		Machines:   make([]storage.Machine, 0, len(doc.Machines)),
		Heroes:     make([]storage.Hero, 0, len(doc.Heroes)),
		Artifacts:  make([]storage.ArtifactStat, 0, len(doc.Artifacts)),
	}
	for _, m := range doc.Machines {
		state.Machines = append(state.Machines, storage.Machine{
			ID:     m.ID,
			Rarity: m.Rarity,
			Level:  m.Level,
			Blueprints: storage.Blueprints{
				Damage: m.Blueprints.Damage,
				Health: m.Blueprints.Health,
				Armor:  m.Blueprints.Armor,
			},
			InscriptionLevel: m.InscriptionLevel,
			SacredLevel:      m.SacredLevel,
		})
	}
	for _, h := range doc.Heroes {
		state.Heroes = append(state.Heroes, storage.Hero{
			ID: h.ID,
			Percentages: storage.Percentages{
				Damage: h.Percentages.Damage,
				Health: h.Percentages.Health,
				Armor:  h.Percentages.Armor,
			},
		})
	}
	for stat, values := range doc.Artifacts {
		copied := make(map[int]int, len(values))
		for tier, count := range values {
			copied[tier] = count
		}
		state.Artifacts = append(state.Artifacts, storage.ArtifactStat{Stat: stat, Values: copied})
	}
	return state
}

// StateToDocument maps stored entities onto a canonical document.
func StateToDocument(state storage.State) savefile.Document {
	doc := savefile.Document{
		Version:    savefile.CurrentVersion,
		AppVersion: state.AppVersion,
		General: savefile.General{
			EngineerLevel: state.General.EngineerLevel,
			ScarabLevel:   state.General.ScarabLevel,
			RiftRank:      state.General.RiftRank,
		},
		Machines:  make([]savefile.Machine, 0, len(state.Machines)),
		Heroes:    make([]savefile.Hero, 0, len(state.Heroes)),
		Artifacts: make(savefile.Artifacts, len(state.Artifacts)),
	}
	for _, m := range state.Machines {
		doc.Machines = append(doc.Machines, savefile.Machine{
			ID:     m.ID,
			Rarity: m.Rarity,
			Level:  m.Level,
			Blueprints: savefile.Blueprints{
				Damage: m.Blueprints.Damage,
				Health: m.Blueprints.Health,
				Armor:  m.Blueprints.Armor,
			},
			InscriptionLevel: m.InscriptionLevel,
			SacredLevel:      m.SacredLevel,
		})
	}
	for _, h := range state.Heroes {
		doc.Heroes = append(doc.Heroes, savefile.Hero{
			ID: h.ID,
			Percentages: savefile.Percentages{
				Damage: h.Percentages.Damage,
				Health: h.Percentages.Health,
				Armor:  h.Percentages.Armor,
			},
		})
	}
	for _, artifact := range state.Artifacts {
		values := make(map[int]int, len(artifact.Values))
		for tier, count := range artifact.Values {
			values[tier] = count
		}
		doc.Artifacts[artifact.Stat] = values
	}
	return doc
}
