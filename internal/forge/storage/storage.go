package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/louisbranch/riftforge/internal/forge/schema"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrNoActiveProfile indicates no profile context is available.
	ErrNoActiveProfile = errors.New("no active profile")
	// ErrCapacityExceeded indicates the profile limit has been reached.
	ErrCapacityExceeded = errors.New("profile capacity exceeded")
	// ErrNoData indicates a profile that has never stored machine rows.
	ErrNoData = errors.New("profile has no data")
	// ErrInvariantViolation indicates persisted state breaks a storage invariant.
	ErrInvariantViolation = errors.New("storage invariant violated")
	// ErrInvalidArgument indicates caller input the store refuses to write.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Profile is one isolated namespace of optimizer state.
type Profile struct {
	ID        int64
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GeneralSettings stores the per-profile scalar settings.
type GeneralSettings struct {
	EngineerLevel int
	ScarabLevel   int
	RiftRank      string
}

// Blueprints stores a machine's blueprint levels.
type Blueprints struct {
	Damage int
	Health int
	Armor  int
}

// Machine stores the mutable fields of one catalog machine.
type Machine struct {
	ID               schema.CatalogID
	Rarity           string
	Level            int
	Blueprints       Blueprints
	InscriptionLevel int
	SacredLevel      int
}

// Percentages stores a hero's bonus percentages.
type Percentages struct {
	Damage int
	Health int
	Armor  int
}

// Hero stores the mutable fields of one catalog hero.
type Hero struct {
	ID          schema.CatalogID
	Percentages Percentages
}

// ArtifactStat stores owned artifact counts per percentage tier for one stat.
type ArtifactStat struct {
	Stat   string
	Values map[int]int
}

// State is the composed configuration of one profile.
type State struct {
	General   GeneralSettings
	Machines  []Machine
	Heroes    []Hero
	Artifacts []ArtifactStat
	// AppVersion records the application version that produced the data.
	AppVersion string
}

// OptimizationResult is the cached output of one optimizer mode.
type OptimizationResult struct {
	ID        string
	ProfileID int64
	Mode      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// ProfileStore manages the profile set and the single-active-profile rule.
type ProfileStore interface {
	CreateProfile(ctx context.Context, name string) (Profile, error)
	SwitchProfile(ctx context.Context, id int64) error
	RenameProfile(ctx context.Context, id int64, name string) error
	DeleteProfile(ctx context.Context, id int64) error
	GetProfile(ctx context.Context, id int64) (Profile, error)
	GetActiveProfile(ctx context.Context) (Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// StateStore persists profile-scoped entity collections.
type StateStore interface {
	SaveState(ctx context.Context, profileID int64, state State) error
	ReplaceState(ctx context.Context, profileID int64, state State) error
	LoadState(ctx context.Context, profileID int64) (State, error)
	ReadState(ctx context.Context, profileID int64) (State, error)
	ClearProfileData(ctx context.Context, profileID int64) error
}

// ResultStore persists the per-profile, per-mode result cache.
type ResultStore interface {
	SaveResult(ctx context.Context, profileID int64, mode string, payload json.RawMessage) (OptimizationResult, error)
	GetLatestResult(ctx context.Context, profileID int64, mode string) (OptimizationResult, error)
}

// Store is the full persistence surface.
type Store interface {
	ProfileStore
	StateStore
	ResultStore
	Close() error
}
