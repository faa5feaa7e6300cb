// Package schema provides the fixed enumerations and default values shared by
// the persistence, migration and validation layers.
package schema

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var defaultCatalog = mustLoadEmbedded()

// Default returns the process-wide embedded catalog. Callers must treat it as
// read-only.
func Default() *Catalog {
	return defaultCatalog
}

// Range is an inclusive integer bound.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Clamp returns value limited to the range.
func (r Range) Clamp(value int) int {
	if value < r.Min {
		return r.Min
	}
	if value > r.Max {
		return r.Max
	}
	return value
}

// GeneralDefaults holds the values a fresh profile starts with.
type GeneralDefaults struct {
	EngineerLevel int    `yaml:"engineer_level"`
	ScarabLevel   int    `yaml:"scarab_level"`
	RiftRank      string `yaml:"rift_rank"`
}

// Defaults groups default values used when data is missing.
type Defaults struct {
	Rarity  string          `yaml:"rarity"`
	General GeneralDefaults `yaml:"general"`
}

// Catalog is the parsed constants catalog.
type Catalog struct {
	AppVersion     string   `yaml:"app_version"`
	MaxProfiles    int      `yaml:"max_profiles"`
	Stats          []string `yaml:"artifact_stats"`
	Tiers          []int    `yaml:"percentage_tiers"`
	RiftRanks      []string `yaml:"rift_ranks"`
	Rarities       []string `yaml:"rarities"`
	Modes          []string `yaml:"modes"`
	HeroPercentage Range    `yaml:"hero_percentage"`
	Defaults       Defaults `yaml:"defaults"`

	appVersion semver.Version
}

// Load parses and validates a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func mustLoadEmbedded() *Catalog {
	c, err := Load(embeddedCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	version, err := semver.ParseTolerant(strings.TrimSpace(c.AppVersion))
	if err != nil {
		return fmt.Errorf("catalog app_version %q: %w", c.AppVersion, err)
	}
	c.appVersion = version
	if c.MaxProfiles <= 0 {
		return fmt.Errorf("catalog max_profiles must be greater than zero")
	}
	if len(c.Stats) == 0 {
		return fmt.Errorf("catalog must define at least one artifact stat")
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("catalog must define at least one percentage tier")
	}
	for i, tier := range c.Tiers {
		if tier <= 0 {
			return fmt.Errorf("catalog tier %d must be positive", tier)
		}
		if i > 0 && tier <= c.Tiers[i-1] {
			return fmt.Errorf("catalog tiers must be strictly ascending")
		}
	}
	if len(c.Modes) == 0 {
		return fmt.Errorf("catalog must define at least one result mode")
	}
	if c.HeroPercentage.Max < c.HeroPercentage.Min {
		return fmt.Errorf("catalog hero_percentage max must be >= min")
	}
	if !contains(c.RiftRanks, c.Defaults.General.RiftRank) {
		return fmt.Errorf("catalog default rift rank %q is not a listed rank", c.Defaults.General.RiftRank)
	}
	if strings.TrimSpace(c.Defaults.Rarity) == "" {
		return fmt.Errorf("catalog default rarity is required")
	}
	return nil
}

// AppSemver returns the parsed current application version.
func (c *Catalog) AppSemver() semver.Version {
	return c.appVersion
}

// HasStat reports whether stat is a known artifact stat.
func (c *Catalog) HasStat(stat string) bool {
	return contains(c.Stats, stat)
}

// HasMode reports whether mode is a known result mode.
func (c *Catalog) HasMode(mode string) bool {
	return contains(c.Modes, mode)
}

// HasTier reports whether tier is a known percentage tier.
func (c *Catalog) HasTier(tier int) bool {
	for _, t := range c.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// TierFor resolves a numeric value to a known tier. 30 and 30.0 both match.
func (c *Catalog) TierFor(value float64) (int, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, false
	}
	tier := int(value)
	if !c.HasTier(tier) {
		return 0, false
	}
	return tier, true
}

// ParseTier resolves a tier key as it appears in JSON object keys ("30", "30.0").
func (c *Catalog) ParseTier(key string) (int, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
	if err != nil {
		return 0, false
	}
	return c.TierFor(value)
}

// ZeroArtifacts returns a complete stat × tier grid with every count at zero.
func (c *Catalog) ZeroArtifacts() map[string]map[int]int {
	out := make(map[string]map[int]int, len(c.Stats))
	for _, stat := range c.Stats {
		values := make(map[int]int, len(c.Tiers))
		for _, tier := range c.Tiers {
			values[tier] = 0
		}
		out[stat] = values
	}
	return out
}

// NormalizeRiftRank lower-cases a rank and falls back to the default when blank.
func (c *Catalog) NormalizeRiftRank(rank string) string {
	rank = strings.ToLower(strings.TrimSpace(rank))
	if rank == "" {
		return c.Defaults.General.RiftRank
	}
	return rank
}

// NormalizeRarity trims a rarity and falls back to the default when blank.
// Known rarities are returned in their catalog spelling.
func (c *Catalog) NormalizeRarity(rarity string) string {
	rarity = strings.TrimSpace(rarity)
	if rarity == "" {
		return c.Defaults.Rarity
	}
	for _, known := range c.Rarities {
		if strings.EqualFold(known, rarity) {
			return known
		}
	}
	return rarity
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
