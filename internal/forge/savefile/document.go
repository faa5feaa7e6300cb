package savefile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/tidwall/gjson"
)

// CurrentVersion is the document version every conversion produces.
const CurrentVersion = 1

// Document is the canonical save document.
type Document struct {
	Version    int       `json:"version"`
	AppVersion string    `json:"appVersion,omitempty"`
	General    General   `json:"general"`
	Machines   []Machine `json:"machines"`
	Heroes     []Hero    `json:"heroes"`
	Artifacts  Artifacts `json:"artifacts"`
}

// General holds the per-profile scalar settings.
type General struct {
	EngineerLevel int    `json:"engineerLevel"`
	ScarabLevel   int    `json:"scarabLevel"`
	RiftRank      string `json:"riftRank"`
}

// Blueprints holds a machine's blueprint levels.
type Blueprints struct {
	Damage int `json:"damage"`
	Health int `json:"health"`
	Armor  int `json:"armor"`
}

// Machine is one machine entry.
type Machine struct {
	ID               schema.CatalogID `json:"id"`
	Rarity           string           `json:"rarity"`
	Level            int              `json:"level"`
	Blueprints       Blueprints       `json:"blueprints"`
	InscriptionLevel int              `json:"inscriptionLevel"`
	SacredLevel      int              `json:"sacredLevel"`
}

// Percentages holds a hero's bonus percentages.
type Percentages struct {
	Damage int `json:"damage"`
	Health int `json:"health"`
	Armor  int `json:"armor"`
}

// Hero is one hero entry.
type Hero struct {
	ID          schema.CatalogID `json:"id"`
	Percentages Percentages      `json:"percentages"`
}

// Artifacts maps stat to tier to owned count.
type Artifacts map[string]map[int]int

// Marshal encodes the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode save document: %w", err)
	}
	return data, nil
}

// numberOf reads a JSON number or numeric string.
func numberOf(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		value, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	default:
		return 0, false
	}
}

// intOf truncates a lenient number to an int. Non-numeric values read as 0.
func intOf(r gjson.Result) int {
	value, ok := numberOf(r)
	if !ok {
		return 0
	}
	return int(math.Trunc(value))
}

func isNumeric(r gjson.Result) bool {
	_, ok := numberOf(r)
	return ok
}

func idOf(r gjson.Result) (schema.CatalogID, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return schema.CatalogID{}, fmt.Errorf("id is required")
	}
	var id schema.CatalogID
	if err := json.Unmarshal([]byte(r.Raw), &id); err != nil {
		return schema.CatalogID{}, err
	}
	if id.IsZero() {
		return schema.CatalogID{}, fmt.Errorf("id is required")
	}
	return id, nil
}
