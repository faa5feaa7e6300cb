package savefile

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/tidwall/gjson"
)

// ErrUnknownFormat is returned when converting a document no rule recognizes.
var ErrUnknownFormat = errors.New("unknown save document format")

// StampPolicy decides which app version a converted document carries.
type StampPolicy int

const (
	// StampOnConvert stamps the running app version on every Legacy or
	// Intermediate conversion and on Final documents without an app version.
	StampOnConvert StampPolicy = iota
	// PreserveSource keeps whatever app version the source document had.
	PreserveSource
)

func (p StampPolicy) String() string {
	if p == PreserveSource {
		return "preserve-source"
	}
	return "stamp-on-convert"
}

// PolicyFor maps the stamp configuration switch to a policy.
func PolicyFor(stamp bool) StampPolicy {
	if stamp {
		return StampOnConvert
	}
	return PreserveSource
}

// ConvertOptions configures Convert.
type ConvertOptions struct {
	// Catalog defaults to schema.Default().
	Catalog *schema.Catalog
	Stamp   StampPolicy
}

func (o ConvertOptions) catalog() *schema.Catalog {
	if o.Catalog != nil {
		return o.Catalog
	}
	return schema.Default()
}

// Convert turns raw, previously detected as format, into a default-filled
// canonical Document.
func Convert(raw []byte, format Format, opts ConvertOptions) (Document, error) {
	if format == FormatUnknown || !gjson.ValidBytes(raw) {
		return Document{}, ErrUnknownFormat
	}
	catalog := opts.catalog()
	root := gjson.ParseBytes(raw)

	var (
		doc Document
		err error
	)
	switch format {
	case FormatLegacy:
		doc, err = convertLegacy(root, catalog)
	case FormatIntermediate:
		doc, err = convertIntermediate(root, catalog)
	case FormatFinal:
		doc, err = convertFinal(root, catalog)
	default:
		return Document{}, ErrUnknownFormat
	}
	if err != nil {
		return Document{}, fmt.Errorf("convert %s document: %w", format, err)
	}

	source := strings.TrimSpace(root.Get("appVersion").String())
	doc.Version = CurrentVersion
	doc.AppVersion = stampAppVersion(format, source, opts.Stamp, catalog)
	warnIfNewer(source, catalog)
	return FillDefaults(doc, catalog), nil
}

func stampAppVersion(format Format, source string, policy StampPolicy, catalog *schema.Catalog) string {
	if policy == PreserveSource {
		return source
	}
	if format == FormatFinal && source != "" {
		return source
	}
	return catalog.AppVersion
}

func warnIfNewer(source string, catalog *schema.Catalog) {
	if source == "" {
		return
	}
	version, err := semver.ParseTolerant(source)
	if err != nil {
		log.Printf("savefile: document app version %q is not a semantic version", source)
		return
	}
	if version.GT(catalog.AppSemver()) {
		log.Printf("savefile: document app version %s is newer than running %s", version, catalog.AppSemver())
	}
}

func convertLegacy(root gjson.Result, catalog *schema.Catalog) (Document, error) {
	doc := Document{
		General: General{
			EngineerLevel: intOf(root.Get("engineerLevel")),
			ScarabLevel:   intOf(root.Get("scarabLevel")),
			RiftRank:      rankOf(root.Get("riftRank"), catalog),
		},
		Artifacts: artifactsFromObject(root.Get("artifacts"), catalog),
	}
	return withEntities(doc, root)
}

func convertIntermediate(root gjson.Result, catalog *schema.Catalog) (Document, error) {
	config := make(map[string]gjson.Result)
	for _, entry := range root.Get("config").Array() {
		key := entry.Get("key").String()
		if key != "" {
			config[key] = entry.Get("value")
		}
	}
	defaults := catalog.Defaults.General
	doc := Document{General: General{
		EngineerLevel: defaults.EngineerLevel,
		ScarabLevel:   defaults.ScarabLevel,
		RiftRank:      defaults.RiftRank,
	}}
	if value, ok := config["engineerLevel"]; ok {
		doc.General.EngineerLevel = intOf(value)
	}
	if value, ok := config["scarabLevel"]; ok {
		doc.General.ScarabLevel = intOf(value)
	}
	if value, ok := config["riftRank"]; ok {
		doc.General.RiftRank = rankOf(value, catalog)
	}

	doc.Artifacts = Artifacts{}
	for _, entry := range root.Get("artifacts").Array() {
		mergeArtifactStat(doc.Artifacts, entry.Get("stat").String(), entry.Get("values"), catalog)
	}
	return withEntities(doc, root)
}

func convertFinal(root gjson.Result, catalog *schema.Catalog) (Document, error) {
	general := root.Get("general")
	doc := Document{
		General: General{
			EngineerLevel: intOf(general.Get("engineerLevel")),
			ScarabLevel:   intOf(general.Get("scarabLevel")),
			RiftRank:      rankOf(general.Get("riftRank"), catalog),
		},
		Artifacts: artifactsFromObject(root.Get("artifacts"), catalog),
	}
	return withEntities(doc, root)
}

// withEntities copies machines and heroes, which share one shape in every format.
func withEntities(doc Document, root gjson.Result) (Document, error) {
	doc.Machines = []Machine{}
	for i, m := range root.Get("machines").Array() {
		id, err := idOf(m.Get("id"))
		if err != nil {
			return Document{}, fmt.Errorf("machines[%d]: %w", i, err)
		}
		blueprints := m.Get("blueprints")
		doc.Machines = append(doc.Machines, Machine{
			ID:     id,
			Rarity: m.Get("rarity").String(),
			Level:  intOf(m.Get("level")),
			Blueprints: Blueprints{
				Damage: intOf(blueprints.Get("damage")),
				Health: intOf(blueprints.Get("health")),
				Armor:  intOf(blueprints.Get("armor")),
			},
			InscriptionLevel: intOf(m.Get("inscriptionLevel")),
			SacredLevel:      intOf(m.Get("sacredLevel")),
		})
	}

	doc.Heroes = []Hero{}
	for i, h := range root.Get("heroes").Array() {
		id, err := idOf(h.Get("id"))
		if err != nil {
			return Document{}, fmt.Errorf("heroes[%d]: %w", i, err)
		}
		percentages := h.Get("percentages")
		doc.Heroes = append(doc.Heroes, Hero{
			ID: id,
			Percentages: Percentages{
				Damage: intOf(percentages.Get("damage")),
				Health: intOf(percentages.Get("health")),
				Armor:  intOf(percentages.Get("armor")),
			},
		})
	}
	return doc, nil
}

func rankOf(r gjson.Result, catalog *schema.Catalog) string {
	if r.Type != gjson.String {
		return catalog.Defaults.General.RiftRank
	}
	return catalog.NormalizeRiftRank(r.Str)
}

func artifactsFromObject(artifacts gjson.Result, catalog *schema.Catalog) Artifacts {
	out := Artifacts{}
	if !artifacts.IsObject() {
		return out
	}
	artifacts.ForEach(func(stat, values gjson.Result) bool {
		mergeArtifactStat(out, stat.String(), values, catalog)
		return true
	})
	return out
}

// mergeArtifactStat adds the known tiers of values under stat. Unknown stats
// and tiers are dropped.
func mergeArtifactStat(out Artifacts, stat string, values gjson.Result, catalog *schema.Catalog) {
	stat = strings.ToLower(strings.TrimSpace(stat))
	if !catalog.HasStat(stat) || !values.IsObject() {
		return
	}
	tiers, ok := out[stat]
	if !ok {
		tiers = make(map[int]int)
		out[stat] = tiers
	}
	values.ForEach(func(key, count gjson.Result) bool {
		if tier, ok := catalog.ParseTier(key.String()); ok {
			tiers[tier] = intOf(count)
		}
		return true
	})
}

// FillDefaults returns doc with every known stat and tier present, zero-filling
// what is missing, and with nil collections replaced by empty ones.
func FillDefaults(doc Document, catalog *schema.Catalog) Document {
	if catalog == nil {
		catalog = schema.Default()
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if strings.TrimSpace(doc.General.RiftRank) == "" {
		doc.General.RiftRank = catalog.Defaults.General.RiftRank
	}
	if doc.Machines == nil {
		doc.Machines = []Machine{}
	}
	if doc.Heroes == nil {
		doc.Heroes = []Hero{}
	}

	filled := Artifacts(catalog.ZeroArtifacts())
	for stat, values := range doc.Artifacts {
		target, ok := filled[stat]
		if !ok {
			continue
		}
		for tier, count := range values {
			if catalog.HasTier(tier) {
				target[tier] = count
			}
		}
	}
	doc.Artifacts = filled
	return doc
}
