package savefile

import "github.com/tidwall/gjson"

// Format identifies the shape of a save document.
type Format int

const (
	// FormatUnknown matches none of the recognized shapes.
	FormatUnknown Format = iota
	// FormatLegacy has flat root scalars and no version.
	FormatLegacy
	// FormatIntermediate has version 1, a timestamp and a config array.
	FormatIntermediate
	// FormatFinal is the canonical shape with a general object.
	FormatFinal
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatIntermediate:
		return "intermediate"
	case FormatFinal:
		return "final"
	default:
		return "unknown"
	}
}

type shapeRule struct {
	format  Format
	matches func(root gjson.Result) bool
}

// detectionOrder is checked first to last; the first match wins.
var detectionOrder = []shapeRule{
	{format: FormatLegacy, matches: isLegacy},
	{format: FormatIntermediate, matches: isIntermediate},
	{format: FormatFinal, matches: isFinal},
}

// Detect classifies raw. Invalid JSON and non-object roots are FormatUnknown.
func Detect(raw []byte) Format {
	if !gjson.ValidBytes(raw) {
		return FormatUnknown
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return FormatUnknown
	}
	for _, rule := range detectionOrder {
		if rule.matches(root) {
			return rule.format
		}
	}
	return FormatUnknown
}

func isLegacy(root gjson.Result) bool {
	if root.Get("version").Exists() || root.Get("general").Exists() || root.Get("config").Exists() {
		return false
	}
	if !root.Get("engineerLevel").Exists() {
		return false
	}
	return !root.Get("artifacts").IsArray()
}

func isIntermediate(root gjson.Result) bool {
	return isVersionOne(root) &&
		root.Get("timestamp").Exists() &&
		root.Get("config").IsArray()
}

func isFinal(root gjson.Result) bool {
	return isVersionOne(root) &&
		root.Get("general").IsObject() &&
		!root.Get("config").Exists()
}

func isVersionOne(root gjson.Result) bool {
	value, ok := numberOf(root.Get("version"))
	return ok && value == CurrentVersion
}
