package savefile

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
)

// UnknownFormatDefect is the single defect reported for unrecognized documents.
const UnknownFormatDefect = "unrecognized save document format"

// Validate checks raw against the rules of format and returns every defect
// found in document order. An empty result means the document is valid.
func Validate(raw []byte, format Format) []string {
	if format == FormatUnknown || !gjson.ValidBytes(raw) {
		return []string{UnknownFormatDefect}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return []string{UnknownFormatDefect}
	}

	var err error
	switch format {
	case FormatLegacy:
		err = multierr.Append(err, validateLegacyRoot(root))
	case FormatIntermediate:
		err = multierr.Append(err, validateIntermediateRoot(root))
	case FormatFinal:
		err = multierr.Append(err, validateFinalRoot(root))
	}
	err = multierr.Append(err, validateMachines(root.Get("machines")))
	err = multierr.Append(err, validateHeroes(root.Get("heroes")))

	errs := multierr.Errors(err)
	defects := make([]string, 0, len(errs))
	for _, e := range errs {
		defects = append(defects, e.Error())
	}
	return defects
}

func defect(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func requireNumber(r gjson.Result, path string) error {
	if !r.Exists() {
		return defect("%s is required", path)
	}
	if !isNumeric(r) {
		return defect("%s must be a number", path)
	}
	return nil
}

func requireString(r gjson.Result, path string) error {
	if !r.Exists() {
		return defect("%s is required", path)
	}
	if r.Type != gjson.String {
		return defect("%s must be a string", path)
	}
	return nil
}

func requireObject(r gjson.Result, path string) error {
	if !r.Exists() {
		return defect("%s is required", path)
	}
	if !r.IsObject() {
		return defect("%s must be an object", path)
	}
	return nil
}

func validateLegacyRoot(root gjson.Result) error {
	var err error
	err = multierr.Append(err, requireNumber(root.Get("engineerLevel"), "engineerLevel"))
	err = multierr.Append(err, requireNumber(root.Get("scarabLevel"), "scarabLevel"))
	err = multierr.Append(err, requireString(root.Get("riftRank"), "riftRank"))
	if artifacts := root.Get("artifacts"); artifacts.Exists() {
		err = multierr.Append(err, validateArtifactObject(artifacts, "artifacts"))
	}
	return err
}

func validateIntermediateRoot(root gjson.Result) error {
	var err error
	timestamp := root.Get("timestamp")
	if timestamp.Type != gjson.Number && timestamp.Type != gjson.String {
		err = multierr.Append(err, defect("timestamp must be a number or string"))
	}

	for i, entry := range root.Get("config").Array() {
		path := fmt.Sprintf("config[%d]", i)
		if !entry.IsObject() {
			err = multierr.Append(err, defect("%s must be an object", path))
			continue
		}
		key := entry.Get("key")
		err = multierr.Append(err, requireString(key, path+".key"))
		value := entry.Get("value")
		switch {
		case !value.Exists():
			err = multierr.Append(err, defect("%s.value is required", path))
		case key.Type != gjson.String:
		case key.Str == "engineerLevel" || key.Str == "scarabLevel":
			err = multierr.Append(err, requireNumber(value, path+".value"))
		case key.Str == "riftRank":
			err = multierr.Append(err, requireString(value, path+".value"))
		}
	}

	artifacts := root.Get("artifacts")
	if !artifacts.Exists() {
		return err
	}
	if !artifacts.IsArray() {
		return multierr.Append(err, defect("artifacts must be an array"))
	}
	for i, entry := range artifacts.Array() {
		path := fmt.Sprintf("artifacts[%d]", i)
		if !entry.IsObject() {
			err = multierr.Append(err, defect("%s must be an object", path))
			continue
		}
		err = multierr.Append(err, requireString(entry.Get("stat"), path+".stat"))
		values := entry.Get("values")
		if objErr := requireObject(values, path+".values"); objErr != nil {
			err = multierr.Append(err, objErr)
			continue
		}
		err = multierr.Append(err, validateTierCounts(values, path+".values"))
	}
	return err
}

func validateFinalRoot(root gjson.Result) error {
	general := root.Get("general")
	var err error
	if objErr := requireObject(general, "general"); objErr != nil {
		err = multierr.Append(err, objErr)
	} else {
		err = multierr.Append(err, requireNumber(general.Get("engineerLevel"), "general.engineerLevel"))
		err = multierr.Append(err, requireNumber(general.Get("scarabLevel"), "general.scarabLevel"))
		err = multierr.Append(err, requireString(general.Get("riftRank"), "general.riftRank"))
	}
	if appVersion := root.Get("appVersion"); appVersion.Exists() && appVersion.Type != gjson.String {
		err = multierr.Append(err, defect("appVersion must be a string"))
	}
	if artifacts := root.Get("artifacts"); artifacts.Exists() {
		err = multierr.Append(err, validateArtifactObject(artifacts, "artifacts"))
	}
	return err
}

// validateArtifactObject checks the {stat: {tier: count}} shape.
func validateArtifactObject(artifacts gjson.Result, path string) error {
	if !artifacts.IsObject() {
		return defect("%s must be an object", path)
	}
	var err error
	artifacts.ForEach(func(stat, values gjson.Result) bool {
		statPath := path + "." + stat.String()
		if !values.IsObject() {
			err = multierr.Append(err, defect("%s must be an object", statPath))
			return true
		}
		err = multierr.Append(err, validateTierCounts(values, statPath))
		return true
	})
	return err
}

// validateTierCounts checks numeric tier keys with numeric counts. Keys
// compare by value so "30" and "30.0" are the same tier.
func validateTierCounts(values gjson.Result, path string) error {
	var err error
	values.ForEach(func(tier, count gjson.Result) bool {
		key := tier.String()
		if !isNumeric(tier) {
			err = multierr.Append(err, defect("%s tier %q must be numeric", path, key))
			return true
		}
		if !isNumeric(count) {
			err = multierr.Append(err, defect("%s.%s must be a number", path, key))
		}
		return true
	})
	return err
}

func validateMachines(machines gjson.Result) error {
	if !machines.Exists() {
		return nil
	}
	if !machines.IsArray() {
		return defect("machines must be an array")
	}
	var err error
	seen := idIndex{}
	for i, machine := range machines.Array() {
		path := fmt.Sprintf("machines[%d]", i)
		if !machine.IsObject() {
			err = multierr.Append(err, defect("%s must be an object", path))
			continue
		}
		if id := machine.Get("id"); !id.Exists() || id.Type == gjson.Null {
			err = multierr.Append(err, defect("%s.id is required", path))
		} else {
			err = multierr.Append(err, seen.check(id, "machines", i))
		}
		err = multierr.Append(err, requireString(machine.Get("rarity"), path+".rarity"))
		err = multierr.Append(err, requireNumber(machine.Get("level"), path+".level"))
		err = multierr.Append(err, requireObject(machine.Get("blueprints"), path+".blueprints"))
	}
	return err
}

func validateHeroes(heroes gjson.Result) error {
	if !heroes.Exists() {
		return nil
	}
	if !heroes.IsArray() {
		return defect("heroes must be an array")
	}
	var err error
	seen := idIndex{}
	for i, hero := range heroes.Array() {
		path := fmt.Sprintf("heroes[%d]", i)
		if !hero.IsObject() {
			err = multierr.Append(err, defect("%s must be an object", path))
			continue
		}
		if id := hero.Get("id"); !id.Exists() || id.Type == gjson.Null {
			err = multierr.Append(err, defect("%s.id is required", path))
		} else {
			err = multierr.Append(err, seen.check(id, "heroes", i))
		}
		err = multierr.Append(err, requireObject(hero.Get("percentages"), path+".percentages"))
	}
	return err
}

// idIndex maps stored id text to the first element that used it. Stored ids
// are text, so 1 and "1" name the same row.
type idIndex map[string]int

func (x idIndex) check(raw gjson.Result, collection string, i int) error {
	id, err := idOf(raw)
	if err != nil {
		return nil
	}
	key := strings.TrimSpace(id.Value)
	if first, ok := x[key]; ok {
		return defect("%s[%d].id duplicates %s[%d].id", collection, i, collection, first)
	}
	x[key] = i
	return nil
}
