// Package savefile detects, validates and converts save documents.
//
// Three historical document shapes are accepted: Legacy (flat root scalars,
// no version), Intermediate (version 1 with a config array and artifact
// array) and Final (version 1 with a general object). Every accepted shape is
// converted into the Final Document and default-filled so the artifact grid is
// complete over the catalog's stats and tiers.
//
// Detection and validation sniff the raw JSON with gjson and never decode the
// whole document; Validate reports every defect it finds in document order.
package savefile
