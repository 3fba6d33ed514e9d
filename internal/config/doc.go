// Package config loads application configuration and derives the typed
// settings the rest of envelope consumes.
//
// Files may be CUE (a single .cue file or a directory of them) or YAML.
// Nested structure is flattened into dotted keys, so the following are
// equivalent:
//
//	model: key: fields: ["id"]
//	"model.key.fields": "id"
//
// Lists flatten to comma-joined strings. The flattened set is a
// planner.Config and is handed unchanged to strategies and translators.
package config
