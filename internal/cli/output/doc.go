// Package output renders command results as a table, JSON or YAML.
//
// Table rendering takes column names from `json` tags. A `table:"-"` tag
// hides a field and `table:"wide"` shows it only with --wide.
package output
