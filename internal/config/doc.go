// Package config loads the server settings from an optional YAML file and
// USERGATE_* environment variables, applies the documented fallbacks and
// validates the result before anything else starts.
package config
