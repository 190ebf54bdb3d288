// Package config loads, normalizes, and validates mindmovie configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and layers credentials from a local
// .env file and the environment (ANTHROPIC_API_KEY, GEMINI_API_KEY,
// BYTEPLUS_API_KEY) over file values. The Config type centralizes every knob
// the pipeline and CLI need.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical provider names, and clear validation errors.
package config
