// Package config loads runtime configuration from multiple sources (YAML files,
// a .env file, environment variables, CLI flags) with precedence: CLI flags >
// Environment variables > YAML config > Defaults. Variables from the .env file
// never replace ones already set in the process environment. It exposes
// strongly typed settings to the rest of the application.
package config
