// Package config manages user-level settings stored at ~/.claudekit/config.yaml.
// It loads the file and CLAUDEKIT_* environment overrides through Viper and
// exposes the typed defaults the install pipeline reads: the component source
// root, the registry cache TTL, and whether backups and dependency probes run.
package config
