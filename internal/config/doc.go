// Package config loads LiveVoice client settings from defaults, an
// optional YAML file and command-line flags, in increasing precedence.
package config
