// Package config manages user-level settings stored at ~/.refswitch/config.yaml.
// Values can be overridden with REFSWITCH_* environment variables, which may
// also come from a .env file in the working directory.
package config
