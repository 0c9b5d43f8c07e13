// Package config loads harvester configuration.
//
// Values are layered: built-in defaults, then optional TOML files
// (typically config.toml followed by .secrets.toml), then environment
// variables. Durations are written as Go duration strings ("90s", "1h").
//
// Example Usage:
//
//	cfg, err := config.Load("config/config.toml", "config/.secrets.toml")
//	if err != nil {
//	    return err
//	}
//	client := fetch.NewClient(fetch.OptionsFromConfig(cfg))
package config
