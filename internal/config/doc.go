// Package config loads and saves the hex-tool application settings.
//
// Settings live in config.yaml under $XDG_CONFIG_HOME/hex-tool and can be
// overridden with HEX_TOOL_* environment variables, for example
// HEX_TOOL_GENERATOR_COMMAND=npx.
package config
