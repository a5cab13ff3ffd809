// Package file keeps admkb state that users are expected to read and edit
// by hand: config.toml and the prompts/ directory under ADMKB_HOME.
package file
