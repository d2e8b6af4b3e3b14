// Package file loads and persists the harvest configuration as a TOML
// file, with optional hot reload via filesystem notifications.
package file
