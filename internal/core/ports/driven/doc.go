// Package driven defines the driven (secondary) ports: interfaces the core
// requires from infrastructure. Adapters implement these interfaces;
// services consume them. Fetchers and stores plug in here.
package driven
