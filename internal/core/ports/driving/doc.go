// Package driving defines the driving (primary) ports: interfaces through
// which the outside world invokes the core. The CLI adapter calls these.
package driving
