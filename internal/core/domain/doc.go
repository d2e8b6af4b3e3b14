// Package domain contains the core business entities for harvest.
// It has no dependencies on adapters or external libraries, following
// hexagonal architecture principles. All other packages depend on domain;
// domain depends on nothing but the standard library.
package domain
