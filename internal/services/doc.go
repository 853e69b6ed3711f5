// Package services defines the shared error taxonomy and context annotation
// helpers used across the photomaton pipeline components.
package services
