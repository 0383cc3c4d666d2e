// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Differ and MergeEngine are pure functions over domain documents;
// the remaining services add serialization, retries and persistence
// around them. Services are pure Go with no CGO.
package services
