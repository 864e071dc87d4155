// Package service contains the application use cases: registration, login
// with lockout, and owner-scoped account management. It coordinates domain
// objects and the store.UserStore interface and never depends on a concrete
// storage backend.
//
// Errors returned from this package wrap store, domain or service sentinels,
// all of which carry a failure kind, so the HTTP layer classifies them
// without knowing where they came from.
package service
