// Package store declares the persistence contract for users and the sentinel
// errors every implementation returns. Implementations live under
// internal/platform (memory and postgres).
package store
