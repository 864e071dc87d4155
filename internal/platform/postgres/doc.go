// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package and for the
// persistent audit sink. It also owns the embedded schema migrations.
//
// Queries go through database/sql with the pgx stdlib driver. Driver errors
// are translated by MapError into store sentinels before they leave the
// package.
package postgres
