// Package migrations registers the goose Go migrations for the SQLite store.
// Import it for side effects before running a goose provider.
package migrations
