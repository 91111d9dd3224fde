// Package integration runs the campaign and points flows against real
// PostgreSQL stores migrated with the production migrations. The tests carry
// the integration build tag:
//
//	go test -tags integration ./tests/integration/...
package integration
