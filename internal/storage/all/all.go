// Package all registers every storage backend with the factory registry.
//
// The CLI blank-imports this package so config alone selects the backend.
package all

import (
	// SQL Server driver registration for database/sql ("sqlserver").
	_ "github.com/microsoft/go-mssqldb"

	_ "propclean/internal/storage/mssql"
	_ "propclean/internal/storage/postgres"
	_ "propclean/internal/storage/sqlite"
)
