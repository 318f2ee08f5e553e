package config

import (
	"fmt"
	"os"
	"strings"
)

// GetDatabaseURL returns the database URL for the provided identifier.
// DATABASE_URL_<ID> wins when set, otherwise DATABASE_URL is used.
// An empty identifier defaults to "DEFAULT".
func GetDatabaseURL(dbID string) string {
	if dbID == "" {
		dbID = "DEFAULT"
	}

	dbURLKey := fmt.Sprintf("DATABASE_URL_%s", strings.ToUpper(dbID))
	if dbURL := os.Getenv(dbURLKey); dbURL != "" {
		return dbURL
	}
	return os.Getenv("DATABASE_URL")
}
