package database

import (
	"fmt"
	"net/url"

	"github.com/cinortaxeh/libnullnexus/internal/config"
)

// BuildConnString assembles the pgx connection URL for the archive
// database. The relay instance id rides along as the Postgres
// application_name so each relay's sessions are identifiable in
// pg_stat_activity.
func BuildConnString(cfg config.DBConfig, appName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	params := url.Values{}
	params.Set("sslmode", sslMode)
	if appName != "" {
		params.Set("application_name", appName)
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		params.Encode(),
	)
}
