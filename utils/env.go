package utils

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wangvm/pgdelta/logging"
)

// LoadEnv loads .env into the process environment if one is present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, continuing")
	}
}

// ResolveDatabaseURL picks the database connection string. DB_URL overrides
// everything; otherwise the configured db.url is used; otherwise a URL is
// assembled from the configured parts, with DB_HOSTNAME as the host
// fallback.
func ResolveDatabaseURL() (string, error) {
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		return dbURL, nil
	}
	if dbURL := viper.GetString("db.url"); dbURL != "" {
		return dbURL, nil
	}

	host := os.Getenv("DB_HOSTNAME")
	if host == "" {
		host = viper.GetString("db.hostname")
	}
	if host == "" {
		return "", fmt.Errorf("no database configured: set DB_URL, db.url, or DB_HOSTNAME")
	}

	port := viper.GetString("db.port")
	if port == "" {
		port = "5432"
	}
	username := viper.GetString("db.username")
	if username == "" {
		username = "postgres"
	}
	dbName := viper.GetString("db.name")
	if dbName == "" {
		dbName = "postgres"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   "/" + dbName,
	}
	if password := viper.GetString("db.password"); password != "" {
		u.User = url.UserPassword(username, password)
	} else {
		u.User = url.User(username)
	}
	return u.String(), nil
}
