package testdb

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Environment variables consulted for the test database URL, in order.
const (
	EnvDatabaseURL      = "DATABASE_URL"
	EnvTestDatabaseURL  = "CODEFORGE_TEST_DB_URL"
	EnvForgeDatabaseURL = "FORGE_DATABASE_URL"
)

// CI connection defaults.
const (
	ciUser     = "postgres"
	ciPassword = "postgres"
	ciPort     = "5432"
	ciDatabase = "codeforge_test"
	ciOptions  = "sslmode=disable"
)

var ciMarkers = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsCI reports whether the tests are running under a CI provider.
func IsCI() bool {
	for _, name := range ciMarkers {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// URL returns the first non-empty test database URL from the environment,
// or "" when none is set. Under CI the URL is rewritten to the standard
// postgres:postgres service credentials.
func URL() string {
	for _, name := range []string{EnvDatabaseURL, EnvTestDatabaseURL, EnvForgeDatabaseURL} {
		if val := os.Getenv(name); val != "" {
			if !IsCI() {
				return val
			}
			standardized, err := standardizeURL(val)
			if err != nil {
				return val
			}
			return standardized
		}
	}
	return ""
}

// standardizeURL applies the CI credentials and fills in a missing port,
// database name and options.
func standardizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return raw, nil
	}

	u.User = url.UserPassword(ciUser, ciPassword)
	if u.Port() == "" {
		host := u.Hostname()
		if host == "" {
			host = "localhost"
		}
		u.Host = host + ":" + ciPort
	}
	if strings.TrimPrefix(u.Path, "/") == "" {
		u.Path = "/" + ciDatabase
	}
	if u.RawQuery == "" {
		u.RawQuery = ciOptions
	}
	return u.String(), nil
}

// MaskURL hides the password of a database URL for test output.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
