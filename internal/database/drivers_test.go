package database

import (
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSNDefaults(t *testing.T) {
	dsn, err := postgresDSN(Config{User: "sosrelay", Name: "sosrelay"})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "localhost", parsed.Host)
	require.EqualValues(t, 5432, parsed.Port)
	require.Equal(t, "sosrelay", parsed.User)
	require.Equal(t, "sosrelay", parsed.Database)
	require.Nil(t, parsed.TLSConfig)
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn, err := postgresDSN(Config{
		User:     "relay",
		Password: "p@ss word/1",
		Name:     "alerts",
		Host:     "db.example.com",
		Port:     6543,
		Options:  map[string]string{"search_path": "public"},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.EqualValues(t, 6543, parsed.Port)
	require.Equal(t, "p@ss word/1", parsed.Password)
	require.Equal(t, "public", parsed.RuntimeParams["search_path"])
}

func TestMySQLDSNRoundTrips(t *testing.T) {
	dsn, err := mysqlDSN(Config{
		User:     "relay",
		Password: "secret",
		Name:     "alerts",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"autocommit": "true"},
	})
	require.NoError(t, err)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "relay", parsed.User)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "alerts", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)
	require.Equal(t, "true", parsed.Params["autocommit"])
	require.Contains(t, dsn, "charset=utf8mb4")
}

func TestMySQLDSNDefaultsAddress(t *testing.T) {
	dsn, err := mysqlDSN(Config{User: "relay", Name: "alerts"})
	require.NoError(t, err)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
}

func TestDSNBuildersRequireCredentials(t *testing.T) {
	_, err := postgresDSN(Config{})
	require.ErrorContains(t, err, "requires user and database name")

	_, err = mysqlDSN(Config{Host: "localhost"})
	require.ErrorContains(t, err, "requires user and database name")
}

func TestExplicitDSNWins(t *testing.T) {
	for _, build := range []func(Config) (string, error){sqliteDSN, postgresDSN, mysqlDSN} {
		dsn, err := build(Config{DSN: "custom"})
		require.NoError(t, err)
		require.Equal(t, "custom", dsn)
	}
}

func TestSQLiteDSNMemoryDefault(t *testing.T) {
	dsn, err := sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)
}
