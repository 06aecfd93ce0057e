package config

import "os"

// DatabaseConfig holds MySQL connection settings.  The database is optional:
// it is only used to store request events, and it is enabled by setting
// DB_HOST.
type DatabaseConfig struct {
	Enabled bool
	User    string // database username
	Pass    string // database password (empty allowed)
	Host    string // database host address
	Port    string // database port number
	Name    string // database name
}

func LoadDatabaseConfig() DatabaseConfig {
	host := os.Getenv("DB_HOST")
	return DatabaseConfig{
		Enabled: host != "",
		User:    envStr("DB_USER", "root"),
		Pass:    os.Getenv("DB_PASS"),
		Host:    host,
		Port:    envStr("DB_PORT", "3306"),
		Name:    envStr("DB_NAME", "cicd_demo"),
	}
}
