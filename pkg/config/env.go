package config

// EnvPrefix is passed to envconfig; the explicit FLORIST_ tags on each field
// keep variable names stable regardless of struct layout.
const EnvPrefix = "florist"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FLORIST_APP_ENV"
	EnvDBDSN  = "FLORIST_DB_DSN"
	EnvDBHost = "FLORIST_DB_HOST"
	EnvDBUser = "FLORIST_DB_USER"
	EnvDBName = "FLORIST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
