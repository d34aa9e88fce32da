package config

// EnvPrefix scopes all envconfig lookups.
const EnvPrefix = "MEMBERPAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
	AppEnvTest = "test"
)

const (
	EnvDBDSN  = "MEMBERPAY_DB_DSN"
	EnvDBHost = "MEMBERPAY_DB_HOST"
	EnvDBUser = "MEMBERPAY_DB_USER"
	EnvDBName = "MEMBERPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
