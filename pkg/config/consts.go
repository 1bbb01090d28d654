package config

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "TOUCHTRIAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TOUCHTRIAL_DB_DSN"
	EnvDBHost = "TOUCHTRIAL_DB_HOST"
	EnvDBUser = "TOUCHTRIAL_DB_USER"
	EnvDBName = "TOUCHTRIAL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
