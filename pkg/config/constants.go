package config

// EnvPrefix is intentionally empty; every field carries its fully qualified
// variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "PAYLANE_APP_ENV"
	EnvPort     = "PAYLANE_APP_PORT"
	EnvDBDSN    = "PAYLANE_DB_DSN"
	EnvDBHost   = "PAYLANE_DB_HOST"
	EnvDBUser   = "PAYLANE_DB_USER"
	EnvDBName   = "PAYLANE_DB_NAME"
	EnvRedisURL = "PAYLANE_REDIS_URL"

	EnvJWTSecret = "PAYLANE_JWT_SECRET"
	EnvJWTIssuer = "PAYLANE_JWT_ISSUER"

	EnvGCPProjectID = "PAYLANE_GCP_PROJECT_ID"

	EnvPubSubPaymentsTopic = "PAYLANE_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubRefundsTopic  = "PAYLANE_PUBSUB_REFUNDS_TOPIC"
	EnvPubSubPayoutsTopic  = "PAYLANE_PUBSUB_PAYOUTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
