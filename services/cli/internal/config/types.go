package config

// Config holds runtime configuration for the checkround CLI.
// Prefixed fields read CHECKROUND_<NAME>.
type Config struct {
	Backend          string `env:"BACKEND,default=badger"`
	DataDir          string `env:"DATA_DIR"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`
	LogFormat        string `env:"LOG_FORMAT,default=json"`
	Timezone         string `env:"TIMEZONE,default=Local"`
	StrictReferences bool   `env:"STRICT_REFERENCES,default=true"`
	BcryptCost       int    `env:"BCRYPT_COST,default=10"`
	MetricsTextfile  string `env:"METRICS_TEXTFILE"`

	// Shared with other tools, so read without the prefix.
	OTLPEndpoint string
	AgeSecretKey string
	AgePublicKey string
}

type shared struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AgeSecretKey string `env:"AGE_SECRET_KEY"`
	AgePublicKey string `env:"AGE_PUBLIC_KEY"`
}

// Overrides carries command-line flags; empty fields leave the environment value in place.
type Overrides struct {
	Backend  string
	DataDir  string
	LogLevel string
}
