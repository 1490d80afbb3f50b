package settings

import "net/url"

type UtxoStoreSettings struct {
	UtxoStore            *url.URL
	VerboseDebug         bool
	DBTimeoutMillis      int
	SwissMapSize         int
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
}

type ValidatorSettings struct {
	// Policy is the order in which an epoch resolves conflicting candidates, first_seen or highest_fee
	Policy       string
	VerboseDebug bool
	// SignatureCacheTTLSeconds is how long a signature check result is remembered, 0 disables the cache
	SignatureCacheTTLSeconds int
	SignatureCacheSize       int
}

type TracingSettings struct {
	Enabled bool
	// SampleRate is the fraction of root spans exported, 0 to 1
	SampleRate   float64
	CollectorURL *url.URL
}

type Settings struct {
	ClientName string
	DataFolder string
	LogLevel   string
	UtxoStore  UtxoStoreSettings
	Validator  ValidatorSettings
	Tracing    TracingSettings
}
