package settings

func NewSettings() *Settings {
	return &Settings{
		ClientName: getString("clientName", "defaultClientName"),
		DataFolder: getString("dataFolder", "data"),
		LogLevel:   getString("logLevel", "INFO"),
		UtxoStore: UtxoStoreSettings{
			UtxoStore:            getURL("utxostore", "memory://"),
			VerboseDebug:         getBool("utxostore_verbose_debug", false),
			DBTimeoutMillis:      getInt("utxostore_dbTimeoutMillis", 5000),
			SwissMapSize:         getInt("utxostore_swissMapSize", 1024),
			PostgresMaxIdleConns: getInt("utxostore_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("utxostore_postgresMaxOpenConns", 80),
		},
		Validator: ValidatorSettings{
			Policy:                   getString("validator_policy", "first_seen"),
			VerboseDebug:             getBool("validator_verbose_debug", false),
			SignatureCacheTTLSeconds: getInt("validator_signatureCacheTTLSeconds", 600),
			SignatureCacheSize:       getInt("validator_signatureCacheSize", 100_000),
		},
		Tracing: TracingSettings{
			Enabled:      getBool("tracing_enabled", false),
			SampleRate:   getFloat64("tracing_SampleRate", 0.01),
			CollectorURL: getURL("tracing_collector_url", "http://localhost:4318"),
		},
	}
}
