package config

// DefaultFlags is the flag registry shared by every thoughtstream command.
var DefaultFlags = FlagSet{
	FlagProxyListen:     {Name: "proxy-listen", Shorthand: "p", ViperKey: "proxy.listen", Description: "Address for the streaming gateway to listen on"},
	FlagAPIListen:       {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagUpstream:        {Name: "upstream", Shorthand: "u", ViperKey: "proxy.upstream", Description: "Upstream LLM provider URL"},
	FlagProvider:        {Name: "provider", ViperKey: "proxy.provider", Description: "LLM provider type (anthropic, openai, ollama)"},
	FlagModel:           {Name: "model", Shorthand: "m", ViperKey: "proxy.model", Description: "Model used when a request names none"},
	FlagAPIKey:          {Name: "api-key", ViperKey: "proxy.api_key", Description: "Upstream provider API key"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: in-memory)"},
	FlagPostgres:        {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string (takes precedence over --sqlite)"},
	FlagKafkaBrokers:    {Name: "kafka-brokers", ViperKey: "eventstream.kafka_brokers", Description: "Comma-separated Kafka brokers for record events"},
	FlagKafkaTopic:      {Name: "kafka-topic", ViperKey: "eventstream.kafka_topic", Description: "Kafka topic for record events"},
	FlagPublishInterval: {Name: "publish-interval", ViperKey: "stream.publish_interval_ms", Description: "Render throttle in milliseconds"},
	FlagResultFields:    {Name: "result-fields", ViperKey: "stream.result_fields", Description: "Comma-separated fields replaced by a placeholder on error"},
	FlagTraceExporter:   {Name: "trace-exporter", ViperKey: "telemetry.trace_exporter", Description: "Trace exporter (none, stdout, otlp)"},
	FlagLogFormat:       {Name: "log-format", ViperKey: "log.format", Description: "Console log format (pretty, text, json)"},
	FlagLogFile:         {Name: "log-file", ViperKey: "log.file", Description: "Also append JSON logs to this file"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Thoughtstream API server URL"},
	FlagProxyTarget:     {Name: "proxy-target", Shorthand: "p", ViperKey: "client.proxy_target", Description: "Thoughtstream gateway URL"},

	FlagProxyListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "proxy.listen", Description: "Address for the streaming gateway to listen on"},
	FlagAPIListenStandalone:   {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
}
