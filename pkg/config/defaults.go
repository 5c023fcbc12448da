package config

const (
	defaultProvider    = "ollama"
	defaultUpstream    = "http://localhost:11434"
	defaultModel       = "llama3.2"
	defaultProxyListen = ":8080"
	defaultAPIListen   = ":8081"

	defaultClientProxyTarget = "http://localhost:8080"
	defaultClientAPITarget   = "http://localhost:8081"

	defaultPublishIntervalMs = 100
	defaultResultField       = "reframe"

	defaultKafkaTopic = "thoughtstream.records"

	defaultTraceExporter = "none"
	defaultOTLPEndpoint  = "localhost:4317"

	defaultLogFormat = "pretty"
)

// NewDefaultConfig returns the configuration used when no file, env var or
// flag sets a key.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Proxy: ProxyConfig{
			Provider: defaultProvider,
			Upstream: defaultUpstream,
			Listen:   defaultProxyListen,
			Model:    defaultModel,
		},
		API: APIConfig{Listen: defaultAPIListen},
		Client: ClientConfig{
			ProxyTarget: defaultClientProxyTarget,
			APITarget:   defaultClientAPITarget,
		},
		Stream: StreamConfig{
			PublishIntervalMs: defaultPublishIntervalMs,
			ResultFields:      []string{defaultResultField},
		},
		EventStream: EventStreamConfig{KafkaTopic: defaultKafkaTopic},
		Telemetry: TelemetryConfig{
			TraceExporter: defaultTraceExporter,
			OTLPEndpoint:  defaultOTLPEndpoint,
		},
		Log: LogConfig{Format: defaultLogFormat},
	}
}
