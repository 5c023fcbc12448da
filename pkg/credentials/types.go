package credentials

import "time"

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential is the stored key for one upstream provider.
type ProviderCredential struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at,omitzero"`
}

// Source says where ResolveKey found a key.
type Source string

const (
	SourceNone   Source = ""
	SourceStored Source = "credentials"
	SourceEnv    Source = "env"
)
