// Package credentials stores upstream provider API keys for the gateway.
package credentials

import (
	"errors"
	"os"
	"slices"
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// keyedProviders lists the providers that authenticate with an API key,
// with the environment variable each one falls back to. Ollama needs none.
var keyedProviders = []struct {
	name   string
	envVar string
}{
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
}

// Manager reads and writes credentials.toml in the .thoughtstream/ directory.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager resolves credentials.toml under override, or the standard
// .thoughtstream/ location when override is empty.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, now: time.Now}, nil
}

// Load returns empty Credentials when the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}
	if _, err := dotdir.ReadTOML(m.path, creds); err != nil {
		return nil, err
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}
	return dotdir.WriteTOML(m.path, creds)
}

func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key, UpdatedAt: m.now().UTC()}
	})
}

// GetKey returns "" when no key is stored for provider.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) { delete(c.Providers, provider) })
}

// ListProviders returns the providers with stored keys, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}
	slices.Sort(providers)

	return providers, nil
}

// ResolveKey returns the key the gateway should send upstream for provider:
// the stored credential first, then the provider's environment variable.
func (m *Manager) ResolveKey(provider string) (string, Source, error) {
	key, err := m.GetKey(provider)
	if err != nil {
		return "", SourceNone, err
	}
	if key != "" {
		return key, SourceStored, nil
	}

	if envVar := EnvVarForProvider(provider); envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, SourceEnv, nil
		}
	}
	return "", SourceNone, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.path
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// EnvVarForProvider returns "" for providers without an API key.
func EnvVarForProvider(provider string) string {
	for _, p := range keyedProviders {
		if p.name == provider {
			return p.envVar
		}
	}
	return ""
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	names := make([]string, len(keyedProviders))
	for i, p := range keyedProviders {
		names[i] = p.name
	}
	return names
}

func IsSupportedProvider(provider string) bool {
	return EnvVarForProvider(provider) != ""
}
