package provider

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/thoughtstream/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/thoughtstream/pkg/llm/provider/ollama"
	"github.com/papercomputeco/thoughtstream/pkg/llm/provider/openai"
)

// Provider type names accepted by New.
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// constructors is ordered so SupportedProviders is stable.
var constructors = []struct {
	name string
	new  func() Provider
}{
	{Anthropic, func() Provider { return anthropic.New() }},
	{OpenAI, func() Provider { return openai.New() }},
	{Ollama, func() Provider { return ollama.New() }},
}

func SupportedProviders() []string {
	names := make([]string, len(constructors))
	for i, c := range constructors {
		names[i] = c.name
	}
	return names
}

// New returns the provider registered under providerType. Matching ignores
// case and surrounding space.
func New(providerType string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(providerType))
	for _, c := range constructors {
		if c.name == name {
			return c.new(), nil
		}
	}
	return nil, fmt.Errorf("unknown provider type: %q (supported: %s)", providerType, strings.Join(SupportedProviders(), ", "))
}
