package llm

import (
	"time"
)

// Factory builds per-run model clients. The gateway settings serve as
// defaults; a caller-supplied credential overrides them for one run and is
// never retained by the factory.
type Factory struct {
	gatewayBaseURL string
	gatewayAPIKey  string
	timeout        time.Duration
}

// NewFactory creates a model client factory.
func NewFactory(gatewayBaseURL, gatewayAPIKey string, timeout time.Duration) *Factory {
	return &Factory{
		gatewayBaseURL: gatewayBaseURL,
		gatewayAPIKey:  gatewayAPIKey,
		timeout:        timeout,
	}
}

// ClientFor returns a client for the given provider family. Unknown providers
// fall back to the OpenAI-compatible gateway, which routes by model name.
func (f *Factory) ClientFor(provider, apiKey string) ModelClient {
	key := apiKey
	if key == "" {
		key = f.gatewayAPIKey
	}

	switch provider {
	case "anthropic":
		return NewAnthropicClient("", key, f.timeout)
	case "mock":
		return NewMockClient()
	default:
		return NewClient(f.gatewayBaseURL, key, f.timeout)
	}
}

// GatewayClient returns the default gateway client, used for health probes.
func (f *Factory) GatewayClient() ModelClient {
	return NewClient(f.gatewayBaseURL, f.gatewayAPIKey, f.timeout)
}
