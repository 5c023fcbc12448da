// Package header handles the request headers that cross the thoughtstream
// gateway:
//
//	Client --> Gateway --> Upstream LLM Provider
//
// Attribution headers travel from the client to the gateway and are used for
// logging and record metadata only. Credential headers are forwarded on to the
// upstream provider; everything else stays on the client leg, because the
// gateway builds its own upstream request body.
package header

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const (
	// UserHeader names the end user a thought belongs to.
	UserHeader = "X-Thoughtstream-User"

	// ClientHeader names the calling application.
	ClientHeader = "X-Thoughtstream-Client"

	// RequestIDHeader correlates a request across services.
	RequestIDHeader = "X-Request-Id"
)

// forwardUpstream is the set of client headers (client --> gateway -->
// upstream) copied onto the upstream provider request.
var forwardUpstream = map[string]struct{}{
	// OpenAI and Ollama bearer tokens.
	"Authorization": {},

	// Anthropic credentials and API version pinning.
	"X-Api-Key":         {},
	"Anthropic-Version": {},
	"Anthropic-Beta":    {},

	// OpenAI organization routing.
	"Openai-Organization": {},
	"Openai-Project":      {},
}

// Attribution identifies who asked for a thought record.
type Attribution struct {
	User      string
	Client    string
	RequestID string
}

// Meta returns the non-empty attribution values keyed by short name.
func (a Attribution) Meta() map[string]string {
	meta := map[string]string{}
	if a.User != "" {
		meta["user"] = a.User
	}
	if a.Client != "" {
		meta["client"] = a.Client
	}
	if a.RequestID != "" {
		meta["request_id"] = a.RequestID
	}
	return meta
}

// Apply sets the attribution headers on an outgoing request.
func (a Attribution) Apply(req *http.Request) {
	if a.User != "" {
		req.Header.Set(UserHeader, a.User)
	}
	if a.Client != "" {
		req.Header.Set(ClientHeader, a.Client)
	}
	if a.RequestID != "" {
		req.Header.Set(RequestIDHeader, a.RequestID)
	}
}

// Handler manages headers between gateway connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Attribution reads the attribution headers of an incoming request.
func (h *Handler) Attribution(c *fiber.Ctx) Attribution {
	return Attribution{
		User:      c.Get(UserHeader),
		Client:    c.Get(ClientHeader),
		RequestID: c.Get(RequestIDHeader),
	}
}

// Forwarded returns a copy of the credential headers of an incoming request.
// The copy stays valid after the handler returns, unlike the Fiber context.
func (h *Handler) Forwarded(c *fiber.Ctx) http.Header {
	out := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, ok := forwardUpstream[k]; ok {
			out.Set(k, string(value))
		}
	})
	return out
}

// ApplyForwarded sets the forwarded headers on an outgoing upstream request.
// Headers already set on req win, so configured credentials are never
// overridden by the client.
func ApplyForwarded(forwarded http.Header, req *http.Request) {
	for k, vals := range forwarded {
		if len(vals) == 0 || req.Header.Get(k) != "" {
			continue
		}
		req.Header.Set(k, vals[0])
	}
}

// SetUpstreamRequestHeaders copies credential headers from the Fiber context
// onto the outgoing upstream request.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	ApplyForwarded(h.Forwarded(c), req)
}
