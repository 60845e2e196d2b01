package identity

import (
	"errors"
	"net/http"
	"strings"
)

// Header names the upstream proxy/identity layer is expected to set.
const (
	HeaderParticipantID = "X-Quill-Participant"
	HeaderDisplayName   = "X-Quill-Display-Name"
	HeaderAvatarURL     = "X-Quill-Avatar"
)

// ErrNoParticipant reports a request that carries no participant identity.
var ErrNoParticipant = errors.New("request carries no participant identity")

// Participant is the identity attached to a session.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Provider resolves a participant from an incoming request.
type Provider interface {
	Resolve(r *http.Request) (Participant, error)
}

// HeaderProvider reads identity headers set by the upstream platform, falling
// back to query parameters so browser WebSocket clients (which cannot set
// custom headers) keep working.
type HeaderProvider struct{}

// NewHeaderProvider returns the default provider.
func NewHeaderProvider() HeaderProvider { return HeaderProvider{} }

// Resolve extracts the participant or returns ErrNoParticipant.
func (HeaderProvider) Resolve(r *http.Request) (Participant, error) {
	q := r.URL.Query()

	id := firstNonEmpty(r.Header.Get(HeaderParticipantID), q.Get("participant"))
	if id == "" {
		return Participant{}, ErrNoParticipant
	}

	name := firstNonEmpty(r.Header.Get(HeaderDisplayName), q.Get("display_name"))
	if name == "" {
		name = id
	}

	return Participant{
		ID:          id,
		DisplayName: name,
		AvatarURL:   firstNonEmpty(r.Header.Get(HeaderAvatarURL), q.Get("avatar")),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
