package ssr

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// EnvelopeVersion is the version of the JSON envelope written to renderers.
// Consumers accept any envelope with the same major version.
const EnvelopeVersion = "1.0.0"

// ProtocolEnvVar tells the renderer which protocol carries the context.
const ProtocolEnvVar = "ROUTEKIT_SSR_PROTOCOL"

// ErrIncompatibleEnvelope is returned for envelopes of another major version.
var ErrIncompatibleEnvelope = errors.New("incompatible render envelope version")

// User is the serialized identity of the requesting user.
type User struct {
	Username        string
	Email           string
	IsAnonymous     bool
	IsAuthenticated bool
	IsStaff         bool
	IsSuperuser     bool

	// Extra carries host-specific fields, serialized under "extra".
	Extra map[string]any
}

// Anonymous is the sentinel for requests without an authenticated user.
var Anonymous = User{IsAnonymous: true}

// userJSON is the wire form. Anonymous users serialize username and
// email as null.
type userJSON struct {
	Username        *string        `json:"username"`
	Email           *string        `json:"email"`
	IsAnonymous     bool           `json:"isAnonymous"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	IsStaff         bool           `json:"isStaff"`
	IsSuperuser     bool           `json:"isSuperuser"`
	Extra           map[string]any `json:"extra,omitempty"`
}

func (u User) MarshalJSON() ([]byte, error) {
	w := userJSON{
		IsAnonymous:     u.IsAnonymous,
		IsAuthenticated: u.IsAuthenticated,
		IsStaff:         u.IsStaff,
		IsSuperuser:     u.IsSuperuser,
		Extra:           u.Extra,
	}
	if !u.IsAnonymous {
		w.Username = &u.Username
		w.Email = &u.Email
	}
	return json.Marshal(w)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var w userJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = User{
		IsAnonymous:     w.IsAnonymous,
		IsAuthenticated: w.IsAuthenticated,
		IsStaff:         w.IsStaff,
		IsSuperuser:     w.IsSuperuser,
		Extra:           w.Extra,
	}
	if w.Username != nil {
		u.Username = *w.Username
	}
	if w.Email != nil {
		u.Email = *w.Email
	}
	return nil
}

// RenderRequestContext is the request-scoped data handed to a renderer.
// It is passed by value and never mutated after construction.
type RenderRequestContext struct {
	RequestPath string
	CSRFToken   string

	// CurrentUser is nil for anonymous requests.
	CurrentUser *User

	// RequestID correlates logs and spans. It never takes part in caching.
	RequestID string
}

// User returns the current user, or Anonymous.
func (rc RenderRequestContext) User() User {
	if rc.CurrentUser == nil {
		return Anonymous
	}
	return *rc.CurrentUser
}

// IsAnonymous reports whether the request has no authenticated user.
func (rc RenderRequestContext) IsAnonymous() bool {
	u := rc.User()
	return u.IsAnonymous || !u.IsAuthenticated
}

// Args returns the positional arguments of the argv protocol:
// request path, CSRF token, current user as JSON.
func (rc RenderRequestContext) Args() ([]string, error) {
	user, err := json.Marshal(rc.User())
	if err != nil {
		return nil, errors.Wrap(err, "encode current user")
	}
	return []string{rc.RequestPath, rc.CSRFToken, string(user)}, nil
}

// Envelope is the JSON document of the envelope protocol.
type Envelope struct {
	Version     string `json:"version"`
	RequestPath string `json:"requestPath"`
	CSRFToken   string `json:"csrfToken"`
	CurrentUser User   `json:"currentUser"`
	RequestID   string `json:"requestId,omitempty"`
}

// Envelope wraps the context in the current envelope version.
func (rc RenderRequestContext) Envelope() Envelope {
	return Envelope{
		Version:     EnvelopeVersion,
		RequestPath: rc.RequestPath,
		CSRFToken:   rc.CSRFToken,
		CurrentUser: rc.User(),
		RequestID:   rc.RequestID,
	}
}

// EncodeEnvelope serializes the context as an envelope.
func EncodeEnvelope(rc RenderRequestContext) ([]byte, error) {
	data, err := json.Marshal(rc.Envelope())
	if err != nil {
		return nil, errors.Wrap(err, "encode render envelope")
	}
	return data, nil
}

// DecodeEnvelope parses an envelope and checks its version.
func DecodeEnvelope(data []byte) (RenderRequestContext, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return RenderRequestContext{}, errors.Wrap(err, "decode render envelope")
	}
	if err := CheckCompatible(env.Version); err != nil {
		return RenderRequestContext{}, err
	}
	user := env.CurrentUser
	return RenderRequestContext{
		RequestPath: env.RequestPath,
		CSRFToken:   env.CSRFToken,
		CurrentUser: &user,
		RequestID:   env.RequestID,
	}, nil
}

// CheckCompatible reports whether an envelope version can be consumed by
// this version of the protocol (same major version).
func CheckCompatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(ErrIncompatibleEnvelope, "invalid version %q", version)
	}
	major := semver.MustParse(EnvelopeVersion).Major()
	constraint, err := semver.NewConstraint(fmt.Sprintf("^%d", major))
	if err != nil {
		return errors.Wrap(err, "envelope constraint")
	}
	if !constraint.Check(v) {
		return errors.Wrapf(ErrIncompatibleEnvelope, "got %s, want %d.x", version, major)
	}
	return nil
}
