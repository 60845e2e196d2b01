// Package identity resolves who a connecting client claims to be.
//
// The engine never validates credentials; authentication belongs to the
// platform in front of it. This package only extracts the participant ID,
// display name, and avatar reference the upstream identity provider attached
// to the request, and rejects requests that carry no participant at all.
package identity
