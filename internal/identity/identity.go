// Package identity resolves the caller classification used for auth and
// quota decisions: either a validated API key or a normalized client
// address.
package identity

import (
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"synonyms-api/internal/common/errors"
)

// KeySource reports where a candidate API key was presented.
type KeySource string

const (
	SourceNone   KeySource = "none"
	SourceHeader KeySource = "header"
	SourceQuery  KeySource = "query"
)

// Identity is the resolved caller classification. Exactly one of the two
// variants applies: a keyed caller carries KeyID/Description, an anonymous
// caller carries the normalized Address.
type Identity struct {
	Keyed       bool   `json:"keyed"`
	KeyID       int64  `json:"key_id,omitempty"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
}

// NewKeyed builds the identity for a validated API key.
func NewKeyed(keyID int64, description string) Identity {
	return Identity{Keyed: true, KeyID: keyID, Description: description}
}

// NewAnonymous builds the identity for a caller without a key.
func NewAnonymous(address string) Identity {
	return Identity{Address: address}
}

// LedgerKey derives the quota counter key for this identity.
func (i Identity) LedgerKey() string {
	if i.Keyed {
		return "unlimited:" + strconv.FormatInt(i.KeyID, 10)
	}
	return "ratelimit:" + i.Address
}

// ErrMultipleKeys is returned when the key query parameter is repeated.
var ErrMultipleKeys = errors.ValidationError("only one API key can be provided in the query parameters").
	WithCode("multiple_query_keys")

// ErrConflictingKeys is returned when a key arrives in both the
// Authorization header and the query string. Presence-conflict is invalid
// input in itself, so this is checked even though the header would
// otherwise take precedence.
var ErrConflictingKeys = errors.ValidationError("do not send the API key in both the Authorization header and the query parameter").
	WithCode("conflicting_keys")

// ExtractKey pulls the candidate API key from a request. The Authorization
// bearer token wins over the key query parameter, but a request presenting
// both is rejected outright, as is a repeated query parameter.
func ExtractKey(r *http.Request) (string, KeySource, error) {
	var headerKey string
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		headerKey = strings.TrimSpace(authHeader[7:])
	}

	queryKeys := r.URL.Query()["key"]
	if len(queryKeys) > 1 {
		return "", SourceNone, ErrMultipleKeys
	}

	// Any Authorization header alongside a query key is a conflict, even
	// when the header is not a parsable bearer token.
	if authHeader != "" && len(queryKeys) > 0 {
		return "", SourceNone, ErrConflictingKeys
	}

	if headerKey != "" {
		return headerKey, SourceHeader, nil
	}

	if len(queryKeys) == 1 {
		return strings.TrimSpace(queryKeys[0]), SourceQuery, nil
	}

	return "", SourceNone, nil
}

// StripQueryKey removes the key parameter from the request's query state so
// the credential does not leak into logs or cache-key derivation.
func StripQueryKey(r *http.Request) {
	q := r.URL.Query()
	q.Del("key")
	r.URL.RawQuery = q.Encode()
}

var ipv4Pattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// ClientIP derives the normalized anonymous address for a request: the
// first entry of the forwarded-for chain, then X-Real-IP, then the socket
// peer address. Behind a reverse proxy the socket peer is the proxy, so
// the forwarded headers must win or every proxied caller would share one
// quota window. Loopback IPv6 maps to the IPv4 loopback and IPv4-mapped
// IPv6 addresses are unwrapped. Anything that is not dotted-quad IPv4
// after normalization collapses to the "unknown" sentinel.
func ClientIP(r *http.Request) string {
	var ip string
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	if ip == "" {
		return "unknown"
	}
	if ip == "::1" {
		return "127.0.0.1"
	}
	if strings.HasPrefix(ip, "::ffff:") {
		ipv4 := ip[7:]
		if ipv4Pattern.MatchString(ipv4) {
			return ipv4
		}
	}
	if ipv4Pattern.MatchString(ip) {
		return ip
	}
	return "unknown"
}
