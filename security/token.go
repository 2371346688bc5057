package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// TokenField is the request/notification field carrying the signature. It is
// always excluded from the signature base.
const TokenField = "Token"

// secretField is the synthetic field name under which the terminal password
// is injected in SecretAsField mode.
const secretField = "Password"

// SecretMode selects where the shared secret enters the canonical string.
// Acquiring endpoints in this domain are not consistent about it, so both
// conventions are supported.
type SecretMode int

const (
	// SecretAsField injects the secret as its own field, sorted with the
	// rest. This is what the T-Bank v2 endpoints expect.
	SecretAsField SecretMode = iota
	// SecretAppended appends the raw secret to the canonical string after
	// flattening.
	SecretAppended
)

var ErrMissingSecret = errors.New("security: signing secret is not configured")

// TokenSigner computes and checks request tokens over a field mapping.
type TokenSigner struct {
	secret string
	mode   SecretMode
}

func NewTokenSigner(secret string, mode SecretMode) (*TokenSigner, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenSigner{secret: secret, mode: mode}, nil
}

// Flatten renders a decoded JSON value to its canonical string form.
// Scalars render as their decimal/boolean text. Mappings contribute only
// their values, sorted by key; the nested key names themselves are not part
// of the output. Sequences contribute elements in original order.
func Flatten(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := ""
		for _, k := range keys {
			out += Flatten(val[k])
		}
		return out
	case []interface{}:
		out := ""
		for _, e := range val {
			out += Flatten(e)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Canonicalize produces the deterministic signature base for a field
// mapping: absent and empty-string entries are dropped, remaining field
// names are sorted bytewise, and the flattened values are concatenated with
// no separators.
func Canonicalize(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += Flatten(fields[k])
	}
	return out
}

// Sign computes the lowercase hex SHA-256 token over fields. The Token
// field and any names in exclude are left out of the base; the secret is
// folded in according to the signer's mode.
func (s *TokenSigner) Sign(fields map[string]interface{}, exclude ...string) string {
	base := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		if k == TokenField || k == secretField {
			continue
		}
		base[k] = v
	}
	for _, k := range exclude {
		delete(base, k)
	}

	var signString string
	switch s.mode {
	case SecretAppended:
		signString = Canonicalize(base) + s.secret
	default:
		base[secretField] = s.secret
		signString = Canonicalize(base)
	}

	sum := sha256.Sum256([]byte(signString))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the token over fields and compares it to the claimed
// value in constant time. A mismatch is a plain false, never an error.
func (s *TokenSigner) Verify(fields map[string]interface{}, claimed string, exclude ...string) bool {
	if claimed == "" {
		return false
	}
	expected := s.Sign(fields, exclude...)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(claimed)) == 1
}
