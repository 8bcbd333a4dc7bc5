package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Request identifies one provider capability invocation. The same capability
// and parameter set always produces the same fingerprint, regardless of the
// order the parameters were supplied in.
type Request struct {
	Capability string
	Params     map[string]string
}

func NewRequest(capability string, params map[string]string) Request {
	normalized := make(map[string]string, len(params))
	for k, v := range params {
		k = strings.TrimSpace(strings.ToLower(k))
		if k == "" {
			continue
		}
		normalized[k] = strings.TrimSpace(v)
	}
	return Request{Capability: strings.TrimSpace(capability), Params: normalized}
}

func (r Request) Param(key string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[strings.ToLower(key)]
}

// Fingerprint is the cache key: the capability namespace followed by a
// sha256 over the sorted key=value pairs. Keeping the capability as a
// readable prefix lets a whole capability be evicted in one pass.
func (r Request) Fingerprint() string {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(r.Capability)
	for _, k := range keys {
		sb.WriteByte('\x1f')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(r.Params[k])
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return r.Capability + ":" + hex.EncodeToString(sum[:16])
}

// SourceResult is a normalized fetch outcome. Once an adapter returns one it
// is never mutated; refreshes create a new value.
type SourceResult struct {
	Payload    any       `json:"payload"`
	Confidence float64   `json:"confidence"`
	Provenance string    `json:"provenance"`
	FetchedAt  time.Time `json:"fetched_at"`
}
