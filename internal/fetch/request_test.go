package fetch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintOrderIndependent(t *testing.T) {
	a := NewRequest("competitor_lookup", map[string]string{"ticker": "TSLA", "limit": "5"})
	b := NewRequest("competitor_lookup", map[string]string{"limit": "5", "ticker": "TSLA"})
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintNamespacedByCapability(t *testing.T) {
	a := NewRequest("competitor_lookup", map[string]string{"ticker": "AAPL"})
	b := NewRequest("company_profile", map[string]string{"ticker": "AAPL"})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Contains(t, a.Fingerprint(), "competitor_lookup:")
}

func TestFingerprintNormalizesKeys(t *testing.T) {
	a := NewRequest("company_profile", map[string]string{"Ticker": " AAPL "})
	b := NewRequest("company_profile", map[string]string{"ticker": "AAPL"})
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, "AAPL", a.Param("ticker"))
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	a := NewRequest("competitor_lookup", map[string]string{"ticker": "TSLA"})
	b := NewRequest("competitor_lookup", map[string]string{"ticker": "F"})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestErrorKindMatching(t *testing.T) {
	err := error(NotFound("polygon", "no SIC code for %s", "XXXX"))
	wrapped := errors.Join(err)

	var fe *Error
	require.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, KindNotFound, fe.Kind)
	assert.Equal(t, "polygon", fe.Source)
	assert.Contains(t, fe.Error(), "not_found")
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := UnavailableErr("yahoo", inner, "quote request failed")
	assert.ErrorIs(t, err, inner)
}
