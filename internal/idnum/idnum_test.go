package idnum

import (
    "fmt"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
    tests := []struct {
        name string
        raw  interface{}
        want string
    }{
        {"clean string", "8412020217088", "8412020217088"},
        {"float suffix string", "8412020217088.0", "8412020217088"},
        {"embedded space and float suffix", "841202 0217088.0", "8412020217088"},
        {"integer", int64(8412020217088), "8412020217088"},
        {"excel float", float64(8412020217088), "8412020217088"},
        {"short value is zero padded", "123", "0000000000123"},
        {"hyphenated", "840101-5009-087", "8401015009087"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got, err := NormalizeID(tt.raw)
            require.NoError(t, err)
            assert.Equal(t, tt.want, got)
        })
    }
}

func TestNormalizeIDIdempotent(t *testing.T) {
    for _, raw := range []interface{}{"9001016804089", float64(9001016804089), "90 0101 6804089.0", "42"} {
        once, err := NormalizeID(raw)
        require.NoError(t, err)
        twice, err := NormalizeID(once)
        require.NoError(t, err)
        assert.Equal(t, once, twice, "normalize must be idempotent for %v", raw)
    }
}

func TestNormalizeIDRejects(t *testing.T) {
    for _, raw := range []interface{}{"", "   ", "abc", nil, "84120202170881234"} {
        _, err := NormalizeID(raw)
        assert.ErrorIs(t, err, ErrInvalid, "expected rejection for %v", raw)
    }
}

func TestCollapseCode(t *testing.T) {
    // int, float and string spellings of a ward id must collapse to the
    // identical canonical string.
    want := "41804011"
    for _, raw := range []interface{}{41804011, int64(41804011), float64(41804011.0), "41804011", "41804011.0", " 41804011 "} {
        got, err := CollapseCode(raw)
        require.NoError(t, err)
        assert.Equal(t, want, got, "collapse of %v", raw)
    }
}

func TestCollapseCodeNeverPads(t *testing.T) {
    got, err := CollapseCode("0042")
    require.NoError(t, err)
    assert.Equal(t, "42", got)
}

func TestCollapseCodeRejects(t *testing.T) {
    for _, raw := range []interface{}{"", "ward eleven", "4180-4011"} {
        _, err := CollapseCode(raw)
        assert.ErrorIs(t, err, ErrInvalid)
    }
}

func TestCollapseCodeInt(t *testing.T) {
    n, err := CollapseCodeInt("41804011.0")
    require.NoError(t, err)
    assert.Equal(t, int64(41804011), n)
}

func TestValidateIDAcceptsKnownGood(t *testing.T) {
    for _, id := range []string{"9001016804089", "8001015009087", "9901015009087", "8412020217088"} {
        ok, reason := ValidateID(id)
        assert.True(t, ok, "id %s rejected: %s", id, reason)
        assert.Empty(t, reason)
    }
}

func TestValidateIDRejectsCheckDigitMutations(t *testing.T) {
    const valid = "9001016804089"
    for d := 0; d <= 9; d++ {
        mutated := valid[:12] + fmt.Sprintf("%d", d)
        if mutated == valid {
            continue
        }
        ok, reason := ValidateID(mutated)
        assert.False(t, ok, "mutation %s must fail", mutated)
        assert.Equal(t, "check digit mismatch", reason)
    }
}

func TestValidateIDReasons(t *testing.T) {
    tests := []struct {
        raw    interface{}
        reason string
    }{
        {"", "identifier is missing"},
        {"12345", "identifier has 5 digits, expected 13"},
        {"9013016804089", "invalid birth month 13"},
        {"9001326804089", "invalid birth day 32"},
        {"9002306804089", "invalid birth date 90-02-30"},
    }
    for _, tt := range tests {
        ok, reason := ValidateID(tt.raw)
        assert.False(t, ok)
        assert.Equal(t, tt.reason, reason)
    }
}

func TestValidateIDAcceptsFloatSuffixedInput(t *testing.T) {
    ok, reason := ValidateID("8412020217088.0")
    assert.True(t, ok, reason)
}
