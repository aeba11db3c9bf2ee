// internal/idnum/normalize.go
package idnum

import (
    "errors"
    "fmt"
    "strconv"
    "strings"
)

// IDLength is the canonical length of a national identity number.
const IDLength = 13

// ErrInvalid marks a value that cannot be normalized into a canonical
// identifier or geographic code.
var ErrInvalid = errors.New("invalid identifier")

// Stringify renders a raw cell value as a plain string. Floats are rendered
// without exponent notation so Excel-serialized numbers like 8412020217088.0
// keep all their digits.
func Stringify(raw interface{}) string {
    switch v := raw.(type) {
    case nil:
        return ""
    case string:
        return v
    case float64:
        return strconv.FormatFloat(v, 'f', -1, 64)
    case float32:
        return strconv.FormatFloat(float64(v), 'f', -1, 32)
    case int:
        return strconv.Itoa(v)
    case int64:
        return strconv.FormatInt(v, 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case fmt.Stringer:
        return v.String()
    default:
        return fmt.Sprintf("%v", v)
    }
}

// NormalizeID converts a raw identity-number value into the canonical
// 13-digit string. Fractional suffixes and non-digit characters are stripped
// and short values are left-padded with zeros. Values that are empty or carry
// more than 13 digits are rejected.
func NormalizeID(raw interface{}) (string, error) {
    s := strings.TrimSpace(Stringify(raw))
    if i := strings.IndexByte(s, '.'); i >= 0 {
        s = s[:i]
    }
    digits := keepDigits(s)
    if digits == "" {
        return "", fmt.Errorf("%w: no digits in %q", ErrInvalid, s)
    }
    if len(digits) > IDLength {
        return "", fmt.Errorf("%w: %d digits exceeds %d", ErrInvalid, len(digits), IDLength)
    }
    if len(digits) < IDLength {
        digits = strings.Repeat("0", IDLength-len(digits)) + digits
    }
    return digits, nil
}

// CollapseCode converts a raw geographic code (ward id, voting-district
// number) into its canonical string form via a numeric round trip, so that
// 41804011, 41804011.0 and "41804011.0" all collapse to "41804011". This is
// deliberately a different policy from NormalizeID: codes are numerically
// collapsed, never zero-padded.
func CollapseCode(raw interface{}) (string, error) {
    s := strings.TrimSpace(Stringify(raw))
    if s == "" {
        return "", fmt.Errorf("%w: empty code", ErrInvalid)
    }
    f, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return "", fmt.Errorf("%w: %q is not numeric", ErrInvalid, s)
    }
    return strconv.FormatInt(int64(f), 10), nil
}

// CollapseCodeInt collapses a raw geographic code to its integer value for
// mapping-table lookups.
func CollapseCodeInt(raw interface{}) (int64, error) {
    s, err := CollapseCode(raw)
    if err != nil {
        return 0, err
    }
    n, err := strconv.ParseInt(s, 10, 64)
    if err != nil {
        return 0, fmt.Errorf("%w: %q overflows int64", ErrInvalid, s)
    }
    return n, nil
}

func keepDigits(s string) string {
    var b strings.Builder
    for _, r := range s {
        if r >= '0' && r <= '9' {
            b.WriteRune(r)
        }
    }
    return b.String()
}
