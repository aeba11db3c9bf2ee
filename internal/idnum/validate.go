// internal/idnum/validate.go
package idnum

import (
    "fmt"
    "strings"
    "time"
)

// centuryPivot: two-digit birth years below this resolve to the 2000s.
const centuryPivot = 25

// ValidateID checks the embedded birth date and the check digit of a national
// identity number. It returns false plus a human-readable reason on any
// violation; it never panics and never returns an error value.
func ValidateID(raw interface{}) (bool, string) {
    s := strings.TrimSpace(Stringify(raw))
    if i := strings.IndexByte(s, '.'); i >= 0 {
        s = s[:i]
    }
    digits := keepDigits(s)
    if digits == "" {
        return false, "identifier is missing"
    }
    if len(digits) != IDLength {
        return false, fmt.Sprintf("identifier has %d digits, expected %d", len(digits), IDLength)
    }

    year := int(digits[0]-'0')*10 + int(digits[1]-'0')
    month := int(digits[2]-'0')*10 + int(digits[3]-'0')
    day := int(digits[4]-'0')*10 + int(digits[5]-'0')

    if month < 1 || month > 12 {
        return false, fmt.Sprintf("invalid birth month %02d", month)
    }
    if day < 1 || day > 31 {
        return false, fmt.Sprintf("invalid birth day %02d", day)
    }
    fullYear := 1900 + year
    if year < centuryPivot {
        fullYear = 2000 + year
    }
    birth := time.Date(fullYear, time.Month(month), day, 0, 0, 0, 0, time.UTC)
    if birth.Year() != fullYear || birth.Month() != time.Month(month) || birth.Day() != day {
        return false, fmt.Sprintf("invalid birth date %02d-%02d-%02d", year, month, day)
    }
    if birth.After(time.Now()) {
        return false, "birth date is in the future"
    }

    if !checkDigitValid(digits) {
        return false, "check digit mismatch"
    }
    return true, ""
}

// checkDigitValid applies the Luhn variant used by the national numbering
// scheme: digits at even 0-indexed positions are added as-is, digits at odd
// positions are doubled with 9 subtracted when the double reaches 10, and the
// total must be divisible by 10.
func checkDigitValid(digits string) bool {
    sum := 0
    for i := 0; i < len(digits); i++ {
        d := int(digits[i] - '0')
        if i%2 == 0 {
            sum += d
            continue
        }
        d *= 2
        if d >= 10 {
            d -= 9
        }
        sum += d
    }
    return sum%10 == 0
}
