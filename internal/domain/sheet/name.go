package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// KeyFormat selects how a session date is written as a sheet name.
type KeyFormat string

// Supported date key formats.
const (
	KeyShort KeyFormat = "yymmdd"
	KeyLong  KeyFormat = "yyyymmdd"
)

const (
	shortLayout = "060102"
	longLayout  = "20060102"
)

var suffixPattern = regexp.MustCompile(`_(\d+)$`)

// Name is a parsed session sheet name.
type Name struct {
	Key    string    // date key without suffix
	Suffix int       // disambiguation counter, 0 for the bare key
	Date   time.Time // UTC midnight
}

// ParseName extracts the session date from a sheet name of the form
// <date-key> or <date-key>_<n>. Both yymmdd and yyyymmdd keys are accepted.
func ParseName(name string) (Name, error) {
	n := Name{Key: name}
	if m := suffixPattern.FindStringSubmatchIndex(name); m != nil {
		n.Key = name[:m[0]]
		suffix, err := strconv.Atoi(name[m[2]:m[3]])
		if err != nil {
			return Name{}, fmt.Errorf("%w: %q", ErrNotDataSheet, name)
		}
		n.Suffix = suffix
	}
	var layout string
	switch len(n.Key) {
	case len(shortLayout):
		layout = shortLayout
	case len(longLayout):
		layout = longLayout
	default:
		return Name{}, fmt.Errorf("%w: %q", ErrNotDataSheet, name)
	}
	d, err := time.Parse(layout, n.Key)
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %v", ErrNotDataSheet, name, err)
	}
	n.Date = d
	return n, nil
}

// ParseKeyFormat maps a configuration value to a KeyFormat.
func ParseKeyFormat(s string) (KeyFormat, bool) {
	switch KeyFormat(s) {
	case KeyShort, "":
		return KeyShort, true
	case KeyLong:
		return KeyLong, true
	default:
		return "", false
	}
}

// FormatKey renders a session date as a sheet date key.
func FormatKey(d time.Time, f KeyFormat) string {
	if f == KeyLong {
		return d.Format(longLayout)
	}
	return d.Format(shortLayout)
}

// Candidates lists the sheet names searched for a date key, in order: the
// bare key, then key_2 up to key_<limit>.
func Candidates(key string, limit int) []string {
	names := []string{key}
	for i := 2; i <= limit; i++ {
		names = append(names, key+"_"+strconv.Itoa(i))
	}
	return names
}
