// Package extension canonicalizes file extension strings so that the scanner,
// the copier and the renamer all compare and rewrite suffixes the same way.
//
// A Spec always renders with a single leading separator ("." + suffix), no
// matter whether the user typed "txt" or ".txt".
package extension

import "strings"

// Separator is the leading character of every canonical extension token.
const Separator = "."

// Spec is a canonical extension token. The zero value is empty and matches
// nothing.
type Spec struct {
	suffix string
}

// Normalize turns a raw user-supplied extension into a Spec. A missing
// leading separator is prepended; an existing one is left alone. No other
// validation happens here, callers reject empty input before normalizing.
func Normalize(raw string) Spec {
	return Spec{suffix: strings.TrimPrefix(raw, Separator)}
}

// String returns the canonical token, e.g. ".txt".
func (s Spec) String() string {
	if s.suffix == "" {
		return ""
	}
	return Separator + s.suffix
}

// Suffix returns the extension without its leading separator.
func (s Spec) Suffix() string {
	return s.suffix
}

// IsZero reports whether s holds no extension.
func (s Spec) IsZero() bool {
	return s.suffix == ""
}

// Equal reports whether two Specs denote the same extension. With
// foldCase set, ".LOG" and ".log" are equal.
func (s Spec) Equal(other Spec, foldCase bool) bool {
	if foldCase {
		return strings.EqualFold(s.suffix, other.suffix)
	}
	return s.suffix == other.suffix
}

// Matches reports whether name ends with the extension and has a non-empty
// base in front of it. A file literally named ".log" does not match ".log".
func (s Spec) Matches(name string, foldCase bool) bool {
	_, _, ok := s.Split(name, foldCase)
	return ok
}

// Split separates name into its base and the suffix that matched, with the
// matched suffix returned exactly as it appears in name. ok is false when
// name does not end with the extension or the base would be empty.
func (s Spec) Split(name string, foldCase bool) (base, matched string, ok bool) {
	token := s.String()
	if token == "" || len(name) <= len(token) {
		return "", "", false
	}
	cut := len(name) - len(token)
	tail := name[cut:]
	if foldCase {
		if !strings.EqualFold(tail, token) {
			return "", "", false
		}
	} else if tail != token {
		return "", "", false
	}
	return name[:cut], tail, true
}

// Replace swaps the matched suffix of name for to. The base is preserved
// byte for byte. ok is false when name does not carry s.
func (s Spec) Replace(name string, to Spec, foldCase bool) (string, bool) {
	base, _, ok := s.Split(name, foldCase)
	if !ok {
		return "", false
	}
	return base + to.String(), true
}
