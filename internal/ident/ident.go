// Package ident normalizes database object names.
//
// A raw name may carry backend quoting ("x", `x`, [x]), doubled-quote escapes
// and an optional schema qualifier. Parse strips the quoting, folds unquoted
// parts to the backend's case convention and returns an Identifier that can be
// rendered back as a catalog lookup value, a DDL-safe quoted fragment, or an
// underscore key for internal maps.
package ident

import (
	"strings"
	"unicode"

	"github.com/koustreak/syncmeta/internal/errs"
)

// Fold is the case-folding rule a backend applies to unquoted identifiers.
type Fold int

const (
	FoldNone  Fold = iota // MySQL, SQLite: stored as written
	FoldLower             // PostgreSQL
	FoldUpper             // Oracle
)

// Convention describes how a backend treats identifiers.
type Convention struct {
	Fold  Fold
	Quote rune // quote character emitted by Quoted(): '"' or '`'
}

var (
	Postgres = Convention{Fold: FoldLower, Quote: '"'}
	Oracle   = Convention{Fold: FoldUpper, Quote: '"'}
	MySQL    = Convention{Fold: FoldNone, Quote: '`'}
	SQLite   = Convention{Fold: FoldNone, Quote: '"'}
)

// QuoteName quotes a single, already canonical name part.
func (c Convention) QuoteName(part string) string { return quote(part, c.Quote) }

// Identifier is a normalized, optionally schema-qualified object name.
type Identifier struct {
	Schema string // empty when unqualified
	Object string
	conv   Convention
}

// Parse normalizes raw according to conv.
func Parse(raw string, conv Convention) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, errs.New(errs.ErrKindInvalidInput, "empty object name")
	}

	parts, err := split(raw, conv)
	if err != nil {
		return Identifier{}, err
	}

	switch len(parts) {
	case 1:
		return Identifier{Object: parts[0], conv: conv}, nil
	case 2:
		return Identifier{Schema: parts[0], Object: parts[1], conv: conv}, nil
	default:
		return Identifier{}, errs.New(errs.ErrKindInvalidInput, "object name has more than two parts: "+raw)
	}
}

// MustParse is Parse for compile-time constant names; it panics on error.
func MustParse(raw string, conv Convention) Identifier {
	id, err := Parse(raw, conv)
	if err != nil {
		panic(err)
	}
	return id
}

// Convention returns the convention the identifier was parsed with.
func (id Identifier) Convention() Convention { return id.conv }

// WithObject returns an identifier in the same schema and convention naming
// object, which must already be in canonical catalog form.
func (id Identifier) WithObject(object string) Identifier {
	return Identifier{Schema: id.Schema, Object: object, conv: id.conv}
}

// IsZero reports whether id is the zero Identifier.
func (id Identifier) IsZero() bool { return id.Object == "" }

// Qualified returns the unquoted, dot-separated name.
func (id Identifier) Qualified() string {
	if id.Schema == "" {
		return id.Object
	}
	return id.Schema + "." + id.Object
}

// Key returns the qualified name with every character that is not a letter,
// digit or underscore replaced by '_'.
func (id Identifier) Key() string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, id.Qualified())
}

// Quoted renders every part quoted with the convention's quote character.
func (id Identifier) Quoted() string {
	if id.Schema == "" {
		return quote(id.Object, id.conv.Quote)
	}
	return quote(id.Schema, id.conv.Quote) + "." + quote(id.Object, id.conv.Quote)
}

// String renders the canonical text form, quoting only the parts that would
// not survive Parse unchanged.
func (id Identifier) String() string {
	obj := id.minimal(id.Object)
	if id.Schema == "" {
		return obj
	}
	return id.minimal(id.Schema) + "." + obj
}

func (id Identifier) minimal(part string) string {
	if isPlain(part) && fold(part, id.conv.Fold) == part {
		return part
	}
	return quote(part, id.conv.Quote)
}

// split separates raw on unquoted dots, unquoting and folding each part.
func split(raw string, conv Convention) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		rs    = []rune(raw)
	)

	for i := 0; i < len(rs); {
		open := rs[i]
		closing, quoted := closer(open)
		if !quoted {
			start := i
			for i < len(rs) && rs[i] != '.' {
				if _, q := closer(rs[i]); q {
					return nil, errs.New(errs.ErrKindInvalidInput, "unexpected quote in object name: "+raw)
				}
				i++
			}
			word := strings.TrimSpace(string(rs[start:i]))
			if word == "" {
				return nil, errs.New(errs.ErrKindInvalidInput, "empty part in object name: "+raw)
			}
			cur.WriteString(fold(word, conv.Fold))
		} else {
			i++
			terminated := false
			for i < len(rs) {
				if rs[i] == closing {
					// doubled closing quote is an escaped literal
					if i+1 < len(rs) && rs[i+1] == closing {
						cur.WriteRune(closing)
						i += 2
						continue
					}
					i++
					terminated = true
					break
				}
				cur.WriteRune(rs[i])
				i++
			}
			if !terminated {
				return nil, errs.New(errs.ErrKindInvalidInput, "unterminated quote in object name: "+raw)
			}
			if cur.Len() == 0 {
				return nil, errs.New(errs.ErrKindInvalidInput, "empty part in object name: "+raw)
			}
		}

		parts = append(parts, cur.String())
		cur.Reset()

		if i < len(rs) {
			if rs[i] != '.' {
				return nil, errs.New(errs.ErrKindInvalidInput, "unexpected character after quoted part: "+raw)
			}
			i++
			if i == len(rs) {
				return nil, errs.New(errs.ErrKindInvalidInput, "trailing dot in object name: "+raw)
			}
		}
	}
	return parts, nil
}

func closer(r rune) (rune, bool) {
	switch r {
	case '"':
		return '"', true
	case '`':
		return '`', true
	case '[':
		return ']', true
	}
	return 0, false
}

func fold(s string, f Fold) string {
	switch f {
	case FoldLower:
		return strings.ToLower(s)
	case FoldUpper:
		return strings.ToUpper(s)
	}
	return s
}

func quote(s string, q rune) string {
	if q == 0 {
		q = '"'
	}
	qs := string(q)
	return qs + strings.ReplaceAll(s, qs, qs+qs) + qs
}

// isPlain reports whether s is a bare identifier: a letter or underscore
// followed by letters, digits, underscores or '$'.
func isPlain(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return s != ""
}
