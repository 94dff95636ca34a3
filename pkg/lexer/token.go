package lexer

import (
	"math"
	"strings"
)

// TokenKind is the main token category.
type TokenKind uint8

const (
	KindNone TokenKind = iota
	KindNumber
	KindString
	KindLiteral
	KindIdent
	KindPunct
)

func (k TokenKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindLiteral:
		return "literal"
	case KindIdent:
		return "identifier"
	case KindPunct:
		return "punctuation"
	default:
		return "(unknown)"
	}
}

// TokenFlags describe the subtype of a number or identifier token. For
// punctuation tokens the flags field is overloaded to store the PunctID.
type TokenFlags uint32

const (
	// Integer types:
	FlagInteger TokenFlags = 1 << iota
	FlagSignedInt
	FlagUnsignedInt
	// Integer representations:
	FlagBinary
	FlagOctal
	FlagDecimal
	FlagHexadecimal
	// Floating-point types:
	FlagFloat
	FlagSinglePrec
	FlagDoublePrec
	FlagExtendedPrec
	// Floating-point exceptions:
	FlagInfinite
	FlagIndefinite
	FlagNaN
	// IP address and port number:
	FlagIPAddress
	FlagIPPort
	// true|false literals:
	FlagBoolean
)

// FlagsString builds a printable description of a set of token flags.
func FlagsString(flags TokenFlags) string {
	var sb strings.Builder
	add := func(f TokenFlags, name string) {
		if flags&f != 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(name)
		}
	}
	add(FlagInfinite, "infinite")
	add(FlagIndefinite, "indefinite")
	add(FlagNaN, "nan")
	add(FlagBinary, "binary")
	add(FlagOctal, "octal")
	add(FlagDecimal, "decimal")
	add(FlagHexadecimal, "hexadecimal")
	add(FlagSignedInt, "signed")
	add(FlagUnsignedInt, "unsigned")
	add(FlagSinglePrec, "single-precision")
	add(FlagDoublePrec, "double-precision")
	add(FlagExtendedPrec, "extended-precision")
	add(FlagInteger, "integer")
	add(FlagFloat, "float")
	add(FlagBoolean, "boolean")
	add(FlagIPAddress, "IP address")
	add(FlagIPPort, "IP port")
	return sb.String()
}

// Token is the basic output of the lexer: a string plus possibly a
// numerical value scanned from it.
//
// Numerical values and IP addresses are only decoded from the token
// text when requested through one of the As* methods. Once decoded the
// value is cached, so the conversion runs at most once per token.
type Token struct {
	text         string
	flags        TokenFlags
	line         uint32
	linesCrossed uint32
	kind         TokenKind
	valuesValid  bool
	u64Value     uint64
	f64Value     float64
}

// Text returns the raw token text.
func (t *Token) Text() string { return t.text }

// Len returns the length of the token text in bytes.
func (t *Token) Len() int { return len(t.text) }

func (t *Token) Kind() TokenKind      { return t.kind }
func (t *Token) Flags() TokenFlags    { return t.flags }
func (t *Token) Line() uint32         { return t.line }
func (t *Token) LinesCrossed() uint32 { return t.linesCrossed }

// PunctID returns the punctuation tag of a punctuation token.
func (t *Token) PunctID() PunctID {
	if t.kind != KindPunct {
		return PunctNone
	}
	return PunctID(t.flags)
}

func (t *Token) IsNumber() bool  { return t.kind == KindNumber }
func (t *Token) IsString() bool  { return t.kind == KindString }
func (t *Token) IsLiteral() bool { return t.kind == KindLiteral }
func (t *Token) IsIdent() bool   { return t.kind == KindIdent }
func (t *Token) IsPunct() bool   { return t.kind == KindPunct }

func (t *Token) IsInteger() bool { return t.kind == KindNumber && t.flags&FlagInteger != 0 }
func (t *Token) IsFloat() bool   { return t.kind == KindNumber && t.flags&FlagFloat != 0 }
func (t *Token) IsBoolean() bool { return t.kind == KindIdent && t.flags&FlagBoolean != 0 }

// IsPunctID checks whether the token is the given punctuation.
func IsPunctID(t *Token, id PunctID) bool {
	return t.kind == KindPunct && PunctID(t.flags) == id
}

// Mutating the text, kind or flags invalidates the cached values.

func (t *Token) SetText(text string) {
	t.text = text
	t.valuesValid = false
}

func (t *Token) SetFlags(flags TokenFlags) {
	t.flags = flags
	t.valuesValid = false
}

func (t *Token) SetKind(kind TokenKind) {
	t.kind = kind
	t.valuesValid = false
}

func (t *Token) SetLine(line uint32)      { t.line = line }
func (t *Token) SetLinesCrossed(n uint32) { t.linesCrossed = n }

// AppendByte grows the token text by one character.
func (t *Token) AppendByte(c byte) {
	if c != 0 {
		t.text += string(c)
		t.valuesValid = false
	}
}

// AppendString grows the token text with the given string.
func (t *Token) AppendString(s string) {
	if s != "" {
		t.text += s
		t.valuesValid = false
	}
}

// Clear resets the token to its zero state.
func (t *Token) Clear() {
	*t = Token{}
}

func (t *Token) AsBool() bool { return t.valueU64() != 0 }

func (t *Token) AsInt64() int64   { return int64(t.valueU64()) }
func (t *Token) AsUint64() uint64 { return t.valueU64() }

func (t *Token) AsInt32() int32   { return int32(t.valueU64()) }
func (t *Token) AsUint32() uint32 { return uint32(t.valueU64()) }

func (t *Token) AsFloat64() float64 { return t.valueF64() }
func (t *Token) AsFloat32() float32 { return float32(t.valueF64()) }

// IPOctets unpacks the four octets of an IP-address token.
func (t *Token) IPOctets() [4]byte {
	v := uint32(t.valueU64())
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// IPPort unpacks the port number of an IP-address token, zero if none.
func (t *Token) IPPort() uint16 {
	return uint16(t.valueU64() >> 32)
}

func (t *Token) valueU64() uint64 {
	if !t.IsNumber() && !t.IsBoolean() {
		return 0
	}
	if !t.valuesValid {
		t.updateCachedValues()
	}
	return t.u64Value
}

func (t *Token) valueF64() float64 {
	if !t.IsNumber() && !t.IsBoolean() {
		return 0.0
	}
	if !t.valuesValid {
		t.updateCachedValues()
	}
	return t.f64Value
}

func (t *Token) updateCachedValues() {
	s := t.text
	var u64 uint64
	var f64 float64

	switch {
	case t.flags&FlagFloat != 0:
		f64 = parseFloatText(s, t.flags)
		u64 = uint64(f64)

	case t.flags&FlagDecimal != 0:
		for i := 0; i < len(s); i++ {
			u64 = u64*10 + uint64(s[i]-'0')
		}
		f64 = float64(u64)

	case t.flags&FlagOctal != 0:
		for i := 1; i < len(s); i++ { // step over the leading 0
			u64 = u64<<3 + uint64(s[i]-'0')
		}
		f64 = float64(u64)

	case t.flags&FlagHexadecimal != 0:
		for i := 2; i < len(s); i++ { // step over the leading 0x
			c := s[i]
			u64 <<= 4
			switch {
			case c >= 'a' && c <= 'f':
				u64 += uint64(c-'a') + 10
			case c >= 'A' && c <= 'F':
				u64 += uint64(c-'A') + 10
			default:
				u64 += uint64(c - '0')
			}
		}
		f64 = float64(u64)

	case t.flags&FlagBinary != 0:
		for i := 2; i < len(s); i++ { // step over the leading 0b
			u64 = u64<<1 + uint64(s[i]-'0')
		}
		f64 = float64(u64)

	case t.flags&FlagIPAddress != 0:
		var ip [5]uint32 // 4 octets + optional port number
		n := 0
		for i := 0; i < len(s); i++ {
			if s[i] == '.' || s[i] == ':' {
				n++
				continue
			}
			ip[n] = ip[n]*10 + uint32(s[i]-'0')
		}
		addr := uint64(ip[0])<<24 | uint64(ip[1])<<16 | uint64(ip[2])<<8 | uint64(ip[3])
		u64 = uint64(ip[4])<<32 | addr
		f64 = float64(u64)

	case t.flags&FlagBoolean != 0:
		if s == "true" {
			u64 = 1
		}
		f64 = float64(u64)
	}

	t.u64Value = u64
	t.f64Value = f64
	t.valuesValid = true
}

func parseFloatText(s string, flags TokenFlags) float64 {
	// Floating-point exceptions map to the IEEE-754 special values.
	if flags&(FlagInfinite|FlagIndefinite|FlagNaN) != 0 {
		switch {
		case flags&FlagInfinite != 0: // 1.#INF
			return float64(math.Float32frombits(0x7F800000))
		case flags&FlagIndefinite != 0: // 1.#IND
			return float64(math.Float32frombits(0xFFC00000))
		default: // 1.#NAN
			return float64(math.Float32frombits(0x7FC00000))
		}
	}

	var val float64
	i := 0
	for i < len(s) && s[i] != '.' && s[i] != 'e' {
		val = val*10.0 + float64(s[i]-'0')
		i++
	}

	if i < len(s) && s[i] == '.' {
		i++
		for m := 0.1; i < len(s) && s[i] != 'e'; i++ {
			val += float64(s[i]-'0') * m
			m *= 0.1
		}
	}

	if i < len(s) && s[i] == 'e' {
		i++
		div := false
		if i < len(s) && (s[i] == '-' || s[i] == '+') {
			div = s[i] == '-'
			i++
		}
		pow := 0
		for ; i < len(s); i++ {
			pow = pow*10 + int(s[i]-'0')
		}
		m := 1.0
		for j := 0; j < pow; j++ {
			m *= 10.0
		}
		if div {
			val /= m
		} else {
			val *= m
		}
	}
	return val
}

// Stringize converts the token into a quoted string token the way the
// preprocessor # operator does, re-escaping an embedded leading quote.
func (t *Token) Stringize() Token {
	out := Token{
		kind:         KindString,
		line:         t.line,
		linesCrossed: t.linesCrossed,
	}

	if strings.HasPrefix(t.text, "\"") {
		b := make([]byte, 0, len(t.text)+4)
		b = append(b, '"', '\\')
		b = append(b, t.text...)
		b = []byte(strings.TrimRight(string(b), trimCutset))
		b[len(b)-1] = '\\'
		b = append(b, '"', '"')
		out.text = string(b)
	} else {
		out.text = "\"" + strings.TrimRight(t.text, trimCutset) + "\""
	}
	return out
}

// Trimmed returns a copy of the token with surrounding whitespace
// removed from its text.
func (t *Token) Trimmed() Token {
	out := *t
	out.SetText(strings.Trim(out.text, trimCutset))
	return out
}

const trimCutset = " \t\r\n\v\f"

// TrimString removes leading and trailing whitespace from s.
func TrimString(s string) string {
	return strings.Trim(s, trimCutset)
}
