// Package lexer implements a general purpose, C-like lexer that splits
// a text buffer into a stream of typed tokens: numbers, strings,
// character literals, identifiers and punctuation. Punctuation matching
// is table driven and longest-match, so custom punctuation sets can be
// plugged in per lexer instance.
package lexer

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags tune the behavior of a lexer instance.
type Flags uint32

const (
	// NoErrors suppresses error output (errors are still counted and
	// returned to the caller).
	NoErrors Flags = 1 << iota
	// NoWarnings suppresses warning output (warnings are still counted).
	NoWarnings
	// NoFatalErrors marks reported errors as non fatal.
	NoFatalErrors
	// NoStringConcat disables the implicit concatenation of adjacent
	// whitespace-separated strings.
	NoStringConcat
	// NoStringEscapes disables the interpretation of escape sequences
	// inside strings and character literals.
	NoStringEscapes
	// AllowPathNames lets identifiers contain filesystem path
	// characters, such as '/', '\', ':' and '.'.
	AllowPathNames
	// AllowNumberNames lets a token start with digits and continue as
	// an identifier name.
	AllowNumberNames
	// AllowIPAddresses enables scanning of IP addresses with an
	// optional port number as a single token.
	AllowIPAddresses
	// AllowFloatExceptions accepts the printed forms of floating-point
	// exceptions, e.g.: 1.#INF, 1.#IND, 1.#NAN.
	AllowFloatExceptions
	// AllowMultiCharLiterals accepts character literals longer than
	// one character.
	AllowMultiCharLiterals
	// AllowBackslashConcat concatenates adjacent strings separated by
	// a '\', even when NoStringConcat is set.
	AllowBackslashConcat
	// OnlyStrings scans every token as either a string or a name.
	OnlyStrings
)

// Error is a diagnostic produced by the lexer or by a client scanning
// tokens from it, tagged with the source position of the offence.
type Error struct {
	File  string
	Line  uint32
	Msg   string
	Fatal bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%d): error: %s", e.File, e.Line, e.Msg)
}

// DiagFunc receives a fully formatted diagnostic message.
type DiagFunc func(msg string)

func defaultDiag(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// Lexer scans tokens from an in-memory source buffer. The zero value
// is not usable; create instances with NewFromString or NewFromFile.
type Lexer struct {
	src      string
	filename string
	flags    Flags
	punct    *PunctTable

	pos     int
	lastPos int
	wsStart int
	wsEnd   int

	line     uint32
	lastLine uint32

	unread     Token
	haveUnread bool

	onError   DiagFunc
	onWarning DiagFunc
	errCount  uint32
	warnCount uint32
}

// NewFromString creates a lexer over an in-memory source buffer. The
// filename is only used to tag diagnostics.
func NewFromString(src, filename string, flags Flags) *Lexer {
	return &Lexer{
		src:       src,
		filename:  filename,
		flags:     flags,
		punct:     DefaultPunctTable(),
		line:      1,
		lastLine:  1,
		onError:   defaultDiag,
		onWarning: defaultDiag,
	}
}

// NewFromFile creates a lexer over the contents of the given file.
func NewFromFile(filename string, flags Flags) (*Lexer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("lexer: %w", err)
	}
	return NewFromString(string(data), filename, flags), nil
}

func (lx *Lexer) Filename() string        { return lx.filename }
func (lx *Lexer) Flags() Flags            { return lx.flags }
func (lx *Lexer) SetFlags(flags Flags)    { lx.flags = flags }
func (lx *Lexer) LineNumber() uint32      { return lx.line }
func (lx *Lexer) ErrorCount() uint32      { return lx.errCount }
func (lx *Lexer) WarningCount() uint32    { return lx.warnCount }
func (lx *Lexer) IsAtEnd() bool           { return lx.pos >= len(lx.src) }
func (lx *Lexer) PunctTable() *PunctTable { return lx.punct }

// SetPunctTable replaces the punctuation matching table. The table is
// not copied and may be shared with other lexer instances.
func (lx *Lexer) SetPunctTable(t *PunctTable) {
	if t != nil {
		lx.punct = t
	}
}

// SetLineNumber overrides the current line number, e.g. for the #line
// preprocessor directive.
func (lx *Lexer) SetLineNumber(line uint32) {
	lx.line = line
	lx.lastLine = line
}

// SetErrorHandler redirects formatted error messages. A nil handler
// silences output without affecting the error count.
func (lx *Lexer) SetErrorHandler(fn DiagFunc) { lx.onError = fn }

// SetWarningHandler redirects formatted warning messages.
func (lx *Lexer) SetWarningHandler(fn DiagFunc) { lx.onWarning = fn }

// LastWhitespace returns the whitespace skipped before the most
// recently scanned token.
func (lx *Lexer) LastWhitespace() string {
	return lx.src[lx.wsStart:lx.wsEnd]
}

// LastWhitespaceLen returns the byte length of the whitespace skipped
// before the most recently scanned token.
func (lx *Lexer) LastWhitespaceLen() int {
	return lx.wsEnd - lx.wsStart
}

// Errorf registers a lexer error: the error count is incremented and
// the formatted message handed to the error handler, unless the
// NoErrors flag is set. The returned error carries the source position.
func (lx *Lexer) Errorf(format string, args ...interface{}) error {
	lx.errCount++
	err := &Error{
		File:  lx.filename,
		Line:  lx.lastLine,
		Msg:   fmt.Sprintf(format, args...),
		Fatal: lx.flags&NoFatalErrors == 0,
	}
	if lx.flags&NoErrors == 0 && lx.onError != nil {
		lx.onError(err.Error())
	}
	return err
}

// Warnf registers a lexer warning: the warning count is incremented
// and the formatted message handed to the warning handler, unless the
// NoWarnings flag is set.
func (lx *Lexer) Warnf(format string, args ...interface{}) {
	lx.warnCount++
	if lx.flags&NoWarnings == 0 && lx.onWarning != nil {
		msg := fmt.Sprintf(format, args...)
		lx.onWarning(fmt.Sprintf("%s(%d): warning: %s", lx.filename, lx.lastLine, msg))
	}
}

// NextToken scans the next token from the input. Returns io.EOF once
// the input is exhausted.
func (lx *Lexer) NextToken(out *Token) error {
	// Replay a token put back by UngetToken.
	if lx.haveUnread {
		*out = lx.unread
		lx.haveUnread = false
		return nil
	}

	lx.lastPos = lx.pos
	lx.lastLine = lx.line
	out.Clear()

	if !lx.readWhitespace() {
		return io.EOF
	}

	out.SetLine(lx.line)
	out.SetLinesCrossed(lx.line - lx.lastLine)

	c := lx.peek()
	c1 := lx.peekAt(1)

	switch {
	case lx.flags&OnlyStrings != 0:
		if c == '"' || c == '\'' {
			return lx.readString(c, out)
		}
		return lx.readName(out)

	case (c >= '0' && c <= '9') || (c == '.' && c1 >= '0' && c1 <= '9'):
		if err := lx.readNumber(out); err != nil {
			return err
		}
		// A number may continue as an identifier name.
		if lx.flags&AllowNumberNames != 0 && isNameChar(lx.peek()) {
			return lx.readName(out)
		}
		return nil

	case c == '"' || c == '\'':
		return lx.readString(c, out)

	case isNameStart(c):
		return lx.readName(out)

	case lx.flags&AllowPathNames != 0 && (c == '/' || c == '\\' || c == '.'):
		return lx.readName(out)

	default:
		return lx.readPunct(out)
	}
}

// NextTokenOnLine scans the next token only if it is on the current
// line. If the next token starts on a new line the read position is
// left untouched and false is returned.
func (lx *Lexer) NextTokenOnLine(out *Token) bool {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		lx.pos = lx.lastPos
		lx.line = lx.lastLine
		return false
	}
	if tok.LinesCrossed() == 0 {
		*out = tok
		return true
	}
	lx.pos = lx.lastPos
	lx.line = lx.lastLine
	return false
}

// UngetToken puts a token back into the stream. A single token is
// buffered; it is replayed by the next call to NextToken.
func (lx *Lexer) UngetToken(tok *Token) {
	if lx.haveUnread {
		lx.Warnf("UngetToken called twice in a row!")
	}
	lx.unread = *tok
	lx.haveUnread = true
}

// ExpectAnyToken scans the next token, erroring out at end of input.
func (lx *Lexer) ExpectAnyToken(out *Token) error {
	if err := lx.NextToken(out); err != nil {
		if err == io.EOF {
			return lx.Errorf("couldn't read expected token!")
		}
		return err
	}
	return nil
}

// ExpectTokenChar scans the next token and errors out unless it is the
// given single character.
func (lx *Lexer) ExpectTokenChar(c byte) error {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		if err == io.EOF {
			return lx.Errorf("couldn't find expected '%c'!", c)
		}
		return err
	}
	if tok.Len() != 1 || tok.Text()[0] != c {
		return lx.Errorf("expected '%c', found '%s'!", c, tok.Text())
	}
	return nil
}

// ExpectTokenString scans the next token and errors out unless it
// matches the given string.
func (lx *Lexer) ExpectTokenString(str string) error {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		if err == io.EOF {
			return lx.Errorf("couldn't find expected '%s'!", str)
		}
		return err
	}
	if tok.Text() != str {
		return lx.Errorf("expected '%s', found '%s'!", str, tok.Text())
	}
	return nil
}

// ExpectTokenType scans the next token and errors out unless it is of
// the given kind. For number tokens a non-zero flags mask additionally
// requires all of the given subtype flags.
func (lx *Lexer) ExpectTokenType(kind TokenKind, flags TokenFlags, out *Token) error {
	if err := lx.NextToken(out); err != nil {
		if err == io.EOF {
			return lx.Errorf("couldn't read expected token!")
		}
		return err
	}
	if out.Kind() != kind {
		return lx.Errorf("expected a %s, found '%s'!", kind, out.Text())
	}
	if kind == KindNumber && flags != 0 && out.Flags()&flags != flags {
		return lx.Errorf("expected %s, found '%s'!", FlagsString(flags), out.Text())
	}
	return nil
}

// CheckTokenString consumes the next token if it matches the given
// string, otherwise the read position is left untouched.
func (lx *Lexer) CheckTokenString(str string) bool {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return false
	}
	if tok.Text() == str {
		return true
	}
	lx.pos = lx.lastPos
	lx.line = lx.lastLine
	return false
}

// CheckTokenType consumes the next token if it is of the given kind
// and subtype flags, otherwise the read position is left untouched.
func (lx *Lexer) CheckTokenType(kind TokenKind, flags TokenFlags, out *Token) bool {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return false
	}
	if tok.Kind() == kind && tok.Flags()&flags == flags {
		*out = tok
		return true
	}
	lx.pos = lx.lastPos
	lx.line = lx.lastLine
	return false
}

// PeekTokenString tells whether the next token matches the given
// string, without consuming it.
func (lx *Lexer) PeekTokenString(str string) bool {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return false
	}
	lx.pos = lx.lastPos
	lx.line = lx.lastLine
	return tok.Text() == str
}

// PeekTokenType tells whether the next token is of the given kind and
// subtype flags, without consuming it.
func (lx *Lexer) PeekTokenType(kind TokenKind, flags TokenFlags, out *Token) bool {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return false
	}
	lx.pos = lx.lastPos
	lx.line = lx.lastLine
	if tok.Kind() == kind && tok.Flags()&flags == flags {
		*out = tok
		return true
	}
	return false
}

// SkipUntilString consumes tokens until the given string is found.
func (lx *Lexer) SkipUntilString(str string) bool {
	var tok Token
	for lx.NextToken(&tok) == nil {
		if tok.Text() == str {
			return true
		}
	}
	return false
}

// SkipRestOfLine consumes the remaining tokens of the current line.
func (lx *Lexer) SkipRestOfLine() bool {
	var tok Token
	for lx.NextToken(&tok) == nil {
		if tok.LinesCrossed() > 0 {
			lx.pos = lx.lastPos
			lx.line = lx.lastLine
			return true
		}
	}
	return false
}

// SkipBracketedSection skips tokens until matching curly braces close.
// With parseFirstBrace the section is expected to start at the next
// token, otherwise the opening brace is assumed already consumed.
func (lx *Lexer) SkipBracketedSection(parseFirstBrace bool) bool {
	depth := 1
	if parseFirstBrace {
		depth = 0
	}
	var tok Token
	for {
		if lx.NextToken(&tok) != nil {
			return false
		}
		if tok.Kind() == KindPunct {
			switch tok.PunctID() {
			case PunctOpenBrace:
				depth++
			case PunctCloseBrace:
				depth--
				if depth == 0 {
					return true
				}
			}
		}
	}
}

// ScanBracketedSection scans a curly-braced section, starting at the
// next token, and returns its text with braces included. Nested
// brace depths are tracked and newlines between tokens preserved.
func (lx *Lexer) ScanBracketedSection() (string, error) {
	if err := lx.ExpectTokenString("{"); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteByte('{')

	var tok Token
	for depth := 1; depth > 0; {
		if err := lx.NextToken(&tok); err != nil {
			return sb.String(), lx.Errorf("missing closing '}'!")
		}
		for i := uint32(0); i < tok.LinesCrossed(); i++ {
			sb.WriteByte('\n')
		}
		if tok.Kind() == KindPunct {
			switch tok.PunctID() {
			case PunctOpenBrace:
				depth++
			case PunctCloseBrace:
				depth--
			}
		}
		if tok.Kind() == KindString {
			sb.WriteByte('"')
			sb.WriteString(tok.Text())
			sb.WriteByte('"')
		} else {
			sb.WriteString(tok.Text())
		}
		sb.WriteByte(' ')
	}
	return sb.String(), nil
}

// ScanRestOfLine returns the remaining tokens of the current line
// joined by single spaces. The terminating newline is not consumed.
func (lx *Lexer) ScanRestOfLine() string {
	var sb strings.Builder
	var tok Token
	for lx.NextToken(&tok) == nil {
		if tok.LinesCrossed() != 0 {
			lx.pos = lx.lastPos
			lx.line = lx.lastLine
			break
		}
		if sb.Len() != 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text())
	}
	return sb.String()
}

// ScanCompleteLine returns the raw text from the current position up
// to and including the next newline, without tokenizing it. Leading
// whitespace of the following line is left untouched.
func (lx *Lexer) ScanCompleteLine() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.pos++
			break
		}
		lx.pos++
	}
	return lx.src[start:lx.pos]
}

// ScanBool scans a boolean value: either a true|false identifier or a
// number, where zero means false.
func (lx *Lexer) ScanBool() (bool, error) {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return false, lx.Errorf("couldn't read expected boolean!")
	}
	if tok.IsBoolean() || tok.IsNumber() {
		return tok.AsBool(), nil
	}
	return false, lx.Errorf("expected boolean value, found '%s'!", tok.Text())
}

// ScanInt64 scans a signed integer, allowing a leading minus sign.
func (lx *Lexer) ScanInt64() (int64, error) {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return 0, lx.Errorf("couldn't read expected integer!")
	}
	neg := false
	if IsPunctID(&tok, PunctSub) {
		neg = true
		if err := lx.ExpectTokenType(KindNumber, FlagInteger, &tok); err != nil {
			return 0, err
		}
	} else if !tok.IsInteger() {
		return 0, lx.Errorf("expected integer value, found '%s'!", tok.Text())
	}
	v := tok.AsInt64()
	if neg {
		v = -v
	}
	return v, nil
}

// ScanUint64 scans an unsigned integer.
func (lx *Lexer) ScanUint64() (uint64, error) {
	var tok Token
	if err := lx.ExpectTokenType(KindNumber, FlagInteger, &tok); err != nil {
		return 0, err
	}
	return tok.AsUint64(), nil
}

// ScanFloat64 scans a floating-point number, allowing a leading minus
// sign.
func (lx *Lexer) ScanFloat64() (float64, error) {
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		return 0, lx.Errorf("couldn't read expected float!")
	}
	neg := false
	if IsPunctID(&tok, PunctSub) {
		neg = true
		if err := lx.ExpectTokenType(KindNumber, 0, &tok); err != nil {
			return 0, err
		}
	} else if !tok.IsNumber() {
		return 0, lx.Errorf("expected float value, found '%s'!", tok.Text())
	}
	v := tok.AsFloat64()
	if neg {
		v = -v
	}
	return v, nil
}

// ScanString scans a quoted string token and returns its unquoted
// contents.
func (lx *Lexer) ScanString() (string, error) {
	var tok Token
	if err := lx.ExpectTokenType(KindString, 0, &tok); err != nil {
		return "", err
	}
	return tok.Text(), nil
}

// Byte cursor helpers. A zero byte means end of input; the source is
// never expected to contain embedded NUL bytes.

func (lx *Lexer) peek() byte {
	if lx.pos < len(lx.src) {
		return lx.src[lx.pos]
	}
	return 0
}

func (lx *Lexer) peekAt(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}
	return 0
}

func (lx *Lexer) matchAt(n int, str string) bool {
	i := lx.pos + n
	return i+len(str) <= len(lx.src) && lx.src[i:i+len(str)] == str
}

func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// readWhitespace skips blanks and comments, keeping track of crossed
// lines and of the skipped whitespace span. Returns false when the end
// of the input is reached.
func (lx *Lexer) readWhitespace() bool {
	lx.wsStart = lx.pos
	for {
		for {
			c := lx.peek()
			if c > ' ' || c == 0 {
				break
			}
			if c == '\n' {
				lx.line++
			}
			lx.pos++
		}

		c := lx.peek()
		if c == 0 {
			lx.wsEnd = lx.pos
			return false
		}

		if c == '/' && lx.peekAt(1) == '/' { // single-line comment
			lx.pos += 2
			for {
				c = lx.peek()
				if c == 0 {
					lx.wsEnd = lx.pos
					return false
				}
				lx.pos++
				if c == '\n' {
					lx.line++
					break
				}
			}
			continue
		}

		if c == '/' && lx.peekAt(1) == '*' { // multi-line comment
			lx.pos += 2
			for {
				c = lx.peek()
				if c == 0 {
					lx.wsEnd = lx.pos
					return false
				}
				if c == '\n' {
					lx.line++
				} else if c == '/' && lx.peekAt(1) == '*' {
					lx.Warnf("nested C-style, multi-line comment!")
				} else if c == '*' && lx.peekAt(1) == '/' {
					lx.pos += 2
					break
				}
				lx.pos++
			}
			continue
		}

		lx.wsEnd = lx.pos
		return true
	}
}

// readEscapeChar decodes a backslash escape sequence, leaving the read
// position just past it.
func (lx *Lexer) readEscapeChar() (byte, error) {
	lx.pos++ // step over the backslash
	c := lx.peek()

	var ch byte
	switch c {
	case '\\':
		ch = '\\'
	case 'n':
		ch = '\n'
	case 'r':
		ch = '\r'
	case 't':
		ch = '\t'
	case 'v':
		ch = '\v'
	case 'b':
		ch = '\b'
	case 'f':
		ch = '\f'
	case 'a':
		ch = '\a'
	case '\'':
		ch = '\''
	case '"':
		ch = '"'
	case '?':
		ch = '?'
	case 'x':
		lx.pos++ // step over the 'x'
		val := 0
		for {
			c = lx.peek()
			var digit int
			switch {
			case c >= '0' && c <= '9':
				digit = int(c - '0')
			case c >= 'A' && c <= 'Z':
				digit = int(c-'A') + 10
			case c >= 'a' && c <= 'z':
				digit = int(c-'a') + 10
			default:
				if val > 0xFF {
					lx.Warnf("too large value in escape character!")
					val = 0xFF
				}
				return byte(val), nil
			}
			val = (val << 4) + digit
			lx.pos++
		}
	default:
		if c < '0' || c > '9' {
			return 0, lx.Errorf("unknown escape char!")
		}
		val := 0
		for c = lx.peek(); c >= '0' && c <= '9'; c = lx.peek() {
			val = val*10 + int(c-'0')
			lx.pos++
		}
		if val > 0xFF {
			lx.Warnf("too large value in escape character!")
			val = 0xFF
		}
		return byte(val), nil
	}

	lx.pos++ // step over the escape character
	return ch, nil
}

// readString scans a quoted string or character literal. The leading
// and trailing quotes are not stored in the token text.
func (lx *Lexer) readString(quote byte, out *Token) error {
	if quote == '"' {
		out.SetKind(KindString)
	} else {
		out.SetKind(KindLiteral)
	}
	lx.pos++ // step over the leading quote

	var buf []byte
	for {
		c := lx.peek()

		if c == '\\' && lx.flags&NoStringEscapes == 0 {
			ch, err := lx.readEscapeChar()
			if err != nil {
				return err
			}
			buf = append(buf, ch)
			continue
		}

		if c == quote {
			lx.pos++ // step over the trailing quote

			// Concatenate with a following string on the same or next
			// line, optionally requiring a '\' between the two.
			if lx.flags&NoStringConcat == 0 ||
				(lx.flags&AllowBackslashConcat != 0 && quote == '"') {
				tmpPos, tmpLine := lx.pos, lx.line
				if !lx.readWhitespace() {
					lx.pos, lx.line = tmpPos, tmpLine
				}
				if lx.flags&NoStringConcat != 0 {
					if lx.peek() != '\\' {
						// Not a continuation; leave the whitespace for
						// the next token to account for.
						lx.pos, lx.line = tmpPos, tmpLine
						break
					}
					lx.pos++ // step over the '\'
					if !lx.readWhitespace() || lx.peek() != quote {
						lx.pos, lx.line = tmpPos, tmpLine
						return lx.Errorf("expecting string after '\\' terminated line!")
					}
				}
				if lx.peek() != quote {
					lx.pos, lx.line = tmpPos, tmpLine
					break
				}
				lx.pos++ // step over the next leading quote
				continue
			}
			break
		}

		if c == 0 {
			return lx.Errorf("missing trailing quote!")
		}
		if c == '\n' {
			return lx.Errorf("newline inside string!")
		}

		buf = append(buf, c)
		lx.pos++
	}

	out.SetText(string(buf))

	if quote == '\'' && lx.flags&AllowMultiCharLiterals == 0 && out.Len() != 1 {
		return lx.Errorf("literal is not one character long!")
	}
	return nil
}

// readName scans an identifier name, appending to whatever text the
// token already carries.
func (lx *Lexer) readName(out *Token) error {
	out.SetKind(KindIdent)

	validChar := func(c byte) bool {
		if isNameChar(c) {
			return true
		}
		// When treating all tokens as strings '-' is not a separate token.
		if lx.flags&OnlyStrings != 0 && c == '-' {
			return true
		}
		if lx.flags&AllowPathNames != 0 &&
			(c == '/' || c == '\\' || c == ':' || c == '.') {
			return true
		}
		return false
	}

	for {
		out.AppendByte(lx.peek())
		lx.pos++
		if !validChar(lx.peek()) {
			break
		}
	}

	// Names reserved for the boolean constants:
	if out.Text() == "true" || out.Text() == "false" {
		out.SetFlags(FlagBoolean)
	} else {
		out.SetFlags(0)
	}
	return nil
}

// readNumber scans an integer, floating-point number or IP address.
// Type suffixes (u, l, f) are consumed but not stored in the text.
func (lx *Lexer) readNumber(out *Token) error {
	out.SetKind(KindNumber)

	var flags TokenFlags
	c1 := lx.peek()
	c2 := lx.peekAt(1)

	if c1 == '0' && c2 != '.' { // integer
		switch {
		case c2 == 'x' || c2 == 'X': // hexadecimal
			out.AppendByte(c1)
			out.AppendByte(c2)
			lx.pos += 2
			for {
				c := lx.peek()
				if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
					out.AppendByte(c)
					lx.pos++
				} else {
					break
				}
			}
			flags = FlagHexadecimal | FlagInteger

		case c2 == 'b' || c2 == 'B': // binary
			out.AppendByte(c1)
			out.AppendByte(c2)
			lx.pos += 2
			for {
				c := lx.peek()
				if c == '0' || c == '1' {
					out.AppendByte(c)
					lx.pos++
				} else {
					break
				}
			}
			flags = FlagBinary | FlagInteger

		default: // octal
			out.AppendByte(c1)
			lx.pos++
			for {
				c := lx.peek()
				if c >= '0' && c <= '7' {
					out.AppendByte(c)
					lx.pos++
				} else {
					break
				}
			}
			flags = FlagOctal | FlagInteger
		}
	} else { // decimal integer, floating-point number or IP address
		dots := 0
		for {
			c := lx.peek()
			if c >= '0' && c <= '9' {
				// decimal digit
			} else if c == '.' {
				dots++
			} else {
				break
			}
			out.AppendByte(c)
			lx.pos++
		}

		c := lx.peek()
		if c == 'e' && dots == 0 {
			dots = 1 // scientific notation without a decimal point
		}

		switch {
		case dots == 1: // floating point
			flags = FlagFloat
			if c == 'e' { // exponent
				out.AppendByte(c)
				lx.pos++
				c = lx.peek()
				if c == '-' || c == '+' {
					out.AppendByte(c)
					lx.pos++
				}
				for {
					c = lx.peek()
					if c >= '0' && c <= '9' {
						out.AppendByte(c)
						lx.pos++
					} else {
						break
					}
				}
			} else if c == '#' { // 1.#INF, 1.#IND, 1.#NAN, ...
				span := 4
				var exc TokenFlags
				switch {
				case lx.matchAt(1, "INF"):
					exc = FlagInfinite
				case lx.matchAt(1, "IND"):
					exc = FlagIndefinite
				case lx.matchAt(1, "NAN"):
					exc = FlagNaN
				case lx.matchAt(1, "QNAN"):
					exc = FlagNaN
					span = 5
				case lx.matchAt(1, "SNAN"):
					exc = FlagNaN
					span = 5
				}
				if exc != 0 {
					for i := 0; i < span; i++ {
						out.AppendByte(lx.peek())
						lx.pos++
					}
					for {
						c = lx.peek()
						if c >= '0' && c <= '9' {
							out.AppendByte(c)
							lx.pos++
						} else {
							break
						}
					}
					if lx.flags&AllowFloatExceptions == 0 {
						return lx.Errorf("parsed '%s'", out.Text())
					}
					flags |= exc
				}
			}

		case dots > 1: // IP address
			if lx.flags&AllowIPAddresses == 0 {
				return lx.Errorf("more than one dot in number!")
			}
			if dots != 3 {
				return lx.Errorf("IP address should have three dots!")
			}
			flags = FlagIPAddress
			if c == ':' { // port number
				out.AppendByte(c)
				lx.pos++
				for {
					c = lx.peek()
					if c >= '0' && c <= '9' {
						out.AppendByte(c)
						lx.pos++
					} else {
						break
					}
				}
				flags |= FlagIPPort
			}

		default: // decimal integer
			flags = FlagDecimal | FlagInteger
		}
	}

	if flags&FlagFloat != 0 { // precision suffix
		c := lx.peek()
		switch {
		case c == 'f' || c == 'F':
			flags |= FlagSinglePrec
			lx.pos++
		case c == 'l' || c == 'L':
			flags |= FlagExtendedPrec
			lx.pos++
		default:
			flags |= FlagDoublePrec
		}
	} else if flags&FlagInteger != 0 { // signedness suffix
		for i := 0; i < 2; i++ {
			c := lx.peek()
			if c == 'u' || c == 'U' {
				flags |= FlagUnsignedInt
			} else if c != 'l' && c != 'L' { // long suffix is ignored
				break
			}
			lx.pos++
		}
		if flags&FlagUnsignedInt == 0 {
			flags |= FlagSignedInt
		}
	}

	out.SetFlags(flags)
	return nil
}

// readPunct matches the longest punctuation at the read position.
func (lx *Lexer) readPunct(out *Token) error {
	def, ok := lx.punct.match(lx.src[lx.pos:])
	if !ok {
		return lx.Errorf("unknown punctuation character: '%c'!", lx.peek())
	}
	lx.pos += len(def.Str)

	out.SetText(def.Str)
	out.SetKind(KindPunct)
	// Punctuation tokens store their PunctID in the flags.
	out.SetFlags(TokenFlags(def.ID))
	return nil
}

// TokensText joins the text of a slice of tokens with single spaces.
func TokensText(toks []Token) string {
	var sb strings.Builder
	for i := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(toks[i].Text())
	}
	return sb.String()
}
