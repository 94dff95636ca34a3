package lexer

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scanAll(t *testing.T, lx *Lexer) []Token {
	t.Helper()
	var toks []Token
	for {
		var tok Token
		err := lx.NextToken(&tok)
		if err == io.EOF {
			return toks
		}
		if err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
		toks = append(toks, tok)
	}
}

func TestNextTokenKinds(t *testing.T) {
	input := `count = 42 + other; // trailing comment
"some string" 'x' 3.5`

	tests := []struct {
		expectedKind TokenKind
		expectedText string
	}{
		{KindIdent, "count"},
		{KindPunct, "="},
		{KindNumber, "42"},
		{KindPunct, "+"},
		{KindIdent, "other"},
		{KindPunct, ";"},
		{KindString, "some string"},
		{KindLiteral, "x"},
		{KindNumber, "3.5"},
	}

	lx := NewFromString(input, "test", 0)
	for i, tt := range tests {
		var tok Token
		if err := lx.NextToken(&tok); err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if tok.Kind() != tt.expectedKind {
			t.Fatalf("tests[%d] - token kind wrong. expected=%q, got=%q",
				i, tt.expectedKind, tok.Kind())
		}
		if tok.Text() != tt.expectedText {
			t.Fatalf("tests[%d] - token text wrong. expected=%q, got=%q",
				i, tt.expectedText, tok.Text())
		}
	}

	var tok Token
	if err := lx.NextToken(&tok); err != io.EOF {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
}

func TestPunctuationLongestMatch(t *testing.T) {
	input := ">>= >> > <<= << <= ... .* . :: : ## # && & || |"
	expected := []string{
		">>=", ">>", ">", "<<=", "<<", "<=",
		"...", ".*", ".", "::", ":", "##", "#", "&&", "&", "||", "|",
	}

	lx := NewFromString(input, "test", 0)
	var got []string
	for _, tok := range scanAll(t, lx) {
		if tok.Kind() != KindPunct {
			t.Fatalf("expected punctuation, got %q (%s)", tok.Text(), tok.Kind())
		}
		got = append(got, tok.Text())
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("punctuation mismatch (-want +got):\n%s", diff)
	}
}

func TestPunctuationIDs(t *testing.T) {
	tests := []struct {
		input      string
		expectedID PunctID
	}{
		{"=", PunctAssign},
		{"==", PunctLogicEq},
		{">>=", PunctRShiftAssign},
		{"->", PunctArrow},
		{"...", PunctEllipsis},
		{"#", PunctPreproc},
		{"##", PunctPreprocMerge},
		{"$", PunctDollar},
	}

	for i, tt := range tests {
		lx := NewFromString(tt.input, "test", 0)
		var tok Token
		if err := lx.NextToken(&tok); err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if tok.PunctID() != tt.expectedID {
			t.Fatalf("tests[%d] - punct id wrong. expected=%d, got=%d",
				i, tt.expectedID, tok.PunctID())
		}
		if !IsPunctID(&tok, tt.expectedID) {
			t.Fatalf("tests[%d] - IsPunctID(%d) = false", i, tt.expectedID)
		}
	}
}

func TestCustomPunctTable(t *testing.T) {
	defs := []PunctDef{
		{"", PunctNone},
		{"<-", PunctArrow},
		{"<", PunctLogicLess},
		{"$", PunctDollar},
	}
	lx := NewFromString("<- < $", "test", 0)
	lx.SetPunctTable(NewPunctTable(defs))

	expected := []string{"<-", "<", "$"}
	toks := scanAll(t, lx)
	if len(toks) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(toks))
	}
	for i, tok := range toks {
		if tok.Text() != expected[i] {
			t.Fatalf("tokens[%d] - text wrong. expected=%q, got=%q",
				i, expected[i], tok.Text())
		}
	}

	// '+' is not part of the custom set.
	lx = NewFromString("+", "test", NoErrors)
	lx.SetPunctTable(NewPunctTable(defs))
	var tok Token
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an error for unknown punctuation, got token %q", tok.Text())
	}
}

func TestNumberScanning(t *testing.T) {
	tests := []struct {
		input         string
		expectedFlags TokenFlags
		expectedU64   uint64
	}{
		{"0", FlagOctal | FlagInteger | FlagSignedInt, 0},
		{"42", FlagDecimal | FlagInteger | FlagSignedInt, 42},
		{"42u", FlagDecimal | FlagInteger | FlagUnsignedInt, 42},
		{"42ul", FlagDecimal | FlagInteger | FlagUnsignedInt, 42},
		{"42l", FlagDecimal | FlagInteger | FlagSignedInt, 42},
		{"0xDEADBEEF", FlagHexadecimal | FlagInteger | FlagSignedInt, 0xDEADBEEF},
		{"0xff", FlagHexadecimal | FlagInteger | FlagSignedInt, 0xFF},
		{"0b1010", FlagBinary | FlagInteger | FlagSignedInt, 10},
		{"0755", FlagOctal | FlagInteger | FlagSignedInt, 0o755},
	}

	for i, tt := range tests {
		lx := NewFromString(tt.input, "test", 0)
		var tok Token
		if err := lx.NextToken(&tok); err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if tok.Kind() != KindNumber {
			t.Fatalf("tests[%d] - expected a number, got %s", i, tok.Kind())
		}
		if tok.Flags() != tt.expectedFlags {
			t.Fatalf("tests[%d] - flags wrong. expected=%s, got=%s",
				i, FlagsString(tt.expectedFlags), FlagsString(tok.Flags()))
		}
		if tok.AsUint64() != tt.expectedU64 {
			t.Fatalf("tests[%d] - value wrong. expected=%d, got=%d",
				i, tt.expectedU64, tok.AsUint64())
		}
	}
}

func TestFloatScanning(t *testing.T) {
	const eps = 1e-4

	tests := []struct {
		input         string
		expectedFlags TokenFlags
		expectedF64   float64
	}{
		{"3.14159", FlagFloat | FlagDoublePrec, 3.14159},
		{".5", FlagFloat | FlagDoublePrec, 0.5},
		{"2.5e3", FlagFloat | FlagDoublePrec, 2500.0},
		{"1e-5", FlagFloat | FlagDoublePrec, 0.00001},
		{"1.5e+2", FlagFloat | FlagDoublePrec, 150.0},
		{"1.0f", FlagFloat | FlagSinglePrec, 1.0},
		{"1.0l", FlagFloat | FlagExtendedPrec, 1.0},
	}

	for i, tt := range tests {
		lx := NewFromString(tt.input, "test", 0)
		var tok Token
		if err := lx.NextToken(&tok); err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if tok.Flags() != tt.expectedFlags {
			t.Fatalf("tests[%d] - flags wrong. expected=%s, got=%s",
				i, FlagsString(tt.expectedFlags), FlagsString(tok.Flags()))
		}
		if math.Abs(tok.AsFloat64()-tt.expectedF64) > eps {
			t.Fatalf("tests[%d] - value wrong. expected=%f, got=%f",
				i, tt.expectedF64, tok.AsFloat64())
		}
	}
}

func TestFloatExceptions(t *testing.T) {
	lx := NewFromString("1.#INF", "test", AllowFloatExceptions)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Flags()&FlagInfinite == 0 {
		t.Fatalf("expected the infinite flag, got %s", FlagsString(tok.Flags()))
	}
	if !math.IsInf(tok.AsFloat64(), 1) {
		t.Fatalf("expected +Inf, got %f", tok.AsFloat64())
	}

	lx = NewFromString("1.#NAN", "test", AllowFloatExceptions)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(tok.AsFloat64()) {
		t.Fatalf("expected NaN, got %f", tok.AsFloat64())
	}

	// Without the flag a float exception is a scan error.
	lx = NewFromString("1.#INF", "test", NoErrors)
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an error scanning 1.#INF without AllowFloatExceptions")
	}
}

func TestIPAddressScanning(t *testing.T) {
	lx := NewFromString("172.16.254.1:8080", "test", AllowIPAddresses)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "172.16.254.1:8080" {
		t.Fatalf("expected a single IP token, got %q", tok.Text())
	}
	if tok.Flags()&FlagIPAddress == 0 || tok.Flags()&FlagIPPort == 0 {
		t.Fatalf("IP flags wrong, got %s", FlagsString(tok.Flags()))
	}
	if octets := tok.IPOctets(); octets != [4]byte{172, 16, 254, 1} {
		t.Fatalf("octets wrong, got %v", octets)
	}
	if tok.IPPort() != 8080 {
		t.Fatalf("port wrong, got %d", tok.IPPort())
	}

	// No port number:
	lx = NewFromString("127.0.0.1", "test", AllowIPAddresses)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Flags()&FlagIPPort != 0 {
		t.Fatalf("unexpected port flag, got %s", FlagsString(tok.Flags()))
	}
	if tok.IPPort() != 0 {
		t.Fatalf("port wrong, got %d", tok.IPPort())
	}

	// Without the flag multiple dots are an error.
	lx = NewFromString("1.2.3.4", "test", NoErrors)
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an error scanning an IP without AllowIPAddresses")
	}
}

func TestStringScanning(t *testing.T) {
	// Adjacent strings concatenate by default.
	lx := NewFromString(`"foo" "bar"`, "test", 0)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "foobar" {
		t.Fatalf("concatenation wrong. expected=%q, got=%q", "foobar", tok.Text())
	}

	// NoStringConcat keeps them separate.
	lx = NewFromString(`"foo" "bar"`, "test", NoStringConcat)
	toks := scanAll(t, lx)
	if len(toks) != 2 || toks[0].Text() != "foo" || toks[1].Text() != "bar" {
		t.Fatalf("expected two separate strings, got %v", toks)
	}

	// Escape sequences:
	lx = NewFromString(`"a\tb\x41\101"`, "test", 0)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "a\tbAe" {
		t.Fatalf("escapes wrong. expected=%q, got=%q", "a\tbAe", tok.Text())
	}

	// NoStringEscapes keeps the raw text.
	lx = NewFromString(`"a\tb"`, "test", NoStringEscapes|NoStringConcat)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != `a\tb` {
		t.Fatalf("raw text wrong. expected=%q, got=%q", `a\tb`, tok.Text())
	}

	// Missing trailing quote:
	lx = NewFromString(`"unterminated`, "test", NoErrors)
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected a missing trailing quote error")
	}

	// Newline inside string:
	lx = NewFromString("\"broken\nstring\"", "test", NoErrors)
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected a newline inside string error")
	}
}

func TestBackslashStringConcat(t *testing.T) {
	// With NoStringConcat, a '\' between two strings still joins them.
	lx := NewFromString("\"foo\" \\\n \"bar\"", "test", NoStringConcat|AllowBackslashConcat)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "foobar" {
		t.Fatalf("concatenation wrong. expected=%q, got=%q", "foobar", tok.Text())
	}

	// '\' with nothing after it is an error.
	lx = NewFromString("\"foo\" \\\n 42", "test", NoStringConcat|AllowBackslashConcat|NoErrors)
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an error for '\\' without a following string")
	}

	// When no '\' follows, the whitespace after the string must be left
	// in place so the next token still sees the line break.
	lx = NewFromString("\"foo\"\nbar", "test", NoStringConcat|AllowBackslashConcat)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "foo" {
		t.Fatalf("string wrong. expected=%q, got=%q", "foo", tok.Text())
	}
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "bar" {
		t.Fatalf("ident wrong. expected=%q, got=%q", "bar", tok.Text())
	}
	if tok.LinesCrossed() != 1 {
		t.Fatalf("lines crossed wrong. expected=1, got=%d", tok.LinesCrossed())
	}
}

func TestCharLiterals(t *testing.T) {
	lx := NewFromString("'ab'", "test", NoErrors)
	var tok Token
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected a multi-char literal error")
	}

	lx = NewFromString("'ab'", "test", AllowMultiCharLiterals)
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind() != KindLiteral || tok.Text() != "ab" {
		t.Fatalf("literal wrong. got kind=%s text=%q", tok.Kind(), tok.Text())
	}
}

func TestComments(t *testing.T) {
	input := `first // line comment
/* block
   comment */ second`

	lx := NewFromString(input, "test", 0)
	toks := scanAll(t, lx)
	if len(toks) != 2 {
		t.Fatalf("token count wrong. expected=2, got=%d", len(toks))
	}
	if toks[0].Text() != "first" || toks[1].Text() != "second" {
		t.Fatalf("tokens wrong, got %q and %q", toks[0].Text(), toks[1].Text())
	}
	if toks[1].Line() != 3 {
		t.Fatalf("line wrong. expected=3, got=%d", toks[1].Line())
	}
	if toks[1].LinesCrossed() != 2 {
		t.Fatalf("lines crossed wrong. expected=2, got=%d", toks[1].LinesCrossed())
	}
}

func TestUngetToken(t *testing.T) {
	lx := NewFromString("one two", "test", 0)

	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lx.UngetToken(&tok)

	// The very next read replays the buffered token once.
	var again Token
	if err := lx.NextToken(&again); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Text() != "one" {
		t.Fatalf("replayed token wrong. expected=%q, got=%q", "one", again.Text())
	}

	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "two" {
		t.Fatalf("follow-up token wrong. expected=%q, got=%q", "two", tok.Text())
	}

	// A second unget in a row warns but keeps the newest token.
	var warned bool
	lx = NewFromString("a b c", "test", 0)
	lx.SetWarningHandler(func(string) { warned = true })

	var first, second Token
	lx.NextToken(&first)
	lx.NextToken(&second)
	lx.UngetToken(&first)
	lx.UngetToken(&second)
	if !warned {
		t.Fatalf("expected a warning for UngetToken called twice")
	}
	lx.NextToken(&tok)
	if tok.Text() != "b" {
		t.Fatalf("expected the newest ungot token, got %q", tok.Text())
	}
}

func TestNextTokenOnLine(t *testing.T) {
	lx := NewFromString("a b\nc", "test", 0)

	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lx.NextTokenOnLine(&tok) || tok.Text() != "b" {
		t.Fatalf("expected %q on same line, got %q", "b", tok.Text())
	}

	// 'c' is on the next line; position must be left untouched.
	if lx.NextTokenOnLine(&tok) {
		t.Fatalf("expected no more tokens on the line, got %q", tok.Text())
	}
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Text() != "c" {
		t.Fatalf("expected %q after line end, got %q", "c", tok.Text())
	}
}

func TestExpectCheckPeek(t *testing.T) {
	lx := NewFromString("name = 10", "test", NoErrors)

	var tok Token
	if err := lx.ExpectTokenType(KindIdent, 0, &tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lx.PeekTokenString("=") {
		t.Fatalf("PeekTokenString(=) = false")
	}
	if !lx.CheckTokenString("=") {
		t.Fatalf("CheckTokenString(=) = false")
	}
	if lx.CheckTokenString(";") {
		t.Fatalf("CheckTokenString(;) = true")
	}
	if err := lx.ExpectTokenType(KindNumber, FlagInteger, &tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AsInt64() != 10 {
		t.Fatalf("value wrong. expected=10, got=%d", tok.AsInt64())
	}

	lx = NewFromString("foo", "test", NoErrors)
	if err := lx.ExpectTokenString("bar"); err == nil {
		t.Fatalf("expected a mismatch error")
	}
}

func TestScanHelpers(t *testing.T) {
	lx := NewFromString(`true -42 3.5 "text" 7`, "test", 0)

	b, err := lx.ScanBool()
	if err != nil || b != true {
		t.Fatalf("ScanBool = %v, %v", b, err)
	}
	i, err := lx.ScanInt64()
	if err != nil || i != -42 {
		t.Fatalf("ScanInt64 = %d, %v", i, err)
	}
	f, err := lx.ScanFloat64()
	if err != nil || f != 3.5 {
		t.Fatalf("ScanFloat64 = %f, %v", f, err)
	}
	s, err := lx.ScanString()
	if err != nil || s != "text" {
		t.Fatalf("ScanString = %q, %v", s, err)
	}
	u, err := lx.ScanUint64()
	if err != nil || u != 7 {
		t.Fatalf("ScanUint64 = %d, %v", u, err)
	}
}

func TestSkipHelpers(t *testing.T) {
	lx := NewFromString("a b c ; d", "test", 0)
	if !lx.SkipUntilString(";") {
		t.Fatalf("SkipUntilString(;) = false")
	}
	var tok Token
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "d" {
		t.Fatalf("expected %q after skip, got %q (%v)", "d", tok.Text(), err)
	}

	lx = NewFromString("x y z\nnext", "test", 0)
	lx.NextToken(&tok)
	if !lx.SkipRestOfLine() {
		t.Fatalf("SkipRestOfLine = false")
	}
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "next" {
		t.Fatalf("expected %q after line skip, got %q (%v)", "next", tok.Text(), err)
	}

	lx = NewFromString("{ a { b } c } after", "test", 0)
	if !lx.SkipBracketedSection(true) {
		t.Fatalf("SkipBracketedSection = false")
	}
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "after" {
		t.Fatalf("expected %q after section, got %q (%v)", "after", tok.Text(), err)
	}
}

func TestScanBracketedSection(t *testing.T) {
	lx := NewFromString("{ a { b } c } tail", "test", 0)
	section, err := lx.ScanBracketedSection()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if section != "{a { b } c } " {
		t.Fatalf("section wrong. expected=%q, got=%q", "{a { b } c } ", section)
	}
	var tok Token
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "tail" {
		t.Fatalf("expected %q after section, got %q (%v)", "tail", tok.Text(), err)
	}

	// Strings inside the section keep their quotes.
	lx = NewFromString(`{ "s" }`, "test", 0)
	section, err = lx.ScanBracketedSection()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if section != `{"s" } ` {
		t.Fatalf("section wrong. expected=%q, got=%q", `{"s" } `, section)
	}

	// Unbalanced section is an error.
	lx = NewFromString("{ a", "test", NoErrors)
	if _, err = lx.ScanBracketedSection(); err == nil {
		t.Fatalf("expected a missing closing brace error")
	}
}

func TestScanRestOfLine(t *testing.T) {
	lx := NewFromString("x y z\nnext", "test", 0)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rest := lx.ScanRestOfLine(); rest != "y z" {
		t.Fatalf("rest of line wrong. expected=%q, got=%q", "y z", rest)
	}
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "next" {
		t.Fatalf("expected %q after line, got %q (%v)", "next", tok.Text(), err)
	}
	if tok.LinesCrossed() != 1 {
		t.Fatalf("lines crossed wrong. expected=1, got=%d", tok.LinesCrossed())
	}
}

func TestScanCompleteLine(t *testing.T) {
	lx := NewFromString("first line\n  second", "test", 0)
	if line := lx.ScanCompleteLine(); line != "first line\n" {
		t.Fatalf("line wrong. expected=%q, got=%q", "first line\n", line)
	}
	var tok Token
	if err := lx.NextToken(&tok); err != nil || tok.Text() != "second" {
		t.Fatalf("expected %q after line, got %q (%v)", "second", tok.Text(), err)
	}
	if tok.Line() != 2 {
		t.Fatalf("line number wrong. expected=2, got=%d", tok.Line())
	}
}

func TestPathNames(t *testing.T) {
	lx := NewFromString(`include /usr/local/file.h`, "test", AllowPathNames)
	toks := scanAll(t, lx)
	if len(toks) != 2 {
		t.Fatalf("token count wrong. expected=2, got=%d", len(toks))
	}
	if toks[1].Text() != "/usr/local/file.h" {
		t.Fatalf("path token wrong, got %q", toks[1].Text())
	}
}

func TestNumberNames(t *testing.T) {
	lx := NewFromString("3DObject", "test", AllowNumberNames)
	var tok Token
	if err := lx.NextToken(&tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind() != KindIdent || tok.Text() != "3DObject" {
		t.Fatalf("number name wrong. got kind=%s text=%q", tok.Kind(), tok.Text())
	}
}

func TestOnlyStrings(t *testing.T) {
	lx := NewFromString(`some-name "quoted text" other`, "test", OnlyStrings)
	toks := scanAll(t, lx)
	expected := []string{"some-name", "quoted text", "other"}
	if len(toks) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(toks))
	}
	for i, tok := range toks {
		if tok.Text() != expected[i] {
			t.Fatalf("tokens[%d] - text wrong. expected=%q, got=%q",
				i, expected[i], tok.Text())
		}
	}
}

func TestBooleanIdents(t *testing.T) {
	lx := NewFromString("true false maybe", "test", 0)
	toks := scanAll(t, lx)
	if !toks[0].IsBoolean() || !toks[0].AsBool() {
		t.Fatalf("true not scanned as boolean")
	}
	if !toks[1].IsBoolean() || toks[1].AsBool() {
		t.Fatalf("false not scanned as boolean")
	}
	if toks[2].IsBoolean() {
		t.Fatalf("plain identifier scanned as boolean")
	}
}

func TestDiagnostics(t *testing.T) {
	var msgs []string
	lx := NewFromString("@", "diag.txt", 0)
	lx.SetErrorHandler(func(msg string) { msgs = append(msgs, msg) })

	var tok Token
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an unknown punctuation error")
	}
	if lx.ErrorCount() != 1 {
		t.Fatalf("error count wrong. expected=1, got=%d", lx.ErrorCount())
	}
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0], "diag.txt(1): error:") {
		t.Fatalf("diagnostic format wrong, got %v", msgs)
	}

	// NoErrors still counts but does not report.
	msgs = nil
	lx = NewFromString("@", "diag.txt", NoErrors)
	lx.SetErrorHandler(func(msg string) { msgs = append(msgs, msg) })
	if err := lx.NextToken(&tok); err == nil {
		t.Fatalf("expected an error")
	}
	if lx.ErrorCount() != 1 || len(msgs) != 0 {
		t.Fatalf("NoErrors handling wrong. count=%d msgs=%v", lx.ErrorCount(), msgs)
	}
}

func TestLastWhitespace(t *testing.T) {
	lx := NewFromString("FUNC (arg)", "test", 0)
	var tok Token
	lx.NextToken(&tok)
	lx.NextToken(&tok)
	if tok.Text() != "(" {
		t.Fatalf("expected '(', got %q", tok.Text())
	}
	if lx.LastWhitespaceLen() != 1 {
		t.Fatalf("whitespace length wrong. expected=1, got=%d", lx.LastWhitespaceLen())
	}

	lx = NewFromString("FUNC(arg)", "test", 0)
	lx.NextToken(&tok)
	lx.NextToken(&tok)
	if lx.LastWhitespaceLen() != 0 {
		t.Fatalf("whitespace length wrong. expected=0, got=%d", lx.LastWhitespaceLen())
	}
}
