// Package preproc implements a C-like macro preprocessor on top of
// pkg/lexer. It handles the familiar #-directives (#if/#ifdef/#elif,
// #define with parameters, stringizing and token pasting, varargs,
// #include, #pragma, ...) plus the $eval/$evalint/$evalfloat extension
// for inline constant folding.
package preproc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glampert/parse-utils/pkg/lexer"
)

// Flags alter the behavior of a Preprocessor.
type Flags uint32

const (
	// NoErrors silences error output. Errors are still counted.
	NoErrors Flags = 1 << iota

	// NoWarnings silences warning output. Warnings are still counted.
	NoWarnings

	// NoFatalErrors keeps going after an error whenever possible.
	NoFatalErrors

	// NoDollarDirectives disables the $eval family of directives.
	NoDollarDirectives

	// NoBaseIncludes disables '#include <file>' style inclusion.
	NoBaseIncludes

	// NoIncludes disables the #include directive entirely.
	NoIncludes

	// WarnMacroRedefinitions warns whenever a #define overwrites an
	// existing macro.
	WarnMacroRedefinitions
)

// DefaultMaxOutputLineLength is the output column after which a line
// break is inserted at the next ';' token.
const DefaultMaxOutputLineLength = 128

type condType uint8

const (
	condIf condType = iota
	condIfdef
	condIfndef
	condElif
	condElse
)

type conditional struct {
	typ         condType
	skip        bool
	parentState bool
}

// Preprocessor expands macros and resolves preprocessing directives
// over one or more input scripts, producing a flat output text.
//
// A Preprocessor is not safe for concurrent use.
type Preprocessor struct {
	cur   *lexer.Lexer
	flags Flags

	macros      []macroDef
	macroTokens []lexer.Token // shared parameter/body token arena

	condStack     []conditional
	skipping      int
	includeStack  []*lexer.Lexer
	searchPaths   []string
	onceIncluded  map[string]bool
	expandDepth   int
	maxLineLen    int
	outputLineLen int
	prevOutKind   lexer.TokenKind
}

// New returns an empty Preprocessor with the built-in macros defined.
// Load a script with one of the Init methods before calling Preprocess.
func New(flags Flags) *Preprocessor {
	p := &Preprocessor{
		flags:        flags,
		onceIncluded: make(map[string]bool),
		maxLineLen:   DefaultMaxOutputLineLength,
	}
	p.macroDefineBuiltins()
	return p
}

func (p *Preprocessor) lexerFlags(extra lexer.Flags) lexer.Flags {
	// String concatenation must be left to the compiler, otherwise
	// adjacent strings produced by macro expansion get merged too soon.
	lf := extra | lexer.NoStringConcat
	if p.flags&NoErrors != 0 {
		lf |= lexer.NoErrors
	}
	if p.flags&NoWarnings != 0 {
		lf |= lexer.NoWarnings
	}
	if p.flags&NoFatalErrors != 0 {
		lf |= lexer.NoFatalErrors
	}
	return lf
}

// InitFromFile loads the given file as the input script.
func (p *Preprocessor) InitFromFile(filename string) error {
	if p.cur != nil {
		return fmt.Errorf("preproc: a script is already loaded; call Clear first")
	}
	lx, err := lexer.NewFromFile(filename, p.lexerFlags(0))
	if err != nil {
		return err
	}
	p.cur = lx
	return nil
}

// InitFromString loads the given source text as the input script.
func (p *Preprocessor) InitFromString(src, filename string) error {
	if p.cur != nil {
		return fmt.Errorf("preproc: a script is already loaded; call Clear first")
	}
	p.cur = lexer.NewFromString(src, filename, p.lexerFlags(0))
	return nil
}

// InitFromLexer adopts an existing lexer as the input script. The
// lexer flags are adjusted to the preprocessor's needs.
func (p *Preprocessor) InitFromLexer(lx *lexer.Lexer) error {
	if p.cur != nil {
		return fmt.Errorf("preproc: a script is already loaded; call Clear first")
	}
	lx.SetFlags(p.lexerFlags(lx.Flags()))
	p.cur = lx
	return nil
}

// Clear resets the Preprocessor to its initial state, dropping all
// loaded scripts and every user-defined macro.
func (p *Preprocessor) Clear() {
	p.cur = nil
	p.condStack = p.condStack[:0]
	p.skipping = 0
	p.includeStack = p.includeStack[:0]
	p.onceIncluded = make(map[string]bool)
	p.expandDepth = 0
	p.outputLineLen = 0
	p.prevOutKind = lexer.KindNone
	p.UndefAll(true)
}

// AddSearchPath registers a directory for '#include <file>' lookups.
func (p *Preprocessor) AddSearchPath(path string) {
	if path == "" {
		return
	}
	if !strings.HasSuffix(path, "/") && !strings.HasSuffix(path, string(os.PathSeparator)) {
		path += "/"
	}
	p.searchPaths = append(p.searchPaths, path)
}

// ClearSearchPaths removes every registered include search path.
func (p *Preprocessor) ClearSearchPaths() {
	p.searchPaths = p.searchPaths[:0]
}

// SetMaxOutputLineLength sets the column after which the output is
// broken at the next ';'. Zero disables the line breaking.
func (p *Preprocessor) SetMaxOutputLineLength(n int) { p.maxLineLen = n }

// MaxOutputLineLength returns the current output line length limit.
func (p *Preprocessor) MaxOutputLineLength() int { return p.maxLineLen }

// ErrorCount returns the number of errors reported by the current
// script, zero if none is loaded.
func (p *Preprocessor) ErrorCount() uint32 {
	if p.cur == nil {
		return 0
	}
	return p.cur.ErrorCount()
}

// WarningCount returns the number of warnings reported by the current
// script, zero if none is loaded.
func (p *Preprocessor) WarningCount() uint32 {
	if p.cur == nil {
		return 0
	}
	return p.cur.WarningCount()
}

func (p *Preprocessor) enableWarnings() {
	p.flags &^= NoWarnings
	if p.cur != nil {
		p.cur.SetFlags(p.cur.Flags() &^ lexer.NoWarnings)
	}
}

func (p *Preprocessor) disableWarnings() {
	p.flags |= NoWarnings
	if p.cur != nil {
		p.cur.SetFlags(p.cur.Flags() | lexer.NoWarnings)
	}
}

func (p *Preprocessor) errorf(format string, args ...interface{}) error {
	if p.cur != nil {
		return p.cur.Errorf(format, args...)
	}
	return fmt.Errorf(format, args...)
}

func (p *Preprocessor) warnf(format string, args ...interface{}) {
	if p.cur != nil {
		p.cur.Warnf(format, args...)
	}
}

func (p *Preprocessor) nextToken(out *lexer.Token) error {
	if p.cur == nil {
		return io.EOF
	}
	return p.cur.NextToken(out)
}

func (p *Preprocessor) nextTokenOnLine(out *lexer.Token) bool {
	return p.cur != nil && p.cur.NextTokenOnLine(out)
}

func (p *Preprocessor) ungetToken(tok *lexer.Token) {
	if p.cur != nil {
		p.cur.UngetToken(tok)
	}
}

func (p *Preprocessor) skipRestOfLine() {
	if p.cur != nil {
		p.cur.SkipRestOfLine()
	}
}

// Preprocess runs the whole input, included files and all, and
// returns the expanded output text.
func (p *Preprocessor) Preprocess() (string, error) {
	if p.cur == nil {
		return "", fmt.Errorf("preproc: no script loaded")
	}

	var out strings.Builder
	var tok lexer.Token

	for {
		if err := p.nextToken(&tok); err != nil {
			if err == io.EOF && len(p.includeStack) > 0 {
				// Finished an included file, pop back to the parent.
				p.cur = p.includeStack[len(p.includeStack)-1]
				p.includeStack = p.includeStack[:len(p.includeStack)-1]
				continue
			}
			if err == io.EOF {
				break
			}
			return out.String(), err
		}

		if isDirective, err := p.checkDirective(&tok, &out); err != nil {
			return out.String(), err
		} else if isDirective {
			continue
		}

		if p.skipping > 0 {
			continue // inside an #if/#else block that evaluated false
		}

		if tok.IsIdent() {
			macroIndex := p.macroFindIndex(hashString(tok.Text()))
			if macroIndex >= 0 {
				err := p.expandMacroAndAppend(macroIndex, &out, newScriptPack(p.cur), nil)
				if err != nil {
					return out.String(), err
				}
				continue
			}
		}

		p.outputAppendTokenText(&tok, &out, false, false)
	}

	if len(p.condStack) != 0 {
		return out.String(), p.errorf("missing #endif directive!")
	}
	return out.String(), nil
}

// checkDirective dispatches # and $ directives, reporting whether the
// token started one.
func (p *Preprocessor) checkDirective(tok *lexer.Token, out *strings.Builder) (bool, error) {
	switch {
	case lexer.IsPunctID(tok, lexer.PunctPreproc):
		return true, p.resolveHashDirective()
	case lexer.IsPunctID(tok, lexer.PunctDollar) && p.flags&NoDollarDirectives == 0:
		return true, p.resolveDollarDirective(out)
	default:
		return false, nil
	}
}

// readLine collects the raw text of the rest of the current line,
// honoring backslash line continuations.
func (p *Preprocessor) readLine() string {
	var sb strings.Builder
	var tok lexer.Token
	gotBackslash := false

	for p.nextToken(&tok) == nil {
		if lexer.IsPunctID(&tok, lexer.PunctBackslash) {
			gotBackslash = true
			continue
		}
		if !gotBackslash && tok.LinesCrossed() != 0 {
			p.ungetToken(&tok)
			break
		}
		sb.WriteString(tokenOutputText(&tok))
		gotBackslash = false
	}
	return sb.String()
}

// tokenOutputText returns the token text the way it should appear in
// the preprocessed output, quotes and escapes restored.
func tokenOutputText(tok *lexer.Token) string {
	var sb strings.Builder
	stringAppendToken(tok, &sb)
	return sb.String()
}

// stringAppendToken appends the token text to sb, re-quoting strings
// and literals and re-escaping any control characters in them.
func stringAppendToken(tok *lexer.Token, sb *strings.Builder) {
	switch tok.Kind() {
	case lexer.KindString:
		sb.WriteByte('"')
		appendEscaped(tok.Text(), sb)
		sb.WriteByte('"')
	case lexer.KindLiteral:
		sb.WriteByte('\'')
		text := tok.Text()
		if text == "" {
			sb.WriteString("\\0")
		} else {
			appendEscaped(text[:1], sb)
		}
		sb.WriteByte('\'')
	default:
		sb.WriteString(tok.Text())
	}
}

func appendEscaped(s string, sb *strings.Builder) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		case '\v':
			sb.WriteString("\\v")
		case '\b':
			sb.WriteString("\\b")
		case '\f':
			sb.WriteString("\\f")
		case '\a':
			sb.WriteString("\\a")
		case '\\':
			sb.WriteString("\\\\")
		case '\'':
			sb.WriteString("\\'")
		case '"':
			sb.WriteString("\\\"")
		case '?':
			sb.WriteString("\\?")
		default:
			sb.WriteByte(c)
		}
	}
}

// outputAppendTokenText writes one token to the output, inserting
// whitespace between adjacent non-punctuation tokens and breaking
// overlong lines at statement ends.
func (p *Preprocessor) outputAppendTokenText(tok *lexer.Token, out *strings.Builder,
	noStringEscape, noWhitespace bool) {

	if !noWhitespace && !tok.IsPunct() && p.prevOutKind != lexer.KindPunct {
		out.WriteByte(' ')
		p.outputLineLen++
	}

	var text string
	if noStringEscape {
		text = tok.Text()
	} else {
		text = tokenOutputText(tok)
	}
	out.WriteString(text)

	p.prevOutKind = tok.Kind()
	p.outputLineLen += len(text)

	if p.maxLineLen > 0 && p.outputLineLen > p.maxLineLen &&
		lexer.IsPunctID(tok, lexer.PunctSemicolon) {
		out.WriteByte('\n')
		p.outputLineLen = 0
	}
}

func canonicalPath(filename string) string {
	if abs, err := filepath.Abs(filename); err == nil {
		return abs
	}
	return filepath.Clean(filename)
}
