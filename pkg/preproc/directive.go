package preproc

import (
	"path/filepath"
	"strings"

	"github.com/glampert/parse-utils/pkg/lexer"
)

// resolveHashDirective handles a directive starting with '#'. The
// conditional directives are always processed, everything else is
// skipped over inside an inactive #if block.
func (p *Preprocessor) resolveHashDirective() error {
	var tok lexer.Token
	if p.nextToken(&tok) != nil {
		return p.errorf("found preprocessor directive without a following command!")
	}
	if tok.LinesCrossed() != 0 {
		p.ungetToken(&tok)
		return p.errorf("preprocessor command found at end of line!")
	}
	if !tok.IsIdent() {
		return p.errorf("invalid preprocessor directive '%s'. "+
			"Expected an identifier after the preprocessor symbol!", tok.Text())
	}

	switch tok.Text() {
	case "if":
		return p.resolveIfDirective()
	case "ifdef":
		return p.resolveIfdefDirective()
	case "ifndef":
		return p.resolveIfndefDirective()
	case "elif":
		return p.resolveElifDirective()
	case "else":
		return p.resolveElseDirective()
	case "endif":
		return p.resolveEndifDirective()
	}

	if p.skipping > 0 {
		p.skipRestOfLine()
		return nil
	}

	switch tok.Text() {
	case "include":
		return p.resolveIncludeDirective()
	case "define":
		return p.resolveDefineDirective()
	case "undef":
		return p.resolveUndefDirective()
	case "line":
		return p.resolveLineDirective()
	case "error":
		return p.resolveErrorDirective()
	case "warning", "warn":
		return p.resolveWarningDirective()
	case "pragma":
		return p.resolvePragmaDirective()
	case "eval", "evalint", "evalfloat":
		return p.errorf("'%s' preprocessor directive must be preceded by '$'.", tok.Text())
	default:
		return p.errorf("unknown preprocessor directive '%s'.", tok.Text())
	}
}

// resolveDollarDirective handles the $eval/$evalint/$evalfloat
// extension, appending the folded constant to the output.
func (p *Preprocessor) resolveDollarDirective(out *strings.Builder) error {
	var tok lexer.Token
	if p.nextToken(&tok) != nil {
		return p.errorf("found preprocessor directive without a following command!")
	}
	if tok.LinesCrossed() != 0 {
		p.ungetToken(&tok)
		return p.errorf("preprocessor command found at end of line!")
	}

	var flags evalFlags
	switch tok.Text() {
	case "eval":
		flags = evalDetectType
	case "evalint":
		flags = evalForceInt
	case "evalfloat":
		flags = evalForceFloat
	default:
		return p.errorf("expected 'eval', 'evalint' or 'evalfloat' after '$' preprocessor directive!")
	}
	flags |= evalMathFuncs | evalMathConsts

	if p.nextToken(&tok) != nil || !lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
		return p.errorf("expected '(' after 'eval' directive!")
	}

	ev := newEvaluator(p)
	depth := 1
	closed := false

	for p.nextToken(&tok) == nil {
		if lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
			depth++
		} else if lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			depth--
			if depth == 0 {
				closed = true
				break // the parenthesis enclosing the whole eval
			}
		}
		ev.pushToken(tok)
	}
	if !closed {
		return p.errorf("expected ')' at the end of 'eval' directive!")
	}

	var result lexer.Token
	if _, err := ev.evaluate(&result, flags); err != nil {
		return err
	}

	p.outputAppendTokenText(&result, out, false, false)
	return nil
}

func (p *Preprocessor) pushConditional(typ condType, skip bool, parent *bool) {
	state := skip
	if parent != nil {
		state = *parent
	}
	p.condStack = append(p.condStack, conditional{typ: typ, skip: skip, parentState: state})
	if skip {
		p.skipping++
	}
}

func (p *Preprocessor) popConditional() (conditional, bool) {
	if len(p.condStack) == 0 {
		return conditional{}, false
	}
	c := p.condStack[len(p.condStack)-1]
	p.condStack = p.condStack[:len(p.condStack)-1]
	if c.skip {
		p.skipping--
	}
	return c, true
}

// evaluatePreprocConditional parses and evaluates the expression of
// an #if or #elif, up to the end of the line.
func (p *Preprocessor) evaluatePreprocConditional() (bool, error) {
	ev := newEvaluator(p)
	parens := 0
	gotBackslash := false

	var tok lexer.Token
	for p.nextToken(&tok) == nil {
		if lexer.IsPunctID(&tok, lexer.PunctBackslash) {
			gotBackslash = true
			continue
		}
		if !gotBackslash && tok.LinesCrossed() != 0 {
			p.ungetToken(&tok)
			break
		}
		if lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
			parens++
		} else if lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			parens--
		}
		ev.pushToken(tok)
		gotBackslash = false
	}

	if parens > 0 {
		return false, p.errorf("unbalanced opening parentheses in #if/#elif directive!")
	}
	if parens < 0 {
		return false, p.errorf("unbalanced closing parentheses in #if/#elif directive!")
	}
	if ev.tokenCount() == 0 {
		return false, p.errorf("no expression after #if/#elif directive!")
	}

	val, err := ev.evaluate(nil, evalDetectType|evalUndefinedZero)
	if err != nil {
		return false, err
	}
	return val.asBool(), nil
}

func (p *Preprocessor) resolveIfDirective() error {
	result, err := p.evaluatePreprocConditional()
	if err != nil {
		return err
	}
	p.pushConditional(condIf, !result, nil)
	return nil
}

func (p *Preprocessor) resolveIfdefDirective() error {
	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) || !tok.IsIdent() {
		return p.errorf("expected name/identifier immediately after #ifdef directive!")
	}
	p.pushConditional(condIfdef, !p.IsDefined(tok.Text()), nil)
	return nil
}

func (p *Preprocessor) resolveIfndefDirective() error {
	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) || !tok.IsIdent() {
		return p.errorf("expected name/identifier immediately after #ifndef directive!")
	}
	p.pushConditional(condIfndef, p.IsDefined(tok.Text()), nil)
	return nil
}

func (p *Preprocessor) resolveElifDirective() error {
	prev, ok := p.popConditional()
	if !ok || prev.typ == condElse {
		return p.errorf("misplaced #elif directive!")
	}

	result, err := p.evaluatePreprocConditional()
	if err != nil {
		return err
	}

	// An #elif only enters when its expression is true, the previous
	// branches were all skipped, and the enclosing block is active.
	skippedPrev := prev.skip
	parent := prev.parentState
	oldParent := parent

	if result && skippedPrev {
		parent = false // this branch claims the block
	}
	skipElif := !result || !skippedPrev || !oldParent

	p.pushConditional(condElif, skipElif, &parent)
	return nil
}

func (p *Preprocessor) resolveElseDirective() error {
	prev, ok := p.popConditional()
	if !ok {
		return p.errorf("misplaced #else directive!")
	}
	if prev.typ == condElse {
		return p.errorf("#else directive followed by #else!")
	}

	skipElse := !prev.skip || !prev.parentState
	p.pushConditional(condElse, skipElse, nil)
	return nil
}

func (p *Preprocessor) resolveEndifDirective() error {
	if _, ok := p.popConditional(); !ok {
		return p.errorf("misplaced #endif directive!")
	}
	return nil
}

func (p *Preprocessor) resolveDefineDirective() error {
	var nameTok lexer.Token
	if !p.nextTokenOnLine(&nameTok) {
		return p.errorf("empty #define directive!")
	}
	if !nameTok.IsIdent() {
		return p.errorf("#define directive must be followed by a name/identifier!")
	}

	var def macroDef
	var tok lexer.Token

	// A '(' glued to the macro name opens a parameter list. With
	// whitespace in between it is just the start of the body.
	if p.nextTokenOnLine(&tok) {
		if lexer.IsPunctID(&tok, lexer.PunctOpenParen) && p.cur.LastWhitespaceLen() == 0 {
			if err := p.parseMacroParams(&def); err != nil {
				return err
			}
		} else {
			p.ungetToken(&tok)
		}
	}

	// Collect the body tokens, following backslash line continuations:
	def.firstBodyToken = uint32(len(p.macroTokens))
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
		p.macroTokens = append(p.macroTokens, tok)
		def.bodyTokenCount++
		gotBackslash = false
	}
	if def.bodyTokenCount == 0 {
		def.firstBodyToken = 0
	}

	p.macroDefine(nameTok.Text(), def)
	return nil
}

func (p *Preprocessor) parseMacroParams(def *macroDef) error {
	def.firstParamToken = uint32(len(p.macroTokens))

	var tok lexer.Token
	expectComma := false
	hasVaArgs := false
	closed := false

	for p.nextToken(&tok) == nil && tok.LinesCrossed() == 0 {
		if lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			closed = true
			break
		}
		if lexer.IsPunctID(&tok, lexer.PunctEllipsis) {
			hasVaArgs = true
			expectComma = true
			def.vaArgsMacro = true
			continue
		}
		if expectComma && lexer.IsPunctID(&tok, lexer.PunctComma) {
			expectComma = false
			continue
		}
		if tok.IsIdent() {
			if hasVaArgs {
				return p.errorf("'...' can only appear as the last parameter in a macro declaration!")
			}
			p.macroTokens = append(p.macroTokens, tok)
			def.paramTokenCount++
			expectComma = true
			continue
		}
		return p.errorf("unexpected token '%s' in macro argument list!", tok.Text())
	}

	if !closed {
		return p.errorf("missing closing ')' in function-like macro definition!")
	}

	if def.paramTokenCount == 0 {
		def.firstParamToken = 0
		if !def.vaArgsMacro {
			def.emptyFuncLikeMacro = true
		}
	} else if !expectComma {
		return p.errorf("trailing comma in macro argument list!")
	}
	return nil
}

func (p *Preprocessor) resolveUndefDirective() error {
	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) {
		return p.errorf("empty #undef directive!")
	}
	if !tok.IsIdent() {
		return p.errorf("#undef directive must be followed by a name/identifier!")
	}
	p.macroUndefine(tok.Text())
	return nil
}

func (p *Preprocessor) resolveLineDirective() error {
	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) {
		return p.errorf("empty #line directive!")
	}
	if !tok.IsNumber() {
		return p.errorf("#line directive must be followed by a non-negative line number!")
	}
	p.cur.SetLineNumber(uint32(tok.AsUint64()))
	return nil
}

func (p *Preprocessor) resolveErrorDirective() error {
	return p.errorf("%s", p.readLine())
}

func (p *Preprocessor) resolveWarningDirective() error {
	p.warnf("%s", p.readLine())
	return nil
}

func (p *Preprocessor) resolvePragmaDirective() error {
	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) {
		p.warnf("empty #pragma directive.")
		return nil
	}

	// The command may optionally be enclosed in parentheses.
	openParen := false
	if lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
		openParen = true
		if !p.nextTokenOnLine(&tok) {
			return p.errorf("nothing after opening parentheses in #pragma directive!")
		}
	}

	if !tok.IsIdent() {
		if lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			p.warnf("empty #pragma directive.")
			return nil
		}
		return p.errorf("expected identifier/name after #pragma directive, got '%s'.", tok.Text())
	}

	switch tok.Text() {
	case "once":
		name := canonicalPath(p.cur.Filename())
		if p.onceIncluded[name] {
			// Already processed this file once, drop the rest of it.
			if n := len(p.includeStack); n > 0 {
				p.cur = p.includeStack[n-1]
				p.includeStack = p.includeStack[:n-1]
			}
			return nil
		}
		p.onceIncluded[name] = true

	case "warning":
		var cmd lexer.Token
		if !p.nextTokenOnLine(&cmd) || !lexer.IsPunctID(&cmd, lexer.PunctColon) {
			return p.errorf("'#pragma warning' must be followed by a colon!")
		}
		if !p.nextTokenOnLine(&cmd) {
			return p.errorf("incomplete #pragma warning command!")
		}
		switch cmd.Text() {
		case "enable":
			p.enableWarnings()
		case "disable":
			p.disableWarnings()
		default:
			return p.errorf("unknown #pragma warning command: '%s'.", cmd.Text())
		}

	default:
		p.warnf("ignoring unknown #pragma directive: '%s'.", tok.Text())
		p.skipRestOfLine()
		return nil
	}

	if openParen {
		if !p.nextTokenOnLine(&tok) || !lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			return p.errorf("#pragma directive missing closing parentheses!")
		}
	}
	return nil
}

func (p *Preprocessor) resolveIncludeDirective() error {
	if p.flags&NoIncludes != 0 {
		return p.errorf("file inclusion via the #include directive is disabled!")
	}

	var tok lexer.Token
	if !p.nextTokenOnLine(&tok) {
		return p.errorf("expected a filename after #include directive!")
	}

	switch {
	case tok.IsString(): // #include "file"
		filename := tok.Text()
		if filename == "" {
			return p.errorf("empty string after #include directive!")
		}
		if p.tryOpenIncludeFile(filename) {
			return nil
		}
		// Also look next to the including file.
		if dir := filepath.Dir(p.cur.Filename()); dir != "." {
			if p.tryOpenIncludeFile(filepath.Join(dir, filename)) {
				return nil
			}
		}
		return p.errorf("unable to open included file \"%s\".", filename)

	case lexer.IsPunctID(&tok, lexer.PunctLogicLess): // #include <file>
		if p.flags&NoBaseIncludes != 0 {
			return p.errorf("base includes (#include <>) are not allowed!")
		}

		line := p.readLine()
		if !strings.HasSuffix(line, ">") {
			return p.errorf("missing closing '>' in #include directive!")
		}
		filename := lexer.TrimString(strings.TrimSuffix(line, ">"))
		if filename == "" {
			return p.errorf("empty string after #include directive!")
		}

		if len(p.searchPaths) != 0 {
			for _, path := range p.searchPaths {
				if p.tryOpenIncludeFile(path + filename) {
					return nil
				}
			}
			return p.errorf("unable to open included file \"%s\" using default search paths.", filename)
		}
		if p.tryOpenIncludeFile(filename) {
			return nil
		}
		return p.errorf("unable to open included file \"%s\".", filename)

	default:
		return p.errorf("expected string enclosed in double-quotes or '< >' after #include directive!")
	}
}

// tryOpenIncludeFile pushes the current script onto the include stack
// and switches to the given file, silently reporting failure so the
// caller can probe multiple search paths.
func (p *Preprocessor) tryOpenIncludeFile(filename string) bool {
	lx, err := lexer.NewFromFile(filename, p.lexerFlags(p.cur.Flags()))
	if err != nil {
		return false
	}
	p.includeStack = append(p.includeStack, p.cur)
	p.cur = lx
	return true
}
