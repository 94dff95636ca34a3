package preproc

import (
	"fmt"
	"strings"
	"time"

	"github.com/glampert/parse-utils/pkg/lexer"
)

// macroDef describes a single #define. Parameter and body tokens live
// in the shared Preprocessor token arena, referenced by index ranges.
type macroDef struct {
	hashedName         uint32
	firstParamToken    uint32
	firstBodyToken     uint32
	paramTokenCount    uint32
	bodyTokenCount     uint32
	emptyFuncLikeMacro bool
	vaArgsMacro        bool
}

// hashString is the simple and fast One-at-a-Time (OAT) hash:
// http://en.wikipedia.org/wiki/Jenkins_hash_function
func hashString(str string) uint32 {
	var h uint32
	for i := 0; i < len(str); i++ {
		h += uint32(str[i])
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// Hashed names of the built-in macros.
var (
	builtinMacroFile   = hashString("__FILE__")
	builtinMacroLine   = hashString("__LINE__")
	builtinMacroDate   = hashString("__DATE__")
	builtinMacroTime   = hashString("__TIME__")
	builtinMacroVaArgs = hashString("__VA_ARGS__")
)

func (p *Preprocessor) macroDefineBuiltins() {
	for _, h := range []uint32{
		builtinMacroFile,
		builtinMacroLine,
		builtinMacroDate,
		builtinMacroTime,
		builtinMacroVaArgs,
	} {
		p.macros = append(p.macros, macroDef{hashedName: h})
	}
}

func (p *Preprocessor) macroIsBuiltin(macro *macroDef) bool {
	switch macro.hashedName {
	case builtinMacroFile, builtinMacroLine, builtinMacroDate,
		builtinMacroTime, builtinMacroVaArgs:
		return true
	default:
		return false
	}
}

func (p *Preprocessor) macroFindIndex(hashedName uint32) int {
	for i := range p.macros {
		if p.macros[i].hashedName == hashedName {
			return i
		}
	}
	return -1
}

func (p *Preprocessor) macroDefine(macroName string, newMacro macroDef) {
	newMacro.hashedName = hashString(macroName)
	macroIndex := p.macroFindIndex(newMacro.hashedName)

	if macroIndex >= 0 { // redefined
		if p.flags&WarnMacroRedefinitions != 0 {
			p.warnf("macro '%s' is already defined and will be overwritten.", macroName)
		}
		p.macroClearTokens(&p.macros[macroIndex])
		p.macros[macroIndex] = newMacro
	} else { // new definition
		p.macros = append(p.macros, newMacro)
	}
}

func (p *Preprocessor) macroUndefine(macroName string) {
	if len(p.macros) == 0 {
		return
	}

	macroIndex := p.macroFindIndex(hashString(macroName))
	if macroIndex >= 0 {
		p.macroClearTokens(&p.macros[macroIndex])

		// Swap with the last item, so we don't have to shift the array.
		last := len(p.macros) - 1
		if macroIndex != last {
			p.macros[macroIndex] = p.macros[last]
		}
		p.macros = p.macros[:last]
	}

	// The parameter and body tokens, if the macro had any, remain
	// allocated in the token arena. Since macro #undefing is rare it
	// is cheaper to leave the stale slots than to compact the arena
	// and patch every other macro's token ranges.
}

func (p *Preprocessor) macroClearTokens(macro *macroDef) {
	for i := uint32(0); i < macro.paramTokenCount; i++ {
		p.macroTokens[i+macro.firstParamToken].Clear()
	}
	for i := uint32(0); i < macro.bodyTokenCount; i++ {
		p.macroTokens[i+macro.firstBodyToken].Clear()
	}
}

// paramPack feeds tokens to a macro expansion. The tokens come either
// from the live scanner (top-level expansion), from a slice of macro
// body tokens (nested expansion), or from the provided arguments of
// the parent expansion (parameter substitution inside nested macros).
type paramPack struct {
	script   *lexer.Lexer
	tokens   []lexer.Token
	expands  []lexer.Token
	avail    int
	consumed int
}

func newScriptPack(lx *lexer.Lexer) *paramPack {
	return &paramPack{script: lx}
}

func newTokenPack(tokens []lexer.Token) *paramPack {
	return &paramPack{tokens: tokens, avail: len(tokens)}
}

func newParentPack(provided, names []lexer.Token, vaArgsMacro bool) *paramPack {
	pk := &paramPack{tokens: names}
	if provided != nil {
		pk.avail = len(provided)
		pk.expands = provided

		if vaArgsMacro && len(provided) >= len(names) {
			// The varargs start after the last named parameter.
			pk.tokens = provided[len(names):]
			pk.avail = len(provided) - len(names)
		}
	}
	return pk
}

func (pk *paramPack) nextToken(out *lexer.Token) bool {
	if pk.script != nil {
		if pk.script.NextToken(out) != nil {
			return false
		}
		pk.consumed++
		return true
	}
	if pk.consumed < pk.avail && pk.consumed < len(pk.tokens) {
		*out = pk.tokens[pk.consumed]
		pk.consumed++
		return true
	}
	return false
}

func (pk *paramPack) findParam(wanted *lexer.Token) *lexer.Token {
	if pk.tokens == nil || pk.expands == nil {
		return nil
	}
	for i := 0; i < pk.avail && i < len(pk.tokens); i++ {
		if pk.tokens[i].Kind() == wanted.Kind() && pk.tokens[i].Text() == wanted.Text() {
			return &pk.expands[i]
		}
	}
	return nil
}

func (pk *paramPack) tokensLeft() int {
	return pk.avail - pk.consumed
}

func (pk *paramPack) reset() {
	pk.consumed = 0
}

// Nested expansions beyond this depth can only mean mutually recursive
// macro definitions, so the expansion is aborted with an error.
const maxExpandDepth = 64

// expandMacroAndAppend expands the macro at macroIndex into out,
// pulling any function-like macro arguments from pack. parent carries
// the provided arguments of the enclosing expansion, nil at top level.
func (p *Preprocessor) expandMacroAndAppend(macroIndex int, out *strings.Builder,
	pack, parent *paramPack) error {

	p.expandDepth++
	defer func() { p.expandDepth-- }()
	if p.expandDepth > maxExpandDepth {
		return p.errorf("macro expansion nested too deeply! Mutually recursive macros?")
	}

	var tok lexer.Token
	macro := p.macros[macroIndex]

	// Function-like macros taking one or more parameters (including varargs):
	if macro.vaArgsMacro || macro.paramTokenCount != 0 {
		expectComma := false
		parenthesesCount := 0

		var currentParamText string
		var paramsProvided []lexer.Token

		if !pack.nextToken(&tok) || !lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
			return p.errorf("missing opening parenthesis in function-like macro instantiation.")
		}
		parenthesesCount++

		//
		// Collect the given parameters:
		//
		for pack.nextToken(&tok) {
			if lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
				parenthesesCount++
			} else if lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
				parenthesesCount--
				if parenthesesCount <= 0 {
					break
				}
			}

			if expectComma && lexer.IsPunctID(&tok, lexer.PunctComma) {
				var param lexer.Token
				param.SetKind(lexer.KindIdent)
				param.SetText(currentParamText)

				paramsProvided = append(paramsProvided, param)
				currentParamText = ""
				expectComma = false
				continue
			}

			// The parameter itself can also be a previously defined
			// macro we might need to recursively expand.
			if tok.IsIdent() {
				otherIndex := p.macroFindIndex(hashString(tok.Text()))
				if otherIndex >= 0 {
					if macroIndex == otherIndex {
						return p.errorf("macro parameter references itself!")
					}

					if p.macros[otherIndex].hashedName == builtinMacroVaArgs {
						// Preserve the commas of a __VA_ARGS__ reference in the
						// parameter list of another macro, so it expands here
						// instead of through the recursive string expansion.
						if parent == nil {
							return p.errorf("'__VA_ARGS__' macro expansion failed!")
						}
						for parent.nextToken(&tok) {
							paramsProvided = append(paramsProvided, tok)
						}
						parent.reset()
						currentParamText = ""
					} else {
						var expanded strings.Builder
						otherPack := newScriptPack(p.cur)
						if err := p.expandMacroAndAppend(otherIndex, &expanded, otherPack, parent); err != nil {
							return err
						}
						currentParamText += expanded.String()
					}

					// Get rid of some whitespace added by the other cases.
					currentParamText = lexer.TrimString(currentParamText)
					expectComma = true
					continue
				} else if parent != nil {
					if pTok := parent.findParam(&tok); pTok != nil {
						currentParamText += tokenOutputText(pTok) + " "
						expectComma = true
						continue
					}
				}
			}

			currentParamText += tokenOutputText(&tok) + " "
			expectComma = true
		}

		if !lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
			return p.errorf("missing closing parenthesis in function-like macro instantiation.")
		}

		// The last argument:
		if currentParamText != "" {
			var param lexer.Token
			param.SetKind(lexer.KindIdent)
			param.SetText(currentParamText)
			paramsProvided = append(paramsProvided, param)
		}

		if !expectComma {
			return p.errorf("trailing comma in macro argument list!")
		}

		if uint32(len(paramsProvided)) != macro.paramTokenCount {
			if macro.vaArgsMacro && uint32(len(paramsProvided)) > macro.paramTokenCount {
				// OK to have more for a varargs macro.
			} else {
				return p.errorf("function-like macro expected %d parameters, but got %d",
					macro.paramTokenCount, len(paramsProvided))
			}
		}

		// Check for invalid leading or trailing ## and trailing #
		if macro.bodyTokenCount != 0 {
			firstTok := &p.macroTokens[macro.firstBodyToken]
			lastTok := &p.macroTokens[macro.firstBodyToken+macro.bodyTokenCount-1]

			if lexer.IsPunctID(lastTok, lexer.PunctPreproc) {
				return p.errorf("'#' cannot appear at end of macro expansion!")
			}
			if lexer.IsPunctID(firstTok, lexer.PunctPreprocMerge) {
				return p.errorf("'##' cannot appear at start of macro expansion!")
			}
			if lexer.IsPunctID(lastTok, lexer.PunctPreprocMerge) {
				return p.errorf("'##' cannot appear at end of macro expansion!")
			}
		}

		//
		// Expand it:
		//
		nextIsMerge := false
		prevTokenWasStringize := false

		out.WriteByte(' ')
		for b := uint32(0); b < macro.bodyTokenCount; b++ {
			bodyToken := &p.macroTokens[b+macro.firstBodyToken]

			if lexer.IsPunctID(bodyToken, lexer.PunctPreproc) { // #
				prevTokenWasStringize = true
				continue
			}
			if lexer.IsPunctID(bodyToken, lexer.PunctPreprocMerge) { // ##
				continue
			}

			// References to other macros in the body re-enter this
			// function to recursively perform the expansions.
			if bodyToken.IsIdent() {
				otherIndex := p.macroFindIndex(hashString(bodyToken.Text()))
				if otherIndex >= 0 {
					consumed, err := p.expandRecursiveMacroAndAppend(
						macroIndex, otherIndex, int(b), paramsProvided, out)
					if err != nil {
						return err
					}
					b += uint32(consumed)
					continue
				}
			}

			// Check for a merge op ahead to avoid emitting a whitespace
			// between the merged tokens.
			if b != macro.bodyTokenCount-1 {
				nextBodyToken := &p.macroTokens[b+macro.firstBodyToken+1]
				nextIsMerge = lexer.IsPunctID(nextBodyToken, lexer.PunctPreprocMerge)
			}

			// If the token is one of the parameters, replace it:
			tokenIsParam := false
			for pi := uint32(0); pi < macro.paramTokenCount; pi++ {
				paramName := &p.macroTokens[pi+macro.firstParamToken]

				if bodyToken.IsIdent() && bodyToken.Text() == paramName.Text() {
					switch {
					case prevTokenWasStringize:
						strTok := paramsProvided[pi].Stringize()
						p.outputAppendTokenText(&strTok, out, true, true)
						out.WriteByte(' ')
						prevTokenWasStringize = false
					case nextIsMerge:
						trimmed := paramsProvided[pi].Trimmed()
						p.outputAppendTokenText(&trimmed, out, false, true)
					default:
						p.outputAppendTokenText(&paramsProvided[pi], out, false, true)
					}
					tokenIsParam = true
					break
				}
			}

			if !tokenIsParam {
				p.outputAppendTokenText(bodyToken, out, false, true)
				if !nextIsMerge {
					out.WriteByte(' ') // keep spaces between tokens
				}
			}
		}
		out.WriteByte(' ')
	} else { // Just values followed the macro name:
		// Check for built-ins like __FILE__ and __LINE__:
		if p.macroIsBuiltin(&macro) {
			return p.macroExpandBuiltin(&macro, out, parent)
		}

		// If it was declared as an empty function-like macro,
		// it must have the empty '( )' pair.
		if macro.emptyFuncLikeMacro {
			if !pack.nextToken(&tok) || !lexer.IsPunctID(&tok, lexer.PunctOpenParen) {
				return p.errorf("missing opening parenthesis in function-like macro instantiation.")
			}
			if !pack.nextToken(&tok) || !lexer.IsPunctID(&tok, lexer.PunctCloseParen) {
				if tok.IsPunct() {
					return p.errorf("missing closing parenthesis in function-like macro instantiation.")
				}
				return p.errorf("function-like macro takes no arguments!")
			}
		}

		// Check for invalid leading or trailing # and ##
		if macro.bodyTokenCount != 0 {
			firstTok := &p.macroTokens[macro.firstBodyToken]
			lastTok := &p.macroTokens[macro.firstBodyToken+macro.bodyTokenCount-1]

			if lexer.IsPunctID(firstTok, lexer.PunctPreproc) {
				return p.errorf("'#' cannot appear at start of macro expansion!")
			}
			if lexer.IsPunctID(lastTok, lexer.PunctPreproc) {
				return p.errorf("'#' cannot appear at end of macro expansion!")
			}
			if lexer.IsPunctID(firstTok, lexer.PunctPreprocMerge) {
				return p.errorf("'##' cannot appear at start of macro expansion!")
			}
			if lexer.IsPunctID(lastTok, lexer.PunctPreprocMerge) {
				return p.errorf("'##' cannot appear at end of macro expansion!")
			}
		}

		out.WriteByte(' ')
		for i := uint32(0); i < macro.bodyTokenCount; i++ {
			bodyToken := &p.macroTokens[i+macro.firstBodyToken]

			// Recursive substitution of other macros referenced in the body.
			if bodyToken.IsIdent() {
				otherIndex := p.macroFindIndex(hashString(bodyToken.Text()))
				if otherIndex >= 0 {
					consumed, err := p.expandRecursiveMacroAndAppend(
						macroIndex, otherIndex, int(i), nil, out)
					if err != nil {
						return err
					}
					i += uint32(consumed)
					continue
				}
			}

			p.outputAppendTokenText(bodyToken, out, false, false)
			out.WriteByte(' ') // keep spaces between tokens
		}
	}

	return nil
}

// expandRecursiveMacroAndAppend expands a macro referenced inside the
// body of another macro, returning the number of body tokens consumed
// as arguments of the nested expansion.
func (p *Preprocessor) expandRecursiveMacroAndAppend(macroIndex, otherMacroIndex, tokenIndex int,
	paramsProvided []lexer.Token, out *strings.Builder) (int, error) {

	// Referencing itself in the body would result in infinite recursion.
	if macroIndex == otherMacroIndex {
		return 0, p.errorf("macro expansion references itself!")
	}

	macro := p.macros[macroIndex]
	nextToken := uint32(tokenIndex + 1)

	var bodyTail []lexer.Token
	if nextToken < macro.bodyTokenCount {
		first := nextToken + macro.firstBodyToken
		bodyTail = p.macroTokens[first : macro.firstBodyToken+macro.bodyTokenCount]
	}
	pack := newTokenPack(bodyTail)

	var paramNames []lexer.Token
	if paramsProvided != nil && macro.paramTokenCount != 0 {
		paramNames = p.macroTokens[macro.firstParamToken : macro.firstParamToken+macro.paramTokenCount]
	}
	parent := newParentPack(paramsProvided, paramNames, macro.vaArgsMacro)

	if err := p.expandMacroAndAppend(otherMacroIndex, out, pack, parent); err != nil {
		return 0, err
	}
	return pack.consumed, nil
}

// macroExpandBuiltin outputs quoted strings, except for the __LINE__
// number and varargs.
func (p *Preprocessor) macroExpandBuiltin(macro *macroDef, out *strings.Builder, vaArgs *paramPack) error {
	if p.cur == nil {
		return p.errorf("no script loaded!")
	}

	switch macro.hashedName {
	case builtinMacroFile:
		out.WriteByte('"')
		out.WriteString(p.cur.Filename())
		out.WriteByte('"')

	case builtinMacroLine:
		fmt.Fprintf(out, "%d", p.cur.LineNumber())

	case builtinMacroDate:
		out.WriteByte('"')
		out.WriteString(time.Now().Format("Jan _2 2006"))
		out.WriteByte('"')

	case builtinMacroTime:
		out.WriteByte('"')
		out.WriteString(time.Now().Format("15:04:05"))
		out.WriteByte('"')

	case builtinMacroVaArgs:
		if vaArgs == nil {
			return p.errorf("'__VA_ARGS__' macro expansion failed!")
		}
		var tok lexer.Token
		for vaArgs.nextToken(&tok) {
			stringAppendToken(&tok, out)
			if vaArgs.tokensLeft() != 0 {
				out.WriteString(", ")
			}
		}
		vaArgs.reset()

	default:
		return p.errorf("undefined built-in macro expansion!")
	}
	return nil
}

// DefineToken adds or replaces a macro mapping the given name to a
// single token value.
func (p *Preprocessor) DefineToken(macroName string, value lexer.Token, allowRedefinition bool) bool {
	hashedName := hashString(macroName)
	macroIndex := p.macroFindIndex(hashedName)

	newMacro := macroDef{
		hashedName:     hashedName,
		firstBodyToken: uint32(len(p.macroTokens)),
		bodyTokenCount: 1,
	}

	if macroIndex >= 0 { // redefined
		if !allowRedefinition {
			return false
		}
		p.macroClearTokens(&p.macros[macroIndex])
		p.macros[macroIndex] = newMacro
	} else { // new definition
		p.macros = append(p.macros, newMacro)
	}

	p.macroTokens = append(p.macroTokens, value)
	return true
}

// DefineString adds or replaces a macro with a string token value.
func (p *Preprocessor) DefineString(macroName, value string, allowRedefinition bool) bool {
	var tok lexer.Token
	tok.SetKind(lexer.KindString)
	tok.SetText(value)
	return p.DefineToken(macroName, tok, allowRedefinition)
}

// DefineInt64 adds or replaces a macro with an integer token value.
func (p *Preprocessor) DefineInt64(macroName string, value int64, allowRedefinition bool) bool {
	var tok lexer.Token
	tok.SetKind(lexer.KindNumber)
	tok.SetFlags(lexer.FlagInteger | lexer.FlagDecimal | lexer.FlagSignedInt)
	tok.SetText(fmt.Sprintf("%d", value))
	return p.DefineToken(macroName, tok, allowRedefinition)
}

// DefineFloat64 adds or replaces a macro with a floating-point token
// value.
func (p *Preprocessor) DefineFloat64(macroName string, value float64, allowRedefinition bool) bool {
	var tok lexer.Token
	tok.SetKind(lexer.KindNumber)
	tok.SetFlags(lexer.FlagFloat | lexer.FlagDoublePrec)
	tok.SetText(fmt.Sprintf("%.20f", value))
	return p.DefineToken(macroName, tok, allowRedefinition)
}

// DefineRaw parses a whole "#define NAME body" string, accepting the
// same syntax as the #define directive, parameter lists included.
func (p *Preprocessor) DefineRaw(defineString string, allowRedefinition bool) error {
	if defineString == "" {
		return fmt.Errorf("preproc: empty define string")
	}

	lx := lexer.NewFromString(defineString, "(define-string)",
		lexer.NoFatalErrors|lexer.NoErrors|lexer.NoWarnings|lexer.NoStringConcat)

	// The string must start with "#define":
	var tok lexer.Token
	if lx.NextToken(&tok) != nil || !lexer.IsPunctID(&tok, lexer.PunctPreproc) {
		return fmt.Errorf("preproc: define string must start with '#define'")
	}
	if lx.NextToken(&tok) != nil || tok.Text() != "define" {
		return fmt.Errorf("preproc: define string must start with '#define'")
	}

	if !allowRedefinition {
		if lx.NextToken(&tok) != nil || p.IsDefined(tok.Text()) {
			return fmt.Errorf("preproc: macro '%s' is already defined", tok.Text())
		}
		lx.UngetToken(&tok)
	}

	oldScript := p.cur
	p.cur = lx
	err := p.resolveDefineDirective()
	p.cur = oldScript
	return err
}

// IsDefined reports whether the given macro name is defined.
func (p *Preprocessor) IsDefined(macroName string) bool {
	return p.macroFindIndex(hashString(macroName)) >= 0
}

// Undef removes a macro definition. Unknown names are ignored.
func (p *Preprocessor) Undef(macroName string) {
	p.macroUndefine(macroName)
}

// UndefAll removes every macro definition, optionally restoring the
// built-in macros.
func (p *Preprocessor) UndefAll(keepBuiltins bool) {
	p.macros = p.macros[:0]
	p.macroTokens = p.macroTokens[:0]

	if keepBuiltins {
		p.macroDefineBuiltins()
	}
}

// FindMacroToken looks up a simple '#define FOO bar' macro: one body
// token, no parameters.
func (p *Preprocessor) FindMacroToken(macroName string) (lexer.Token, bool) {
	macroIndex := p.macroFindIndex(hashString(macroName))
	if macroIndex < 0 {
		return lexer.Token{}, false
	}

	macro := &p.macros[macroIndex]
	if macro.paramTokenCount != 0 || macro.bodyTokenCount != 1 {
		return lexer.Token{}, false
	}
	return p.macroTokens[macro.firstBodyToken], true
}

// FindMacroTokens returns the body tokens of a macro, nil if the name
// is not defined or the body is empty.
func (p *Preprocessor) FindMacroTokens(macroName string) []lexer.Token {
	macroIndex := p.macroFindIndex(hashString(macroName))
	if macroIndex < 0 {
		return nil
	}

	macro := &p.macros[macroIndex]
	if macro.bodyTokenCount == 0 {
		return nil
	}
	return p.macroTokens[macro.firstBodyToken : macro.firstBodyToken+macro.bodyTokenCount]
}

// FindMacroValueString returns the text of a simple one-token macro.
func (p *Preprocessor) FindMacroValueString(macroName string) (string, bool) {
	tok, ok := p.FindMacroToken(macroName)
	if !ok {
		return "", false
	}
	return tok.Text(), true
}

// FindMacroValueInt64 returns the value of a simple numeric macro.
func (p *Preprocessor) FindMacroValueInt64(macroName string) (int64, bool) {
	tok, ok := p.FindMacroToken(macroName)
	if !ok || !tok.IsNumber() {
		return 0, false
	}
	return tok.AsInt64(), true
}

// FindMacroValueFloat64 returns the value of a simple numeric macro.
func (p *Preprocessor) FindMacroValueFloat64(macroName string) (float64, bool) {
	tok, ok := p.FindMacroToken(macroName)
	if !ok || !tok.IsNumber() {
		return 0, false
	}
	return tok.AsFloat64(), true
}
