package preproc

import (
	"fmt"
	"math"

	"github.com/glampert/parse-utils/pkg/lexer"
)

type evalFlags uint32

const (
	evalDetectType evalFlags = 1 << iota
	evalForceInt
	evalForceFloat
	evalMathFuncs
	evalMathConsts
	evalUndefinedZero
)

type evalValueType uint8

const (
	evalTypeInt evalValueType = iota
	evalTypeDouble
)

type evalValue struct {
	typ evalValueType
	i   int64
	f   float64
}

func intValue(i int64) evalValue      { return evalValue{typ: evalTypeInt, i: i} }
func doubleValue(f float64) evalValue { return evalValue{typ: evalTypeDouble, f: f} }

func (v evalValue) asBool() bool {
	if v.typ == evalTypeDouble {
		return v.f != 0
	}
	return v.i != 0
}

func (v evalValue) asInt64() int64 {
	if v.typ == evalTypeDouble {
		return int64(v.f)
	}
	return v.i
}

func (v evalValue) asFloat64() float64 {
	if v.typ == evalTypeDouble {
		return v.f
	}
	return float64(v.i)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

type mathFuncDef struct {
	name string
	fn   func(float64) float64
}

type mathConstDef struct {
	name  string
	value float64
}

const (
	evalPi     = 3.14159265358979323846
	evalEulers = 2.71828182845904523536
)

var builtinMathFuncs = []mathFuncDef{
	{"abs", math.Abs},
	{"sqrt", math.Sqrt},
	{"sin", math.Sin},
	{"cos", math.Cos},
	{"tan", math.Tan},
	{"asin", math.Asin},
	{"acos", math.Acos},
	{"atan", math.Atan},
	{"ceil", math.Ceil},
	{"floor", math.Floor},
	{"round", math.Round},
	{"exp", math.Exp},
	{"exp2", math.Exp2},
	{"ln", math.Log},
	{"log2", math.Log2},
	{"log10", math.Log10},
}

var builtinMathConsts = []mathConstDef{
	{"PI", evalPi},
	{"E", evalEulers},
	{"TAU", evalPi * 2},
	{"INV_TAU", 1 / (evalPi * 2)},
	{"HALF_PI", evalPi / 2},
	{"INV_PI", 1 / evalPi},
	{"DEG2RAD", evalPi / 180},
	{"RAD2DEG", 180 / evalPi},
}

func findMathFunc(name string) func(float64) float64 {
	for i := range builtinMathFuncs {
		if builtinMathFuncs[i].name == name {
			return builtinMathFuncs[i].fn
		}
	}
	return nil
}

func findMathConst(name string) (float64, bool) {
	for i := range builtinMathConsts {
		if builtinMathConsts[i].name == name {
			return builtinMathConsts[i].value, true
		}
	}
	return 0, false
}

// valueNode and opNode form two doubly-linked lists over arena slices,
// linked by index. -1 means no link.
type valueNode struct {
	prev, next int32
	val        evalValue
	parens     int32
}

type opNode struct {
	prev, next int32
	fn         func(float64) float64
	prec       int32
	parens     int32
	op         lexer.PunctID
}

// mathFuncPrecedence binds a math function call tighter than any
// operator, so the call applies to the parenthesized value alone.
const mathFuncPrecedence = 999

// evaluator folds a list of tokens into a single numeric value using
// the usual C operator precedence rules.
type evaluator struct {
	pp     *Preprocessor
	tokens []lexer.Token

	vals []valueNode
	ops  []opNode

	firstVal, lastVal int32
	firstOp, lastOp   int32
}

func newEvaluator(p *Preprocessor) *evaluator {
	return &evaluator{
		pp:       p,
		firstVal: -1,
		lastVal:  -1,
		firstOp:  -1,
		lastOp:   -1,
	}
}

func (e *evaluator) pushToken(tok lexer.Token) {
	e.tokens = append(e.tokens, tok)
}

func (e *evaluator) tokenCount() int {
	return len(e.tokens)
}

func (e *evaluator) newValue(v evalValue, parens int32) {
	idx := int32(len(e.vals))
	e.vals = append(e.vals, valueNode{prev: e.lastVal, next: -1, val: v, parens: parens})
	if e.lastVal < 0 {
		e.firstVal = idx
	} else {
		e.vals[e.lastVal].next = idx
	}
	e.lastVal = idx
}

func (e *evaluator) newOp(op lexer.PunctID, fn func(float64) float64, prec, parens int32) {
	idx := int32(len(e.ops))
	e.ops = append(e.ops, opNode{prev: e.lastOp, next: -1, fn: fn, prec: prec, parens: parens, op: op})
	if e.lastOp < 0 {
		e.firstOp = idx
	} else {
		e.ops[e.lastOp].next = idx
	}
	e.lastOp = idx
}

func (e *evaluator) removeValue(idx int32) {
	prev, next := e.vals[idx].prev, e.vals[idx].next
	if prev >= 0 {
		e.vals[prev].next = next
	} else {
		e.firstVal = next
	}
	if next >= 0 {
		e.vals[next].prev = prev
	} else {
		e.lastVal = prev
	}
}

func (e *evaluator) removeOp(idx int32) {
	prev, next := e.ops[idx].prev, e.ops[idx].next
	if prev >= 0 {
		e.ops[prev].next = next
	} else {
		e.firstOp = next
	}
	if next >= 0 {
		e.ops[next].prev = prev
	} else {
		e.lastOp = prev
	}
}

func opPrecedence(op lexer.PunctID) int32 {
	switch op {
	case lexer.PunctColon, lexer.PunctQuestion:
		return 5
	case lexer.PunctLogicOr:
		return 6
	case lexer.PunctLogicAnd:
		return 7
	case lexer.PunctBitOr:
		return 8
	case lexer.PunctBitXor:
		return 9
	case lexer.PunctBitAnd:
		return 10
	case lexer.PunctLogicEq, lexer.PunctLogicNotEq:
		return 11
	case lexer.PunctLogicGreater, lexer.PunctLogicLess,
		lexer.PunctLogicGreaterEq, lexer.PunctLogicLessEq:
		return 12
	case lexer.PunctRShift, lexer.PunctLShift:
		return 13
	case lexer.PunctAdd, lexer.PunctSub:
		return 14
	case lexer.PunctMul, lexer.PunctDiv, lexer.PunctMod:
		return 15
	case lexer.PunctBitNot:
		return 16
	case lexer.PunctLogicNot:
		return 17
	default:
		return 0
	}
}

// evaluate folds the pushed tokens, optionally writing the result as
// a number token to resultToken. An empty token list evaluates to an
// integer zero with a warning.
func (e *evaluator) evaluate(resultToken *lexer.Token, flags evalFlags) (evalValue, error) {
	if len(e.tokens) == 0 {
		e.pp.warnf("empty preprocessor eval directive.")
		if resultToken != nil {
			*resultToken = valueToToken(evalValue{}, flags)
		}
		return evalValue{}, nil
	}

	val, err := e.processTokens(flags)
	if err != nil {
		return evalValue{}, err
	}
	if resultToken != nil {
		*resultToken = valueToToken(val, flags)
	}
	return val, nil
}

func (e *evaluator) processTokens(flags evalFlags) (evalValue, error) {
	lastWasValue := false
	negativeValue := false
	var parensCount int32

	//
	// Build the value and operator lists:
	//
	for i := 0; i < len(e.tokens); i++ {
		tok := &e.tokens[i]

		switch {
		case tok.IsIdent():
			if lastWasValue {
				return evalValue{}, e.pp.errorf("syntax error in preprocessor expression!")
			}
			if negativeValue {
				e.emitMulByMinus1(parensCount)
				negativeValue = false
			}

			if tok.Text() == "defined" {
				if err := e.resolveDefinedSubexpr(&i, parensCount, flags); err != nil {
					return evalValue{}, err
				}
				lastWasValue = true
				continue
			}

			if tok.IsBoolean() {
				e.newValue(intValue(boolToInt(tok.AsBool())), parensCount)
				lastWasValue = true
				continue
			}

			if flags&evalMathFuncs != 0 {
				if fn := findMathFunc(tok.Text()); fn != nil {
					// A dummy value keeps the lists paired; the call
					// applies to the next parenthesized value.
					e.newOp(lexer.PunctNone, fn, mathFuncPrecedence, parensCount)
					e.newValue(intValue(0), parensCount)
					continue
				}
			}

			if macroTok, ok := e.pp.FindMacroToken(tok.Text()); ok {
				v, err := e.tokenToValue(&macroTok, false)
				if err != nil {
					return evalValue{}, err
				}
				e.newValue(v, parensCount)
			} else if constVal, isConst := mathConstLookup(tok.Text(), flags); isConst {
				e.newValue(doubleValue(constVal), parensCount)
			} else if flags&evalUndefinedZero != 0 {
				e.newValue(intValue(0), parensCount)
			} else {
				return evalValue{}, e.pp.errorf(
					"reference to undefined preprocessor constant '%s'.", tok.Text())
			}
			lastWasValue = true

		case tok.IsNumber():
			if lastWasValue {
				return evalValue{}, e.pp.errorf("syntax error in preprocessor expression!")
			}
			v, err := e.tokenToValue(tok, negativeValue)
			if err != nil {
				return evalValue{}, err
			}
			e.newValue(v, parensCount)
			negativeValue = false
			lastWasValue = true

		case tok.IsPunct():
			op := tok.PunctID()

			if op == lexer.PunctOpenParen {
				if negativeValue {
					e.emitMulByMinus1(parensCount)
					lastWasValue = false
					negativeValue = false
				}
				parensCount++
				continue
			}
			if op == lexer.PunctCloseParen {
				parensCount--
				if parensCount < 0 {
					return evalValue{}, e.pp.errorf("too many ')' in preprocessor directive!")
				}
				continue
			}

			if negativeValue {
				switch op {
				case lexer.PunctSub: // "--" cancels out
					negativeValue = false
					continue
				case lexer.PunctAdd: // "-+" is still just a minus
					continue
				case lexer.PunctLogicNot, lexer.PunctBitNot:
					e.emitMulByMinus1(parensCount)
					lastWasValue = false
					negativeValue = false
				default:
					return evalValue{}, e.pp.errorf("misplaced minus sign in preprocessor expression!")
				}
			}

			switch op {
			case lexer.PunctLogicNot, lexer.PunctBitNot:
				if lastWasValue {
					return evalValue{}, e.pp.errorf(
						"invalid logic not or two's complement after value in preprocessor expression.")
				}
			case lexer.PunctSub:
				if !lastWasValue {
					negativeValue = true
					continue
				}
			case lexer.PunctAdd:
				if !lastWasValue {
					continue // unary plus is a no-op
				}
			case lexer.PunctMul, lexer.PunctDiv, lexer.PunctMod,
				lexer.PunctRShift, lexer.PunctLShift,
				lexer.PunctLogicAnd, lexer.PunctLogicOr,
				lexer.PunctLogicEq, lexer.PunctLogicNotEq,
				lexer.PunctLogicGreater, lexer.PunctLogicLess,
				lexer.PunctLogicGreaterEq, lexer.PunctLogicLessEq,
				lexer.PunctBitAnd, lexer.PunctBitOr, lexer.PunctBitXor,
				lexer.PunctColon, lexer.PunctQuestion:
				if !lastWasValue {
					return evalValue{}, e.pp.errorf(
						"invalid operator '%s' after operator in preprocessor expression.", tok.Text())
				}
			default:
				return evalValue{}, e.pp.errorf(
					"invalid operator '%s' in preprocessor expression.", tok.Text())
			}

			e.newOp(op, nil, opPrecedence(op), parensCount)
			lastWasValue = false

		default:
			return evalValue{}, e.pp.errorf(
				"unexpected token '%s' in preprocessor directive!", tok.Text())
		}
	}

	if !lastWasValue {
		return evalValue{}, e.pp.errorf("trailing operator in preprocessor expression!")
	}
	if parensCount > 0 {
		return evalValue{}, e.pp.errorf("too many '(' in preprocessor directive!")
	}

	//
	// Reduce, highest parenthesis depth and precedence first:
	//
	var condValue evalValue
	hasCond := false

	for e.firstOp >= 0 {
		v := e.firstVal
		o := e.firstOp

		for e.ops[o].next >= 0 {
			next := e.ops[o].next
			if e.ops[o].parens > e.ops[next].parens {
				break
			}
			if e.ops[o].parens == e.ops[next].parens && e.ops[o].prec >= e.ops[next].prec {
				break
			}
			if e.ops[o].op != lexer.PunctLogicNot && e.ops[o].op != lexer.PunctBitNot {
				v = e.vals[v].next
				if v < 0 {
					return evalValue{}, e.pp.errorf("expected more values in preprocessor expression!")
				}
			}
			o = next
		}

		v1 := v
		v2 := e.vals[v1].next
		unaryOp := e.ops[o].op == lexer.PunctLogicNot || e.ops[o].op == lexer.PunctBitNot

		if !unaryOp && v2 < 0 {
			return evalValue{}, e.pp.errorf("expected more values in preprocessor expression!")
		}

		switch {
		case e.ops[o].op == lexer.PunctLogicNot:
			if e.vals[v1].val.typ == evalTypeDouble {
				e.vals[v1].val.f = float64(boolToInt(e.vals[v1].val.f == 0))
			} else {
				e.vals[v1].val.i = boolToInt(e.vals[v1].val.i == 0)
			}

		case e.ops[o].op == lexer.PunctBitNot:
			if e.vals[v1].val.typ == evalTypeDouble {
				return evalValue{}, e.pp.errorf(
					"operator '~' cannot be applied to floating-point value!")
			}
			e.vals[v1].val.i = ^e.vals[v1].val.i

		case e.ops[o].op == lexer.PunctColon:
			if !hasCond {
				return evalValue{}, e.pp.errorf("':' without '?' in preprocessor directive!")
			}
			if !condValue.asBool() {
				e.vals[v1].val = e.vals[v2].val
			}
			hasCond = false

		case e.ops[o].op == lexer.PunctQuestion:
			if hasCond {
				return evalValue{}, e.pp.errorf("'?' after '?' in preprocessor directive!")
			}
			condValue = e.vals[v1].val
			hasCond = true

		default:
			var result evalValue
			var err error
			if e.ops[o].fn != nil { // math function call
				result = doubleValue(e.ops[o].fn(e.vals[v2].val.asFloat64()))
			} else {
				result, err = e.resolveSubexpr(e.vals[v1].val, e.vals[v2].val, e.ops[o].op)
				if err != nil {
					return evalValue{}, err
				}
			}
			e.vals[v1].val = result
		}

		// Splice out the consumed value and the operator:
		if !unaryOp {
			if e.ops[o].op != lexer.PunctQuestion {
				v = e.vals[v].next
			}
			e.removeValue(v)
		}
		e.removeOp(o)
	}

	return e.vals[e.firstVal].val, nil
}

func (e *evaluator) emitMulByMinus1(parens int32) {
	e.newValue(intValue(-1), parens)
	e.newOp(lexer.PunctMul, nil, opPrecedence(lexer.PunctMul), parens)
}

// resolveDefinedSubexpr handles 'defined NAME' and 'defined(NAME)',
// consuming the extra tokens and pushing a boolean value.
func (e *evaluator) resolveDefinedSubexpr(i *int, parens int32, flags evalFlags) error {
	*i++
	if *i >= len(e.tokens) {
		return e.pp.errorf("preprocessor 'defined' directive without identifier!")
	}

	hasParens := false
	if lexer.IsPunctID(&e.tokens[*i], lexer.PunctOpenParen) {
		hasParens = true
		*i++
		if *i >= len(e.tokens) {
			return e.pp.errorf("preprocessor 'defined' directive without identifier!")
		}
	}

	tok := &e.tokens[*i]
	if !tok.IsIdent() {
		return e.pp.errorf("preprocessor 'defined' directive without identifier!")
	}

	var defined bool
	if _, isConst := mathConstLookup(tok.Text(), flags); isConst {
		defined = true
	} else {
		defined = e.pp.IsDefined(tok.Text())
	}

	if hasParens {
		*i++
		if *i >= len(e.tokens) || !lexer.IsPunctID(&e.tokens[*i], lexer.PunctCloseParen) {
			return e.pp.errorf("preprocessor 'defined' directive missing closing parentheses.")
		}
	}

	e.newValue(intValue(boolToInt(defined)), parens)
	return nil
}

func mathConstLookup(name string, flags evalFlags) (float64, bool) {
	if flags&evalMathConsts == 0 {
		return 0, false
	}
	return findMathConst(name)
}

func (e *evaluator) resolveSubexpr(v1, v2 evalValue, op lexer.PunctID) (evalValue, error) {
	if v1.typ == evalTypeInt && v2.typ == evalTypeInt {
		return e.applyOpInt(v1.i, v2.i, op)
	}
	return e.applyOpDouble(v1.asFloat64(), v2.asFloat64(), op)
}

func (e *evaluator) applyOpInt(a, b int64, op lexer.PunctID) (evalValue, error) {
	if (op == lexer.PunctDiv || op == lexer.PunctMod) && b == 0 {
		return evalValue{}, e.pp.errorf("integer division by zero in preprocessor expression!")
	}

	switch op {
	case lexer.PunctAdd:
		return intValue(a + b), nil
	case lexer.PunctSub:
		return intValue(a - b), nil
	case lexer.PunctMul:
		return intValue(a * b), nil
	case lexer.PunctDiv:
		return intValue(a / b), nil
	case lexer.PunctMod:
		return intValue(a % b), nil
	case lexer.PunctRShift:
		return intValue(a >> uint64(b)), nil
	case lexer.PunctLShift:
		return intValue(a << uint64(b)), nil
	case lexer.PunctLogicAnd:
		return intValue(boolToInt(a != 0 && b != 0)), nil
	case lexer.PunctLogicOr:
		return intValue(boolToInt(a != 0 || b != 0)), nil
	case lexer.PunctLogicEq:
		return intValue(boolToInt(a == b)), nil
	case lexer.PunctLogicNotEq:
		return intValue(boolToInt(a != b)), nil
	case lexer.PunctLogicGreater:
		return intValue(boolToInt(a > b)), nil
	case lexer.PunctLogicLess:
		return intValue(boolToInt(a < b)), nil
	case lexer.PunctLogicGreaterEq:
		return intValue(boolToInt(a >= b)), nil
	case lexer.PunctLogicLessEq:
		return intValue(boolToInt(a <= b)), nil
	case lexer.PunctBitAnd:
		return intValue(a & b), nil
	case lexer.PunctBitOr:
		return intValue(a | b), nil
	case lexer.PunctBitXor:
		return intValue(a ^ b), nil
	default:
		return evalValue{}, e.pp.errorf(
			"operator '%s' is not legal in integer preprocessor expression!", lexer.PunctString(op))
	}
}

func (e *evaluator) applyOpDouble(a, b float64, op lexer.PunctID) (evalValue, error) {
	if op == lexer.PunctDiv && b == 0 {
		return evalValue{}, e.pp.errorf("floating-point division by zero in preprocessor expression!")
	}

	switch op {
	case lexer.PunctAdd:
		return doubleValue(a + b), nil
	case lexer.PunctSub:
		return doubleValue(a - b), nil
	case lexer.PunctMul:
		return doubleValue(a * b), nil
	case lexer.PunctDiv:
		return doubleValue(a / b), nil
	case lexer.PunctLogicAnd:
		return intValue(boolToInt(a != 0 && b != 0)), nil
	case lexer.PunctLogicOr:
		return intValue(boolToInt(a != 0 || b != 0)), nil
	case lexer.PunctLogicEq:
		return intValue(boolToInt(a == b)), nil
	case lexer.PunctLogicNotEq:
		return intValue(boolToInt(a != b)), nil
	case lexer.PunctLogicGreater:
		return intValue(boolToInt(a > b)), nil
	case lexer.PunctLogicLess:
		return intValue(boolToInt(a < b)), nil
	case lexer.PunctLogicGreaterEq:
		return intValue(boolToInt(a >= b)), nil
	case lexer.PunctLogicLessEq:
		return intValue(boolToInt(a <= b)), nil
	default:
		return evalValue{}, e.pp.errorf(
			"operator '%s' is not legal in floating-point preprocessor expression!", lexer.PunctString(op))
	}
}

func (e *evaluator) tokenToValue(tok *lexer.Token, negate bool) (evalValue, error) {
	switch {
	case tok.IsInteger() || tok.IsBoolean():
		i := tok.AsInt64()
		if negate {
			i = -i
		}
		return intValue(i), nil
	case tok.IsFloat():
		f := tok.AsFloat64()
		if negate {
			f = -f
		}
		return doubleValue(f), nil
	default:
		return evalValue{}, e.pp.errorf(
			"expected number or boolean value in preprocessor expression, got '%s'.", tok.Text())
	}
}

// valueToToken writes the result back as a number token, padded with
// spaces so it never merges with neighboring output tokens.
func valueToToken(v evalValue, flags evalFlags) lexer.Token {
	var tok lexer.Token
	tok.SetKind(lexer.KindNumber)

	switch {
	case flags&evalForceInt != 0:
		tok.SetFlags(lexer.FlagInteger | lexer.FlagDecimal | lexer.FlagSignedInt)
		tok.SetText(fmt.Sprintf(" %d ", v.asInt64()))
	case flags&evalForceFloat != 0:
		tok.SetFlags(lexer.FlagFloat | lexer.FlagDoublePrec)
		tok.SetText(fmt.Sprintf(" %f ", v.asFloat64()))
	case v.typ == evalTypeDouble:
		tok.SetFlags(lexer.FlagFloat | lexer.FlagDoublePrec)
		tok.SetText(fmt.Sprintf(" %.20f ", v.f))
	default:
		tok.SetFlags(lexer.FlagInteger | lexer.FlagDecimal | lexer.FlagSignedInt)
		tok.SetText(fmt.Sprintf(" %d ", v.i))
	}
	return tok
}

// Eval evaluates a standalone constant expression, returning the
// result as both an integer and a float. An empty expression yields
// zero.
func (p *Preprocessor) Eval(expression string, mathConsts, mathFuncs, undefinedZero bool) (int64, float64, error) {
	if expression == "" {
		return 0, 0, nil
	}

	lx := lexer.NewFromString(expression, "(eval-string)", p.lexerFlags(0))
	ev := newEvaluator(p)

	var tok lexer.Token
	for lx.NextToken(&tok) == nil {
		ev.pushToken(tok)
	}

	flags := evalDetectType
	if mathConsts {
		flags |= evalMathConsts
	}
	if mathFuncs {
		flags |= evalMathFuncs
	}
	if undefinedZero {
		flags |= evalUndefinedZero
	}

	val, err := ev.evaluate(nil, flags)
	if err != nil {
		return 0, 0, err
	}
	return val.asInt64(), val.asFloat64(), nil
}
