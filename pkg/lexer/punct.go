package lexer

// PunctID tags each punctuation in a punctuation table. The ids below
// belong to the default C/C++ set; custom tables may reuse them or
// define their own numbering.
type PunctID uint8

const (
	PunctNone PunctID = iota
	PunctAssign
	PunctAdd
	PunctSub
	PunctMul
	PunctDiv
	PunctMod
	PunctRShift
	PunctLShift
	PunctAddAssign
	PunctSubAssign
	PunctMulAssign
	PunctDivAssign
	PunctDivModAssign
	PunctRShiftAssign
	PunctLShiftAssign
	PunctLogicAnd
	PunctLogicOr
	PunctLogicNot
	PunctLogicEq
	PunctLogicNotEq
	PunctLogicGreater
	PunctLogicLess
	PunctLogicGreaterEq
	PunctLogicLessEq
	PunctPlusPlus
	PunctMinusMinus
	PunctBitAnd
	PunctBitOr
	PunctBitXor
	PunctBitNot
	PunctBitAndAssign
	PunctBitOrAssign
	PunctBitXorAssign
	PunctDot
	PunctArrow
	PunctColonColon
	PunctDotStar
	PunctComma
	PunctSemicolon
	PunctColon
	PunctQuestion
	PunctEllipsis
	PunctBackslash
	PunctOpenParen
	PunctCloseParen
	PunctOpenBracket
	PunctCloseBracket
	PunctOpenBrace
	PunctCloseBrace
	PunctPreproc
	PunctPreprocMerge
	PunctDollar
)

// PunctDef pairs a punctuation string with its id.
type PunctDef struct {
	Str string
	ID  PunctID
}

// DefaultPunctuations is the default C/C++ punctuation set. Slot zero
// is reserved so that a PunctID of zero always means "no punctuation".
var DefaultPunctuations = []PunctDef{
	{"", PunctNone},
	{"=", PunctAssign},
	{"+", PunctAdd},
	{"-", PunctSub},
	{"*", PunctMul},
	{"/", PunctDiv},
	{"%", PunctMod},
	{">>", PunctRShift},
	{"<<", PunctLShift},
	{"+=", PunctAddAssign},
	{"-=", PunctSubAssign},
	{"*=", PunctMulAssign},
	{"/=", PunctDivAssign},
	{"%=", PunctDivModAssign},
	{">>=", PunctRShiftAssign},
	{"<<=", PunctLShiftAssign},
	{"&&", PunctLogicAnd},
	{"||", PunctLogicOr},
	{"!", PunctLogicNot},
	{"==", PunctLogicEq},
	{"!=", PunctLogicNotEq},
	{">", PunctLogicGreater},
	{"<", PunctLogicLess},
	{">=", PunctLogicGreaterEq},
	{"<=", PunctLogicLessEq},
	{"++", PunctPlusPlus},
	{"--", PunctMinusMinus},
	{"&", PunctBitAnd},
	{"|", PunctBitOr},
	{"^", PunctBitXor},
	{"~", PunctBitNot},
	{"&=", PunctBitAndAssign},
	{"|=", PunctBitOrAssign},
	{"^=", PunctBitXorAssign},
	{".", PunctDot},
	{"->", PunctArrow},
	{"::", PunctColonColon},
	{".*", PunctDotStar},
	{",", PunctComma},
	{";", PunctSemicolon},
	{":", PunctColon},
	{"?", PunctQuestion},
	{"...", PunctEllipsis},
	{"\\", PunctBackslash},
	{"(", PunctOpenParen},
	{")", PunctCloseParen},
	{"[", PunctOpenBracket},
	{"]", PunctCloseBracket},
	{"{", PunctOpenBrace},
	{"}", PunctCloseBrace},
	{"#", PunctPreproc},
	{"##", PunctPreprocMerge},
	{"$", PunctDollar},
}

// PunctTable is a matching table for a punctuation set. Each of the 256
// buckets chains the entries starting with that byte, sorted longest
// first, so a linear walk of a chain yields the longest match.
//
// Tables are immutable once built and safe to share between lexers.
type PunctTable struct {
	defs  []PunctDef
	first [256]int16
	next  []int16
}

// NewPunctTable builds a matching table for the given punctuation set.
// Entry zero of the set is expected to be the empty "none" punctuation.
func NewPunctTable(defs []PunctDef) *PunctTable {
	t := &PunctTable{
		defs: defs,
		next: make([]int16, len(defs)),
	}
	for i := range t.first {
		t.first[i] = -1
	}
	for i := range t.next {
		t.next[i] = -1
	}

	for i := 1; i < len(defs); i++ {
		str := defs[i].Str
		if str == "" {
			continue
		}
		c := str[0]
		// Insert before the first shorter entry in the bucket chain.
		prev := int16(-1)
		n := t.first[c]
		for n >= 0 && len(t.defs[n].Str) >= len(str) {
			prev = n
			n = t.next[n]
		}
		t.next[i] = n
		if prev < 0 {
			t.first[c] = int16(i)
		} else {
			t.next[prev] = int16(i)
		}
	}
	return t
}

var defaultPunctTable = NewPunctTable(DefaultPunctuations)

// DefaultPunctTable returns the shared table for DefaultPunctuations.
func DefaultPunctTable() *PunctTable {
	return defaultPunctTable
}

// FromID returns the punctuation string for the given id, empty if the
// id is not part of this table's set.
func (t *PunctTable) FromID(id PunctID) string {
	if int(id) < len(t.defs) && t.defs[id].ID == id {
		return t.defs[id].Str
	}
	for i := range t.defs {
		if t.defs[i].ID == id {
			return t.defs[i].Str
		}
	}
	return ""
}

// IDFromString returns the id of the given punctuation string,
// PunctNone if the string is not part of this table's set.
func (t *PunctTable) IDFromString(str string) PunctID {
	for i := 1; i < len(t.defs); i++ {
		if t.defs[i].Str == str {
			return t.defs[i].ID
		}
	}
	return PunctNone
}

// match finds the longest punctuation prefixing src.
func (t *PunctTable) match(src string) (PunctDef, bool) {
	if src == "" {
		return PunctDef{}, false
	}
	for n := t.first[src[0]]; n >= 0; n = t.next[n] {
		str := t.defs[n].Str
		if len(str) <= len(src) && src[:len(str)] == str {
			return t.defs[n], true
		}
	}
	return PunctDef{}, false
}

// PunctString resolves an id against the default punctuation set.
func PunctString(id PunctID) string {
	return defaultPunctTable.FromID(id)
}
