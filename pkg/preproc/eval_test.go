package preproc

import (
	"math"
	"strings"
	"testing"
)

func TestEvalDirectives(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$evalint((1+2)+(3+4))", "10"},
		{"$evalint(2*3+1)", "7"},
		{"$evalint(1-2*2)", "-3"},
		{"$evalint(0+~1)", "-2"},
		{"$evalint(!0)", "1"},
		{"$evalint(!42)", "0"},
		{"$evalint((1?42:666)+1)", "43"},
		{"$evalint((0?42:666)+1)", "667"},
		{"$evalint(1 << 4)", "16"},
		{"$evalint(0xFF & 0x0F)", "15"},
		{"$evalint(7 % 4)", "3"},
		{"$evalint(1 && 0 || 1)", "1"},
		{"$evalint(-(2+3))", "-5"},
		{"$evalint(floor(2.9))", "2"},
		{"$evalint(abs(0-4))", "4"},
	}

	for i, tt := range tests {
		out, err := preprocessString(t, tt.input, 0)
		if err != nil {
			t.Fatalf("tests[%d] - Preprocess failed: %v", i, err)
		}
		if got := normalize(out); got != tt.expected {
			t.Errorf("tests[%d] - result wrong. expected=%q, got=%q", i, tt.expected, got)
		}
	}
}

func TestEvalFloatDirectives(t *testing.T) {
	tests := []struct {
		input    string
		expected string // prefix of the formatted result
	}{
		{"$eval(1.0/2.0)", "0.5"},
		{"$eval(PI)", "3.14159265358979"},
		{"$eval(sqrt(16.0))", "4.0"},
		{"$evalfloat(3)", "3.0"},
	}

	for i, tt := range tests {
		out, err := preprocessString(t, tt.input, 0)
		if err != nil {
			t.Fatalf("tests[%d] - Preprocess failed: %v", i, err)
		}
		got := normalize(out)
		if !strings.HasPrefix(got, tt.expected) {
			t.Errorf("tests[%d] - result wrong. expected prefix=%q, got=%q", i, tt.expected, got)
		}
	}
}

func TestEvalUsesMacros(t *testing.T) {
	input := "#define WIDTH 4\n#define HEIGHT 8\n$evalint(WIDTH * HEIGHT)"
	out, err := preprocessString(t, input, 0)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if got := normalize(out); got != "32" {
		t.Errorf("result wrong. expected=%q, got=%q", "32", got)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []string{
		"$evalint(1/0)",
		"$evalint(1%0)",
		"$eval(1.0/0.0)",
		"$evalint(1+)",
		"$evalint(*1)",
		"$evalint((1+2)",
		"$evalint(~1.5)",
		"$evalint(1.5 % 2.0)",
		"$evalint(NOT_DEFINED)", // eval does not zero undefined names
		"$bogus(1)",
		"$evalint 1+1", // missing '('
	}

	for i, input := range tests {
		if _, err := preprocessString(t, input, NoErrors); err == nil {
			t.Errorf("tests[%d] - expected an error for %q", i, input)
		}
	}
}

func TestEvalDollarDisabled(t *testing.T) {
	// With the dollar directives disabled the '$' passes through as a
	// plain punctuation token.
	out, err := preprocessString(t, "$evalint(1+1)", NoDollarDirectives)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if got := normalize(out); !strings.HasPrefix(got, "$") {
		t.Errorf("expected '$' to pass through, got=%q", got)
	}
}

func TestEvalAPI(t *testing.T) {
	p := New(0)

	tests := []struct {
		expr     string
		expected int64
	}{
		{"2*3+1", 7},
		{"(1+2)*(3+4)", 21},
		{"1 << 8", 256},
		{"10 > 3", 1},
		{"", 0},
	}

	for i, tt := range tests {
		iv, _, err := p.Eval(tt.expr, false, false, false)
		if err != nil {
			t.Fatalf("tests[%d] - Eval failed: %v", i, err)
		}
		if iv != tt.expected {
			t.Errorf("tests[%d] - result wrong. expected=%d, got=%d", i, tt.expected, iv)
		}
	}
}

func TestEvalAPIFloat(t *testing.T) {
	p := New(0)

	_, fv, err := p.Eval("sqrt(2.0)", true, true, false)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if math.Abs(fv-math.Sqrt2) > 1e-9 {
		t.Errorf("result wrong. expected=%v, got=%v", math.Sqrt2, fv)
	}

	iv, fv, err := p.Eval("DEG2RAD * 180.0", true, false, false)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if math.Abs(fv-math.Pi) > 1e-9 {
		t.Errorf("result wrong. expected=%v, got=%v", math.Pi, fv)
	}
	if iv != 3 {
		t.Errorf("integer result wrong. expected=3, got=%d", iv)
	}
}

func TestEvalAPIMacros(t *testing.T) {
	p := New(0)
	p.DefineInt64("N", 6, false)

	iv, _, err := p.Eval("N * 7", false, false, false)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if iv != 42 {
		t.Errorf("result wrong. expected=42, got=%d", iv)
	}

	if _, _, err := p.Eval("M * 7", false, false, false); err == nil {
		t.Errorf("expected an error for an undefined name")
	}
	iv, _, err = p.Eval("M * 7", false, false, true)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if iv != 0 {
		t.Errorf("result wrong. expected=0, got=%d", iv)
	}
}
