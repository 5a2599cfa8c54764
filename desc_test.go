package classvm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestParseFieldDescriptor(t *testing.T) {
	cases := []struct {
		in   string
		want FieldType
	}{
		{"I", FieldType{Base: 'I'}},
		{"[I", FieldType{ArrayDim: 1, Base: 'I'}},
		{"[[Ljava/lang/String;", FieldType{ArrayDim: 2, Base: 'L', Name: "java/lang/String"}},
		{"Ljava/lang/Thread;", FieldType{Base: 'L', Name: "java/lang/Thread"}},
	}
	for _, c := range cases {
		got, err := ParseFieldDescriptor(c.in)
		assert(t, err == nil, "ParseFieldDescriptor(%q): unexpected error %v", c.in, err)
		assert(t, got == c.want, "ParseFieldDescriptor(%q) = %+v, want %+v", c.in, got, c.want)
	}
}

func TestParseFieldDescriptorMalformed(t *testing.T) {
	cases := []string{
		"",
		"Q",
		"Ljava/lang/String", // unterminated
		"II",                // trailing data
		"L;",                // empty object name
	}
	for _, c := range cases {
		_, err := ParseFieldDescriptor(c)
		assert(t, err != nil, "ParseFieldDescriptor(%q): expected error, got nil", c)
		assert(t, errors.Is(err, ErrMalformedDescriptor), "ParseFieldDescriptor(%q): expected ErrMalformedDescriptor, got %v", c, err)
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	desc, err := ParseMethodDescriptor("(IDLjava/lang/Thread;)Ljava/lang/Object;")
	assert(t, err == nil, "unexpected error: %v", err)
	want := MethodDescriptor{
		Params: []FieldType{
			{Base: 'I'},
			{Base: 'D'},
			{Base: 'L', Name: "java/lang/Thread"},
		},
		Return: FieldType{Base: 'L', Name: "java/lang/Object"},
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Fatalf("ParseMethodDescriptor result mismatch (-want +got):\n%s", diff)
	}

	desc, err = ParseMethodDescriptor("(IDLjava/lang/Thread;)V")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, desc.Void, "expected void return")
}

func TestParseMethodDescriptorMalformed(t *testing.T) {
	cases := []string{
		"IDV)",
		"(II",
		"()Q",
	}
	for _, c := range cases {
		_, err := ParseMethodDescriptor(c)
		assert(t, err != nil, "ParseMethodDescriptor(%q): expected error, got nil", c)
	}
}

func TestParseMethodDescriptorParamLimit(t *testing.T) {
	s := "("
	for i := 0; i < 255; i++ {
		s += "I"
	}
	s += ")V"
	_, err := ParseMethodDescriptor(s)
	assert(t, err != nil, "expected error for 255 parameters")
	assert(t, errors.Is(err, ErrMalformedDescriptor), "expected ErrMalformedDescriptor, got %v", err)
}
