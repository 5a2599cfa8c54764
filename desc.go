package classvm

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldType is a parsed field descriptor: zero or more array dimensions
// wrapping either a base type char (one of BCDFIJSZ) or, for object
// types, the internal (slash-separated) class name.
type FieldType struct {
	ArrayDim int
	Base     byte   // one of B C D F I J S Z L; L means Name holds the class
	Name     string // internal name, only meaningful when Base == 'L'
}

func isBaseType(b byte) bool {
	switch b {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return true
	default:
		return false
	}
}

// ParseFieldDescriptor parses a single field descriptor, e.g. "[I" or
// "Ljava/lang/String;", failing if trailing bytes remain.
func ParseFieldDescriptor(s string) (FieldType, error) {
	ft, rest, err := parseFieldDescriptorOne(s)
	if err != nil {
		return FieldType{}, err
	}
	if rest != "" {
		return FieldType{}, errors.Wrapf(ErrMalformedDescriptor, "trailing data in field descriptor %q", s)
	}
	return ft, nil
}

func parseFieldDescriptorOne(s string) (FieldType, string, error) {
	dim := 0
	for strings.HasPrefix(s, "[") {
		dim++
		s = s[1:]
		if dim > 255 {
			return FieldType{}, "", errors.Wrapf(ErrMalformedDescriptor, "array dimension exceeds 255")
		}
	}
	if s == "" {
		return FieldType{}, "", errors.Wrapf(ErrMalformedDescriptor, "empty descriptor after array prefix")
	}
	b := s[0]
	if isBaseType(b) {
		return FieldType{ArrayDim: dim, Base: b}, s[1:], nil
	}
	if b == 'L' {
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return FieldType{}, "", errors.Wrapf(ErrMalformedDescriptor, "unterminated object type in %q", s)
		}
		if end <= 1 {
			return FieldType{}, "", errors.Wrapf(ErrMalformedDescriptor, "empty object type name in %q", s)
		}
		name := s[1:end]
		return FieldType{ArrayDim: dim, Base: 'L', Name: name}, s[end+1:], nil
	}
	return FieldType{}, "", errors.Wrapf(ErrMalformedDescriptor, "unknown field type char %q", string(b))
}

// MethodDescriptor is a parsed "(params)return" method descriptor.
type MethodDescriptor struct {
	Params []FieldType
	// Void is true when the return type is V (no return value).
	Void   bool
	Return FieldType
}

// ParseMethodDescriptor parses a method descriptor, enforcing the
// parameter-count-under-255 limit.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if !strings.HasPrefix(s, "(") {
		return MethodDescriptor{}, errors.Wrapf(ErrMalformedDescriptor, "method descriptor %q missing leading (", s)
	}
	s = s[1:]
	var params []FieldType
	for !strings.HasPrefix(s, ")") {
		if s == "" {
			return MethodDescriptor{}, errors.Wrapf(ErrMalformedDescriptor, "unterminated parameter list")
		}
		ft, rest, err := parseFieldDescriptorOne(s)
		if err != nil {
			return MethodDescriptor{}, err
		}
		params = append(params, ft)
		if len(params) >= 255 {
			return MethodDescriptor{}, errors.Wrapf(ErrMalformedDescriptor, "method descriptor has 255 or more parameters")
		}
		s = rest
	}
	s = s[1:] // consume ")"
	if s == "V" {
		return MethodDescriptor{Params: params, Void: true}, nil
	}
	ft, rest, err := parseFieldDescriptorOne(s)
	if err != nil {
		return MethodDescriptor{}, err
	}
	if rest != "" {
		return MethodDescriptor{}, errors.Wrapf(ErrMalformedDescriptor, "trailing data in return type of %q", s)
	}
	return MethodDescriptor{Params: params, Return: ft}, nil
}
