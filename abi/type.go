/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package abi

import (
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	BoolKind Kind = iota
	AddressKind
	UintKind
	IntKind
	FixedBytesKind
	BytesKind
	StringKind
	ArrayKind
	SliceKind
	TupleKind
)

var kindNames = []string{"bool", "address", "uint", "int", "fixedbytes", "bytes", "string", "array", "slice", "tuple"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

const (
	wordSize        = 32
	maxIntegerBits  = 256
	maxFixedBytes   = 32
	addressLength   = 20
	maxStaticWords  = math.MaxInt32 / wordSize
	tupleTypePrefix = "tuple"
)

// Type is a parsed ABI type. A Type is immutable once returned from NewType
// or TypeOf, so it can be shared between goroutines.
type Type struct {
	Kind Kind
	// Size is the bit width of UintKind and IntKind, the byte width of
	// FixedBytesKind and AddressKind, and the element count of ArrayKind.
	Size int
	// Elem is the element type of ArrayKind and SliceKind.
	Elem *Type
	// Components and ComponentNames describe TupleKind, in encoding order.
	Components     []*Type
	ComponentNames []string

	canonical string
	dynamic   bool
	words     int
}

// String returns the canonical type notation used in signatures,
// e.g. "uint256[2][]" or "(address,bool)[]".
func (t *Type) String() string {
	return t.canonical
}

// IsDynamic reports whether values of t are referenced by an offset from
// the head of the enclosing block.
func (t *Type) IsDynamic() bool {
	return t.dynamic
}

// StaticWordCount returns the number of 32 bytes words occupied by a value
// of static type t. It returns 0 for dynamic types.
func (t *Type) StaticWordCount() int {
	if t.dynamic {
		return 0
	}
	return t.words
}

// headSize is the number of bytes t occupies in the head of its container.
func (t *Type) headSize() int {
	if t.dynamic {
		return wordSize
	}
	return t.words * wordSize
}

func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.canonical == o.canonical
}

func (t *Type) isElementary() bool {
	return t.Kind < ArrayKind
}

// NewType parses an ABI type string. components must be given for "tuple"
// and arrays of tuples; an empty non-nil list denotes the empty tuple.
func NewType(t string, components []Parameter) (*Type, error) {
	return newType(t, components)
}

func newType(t string, components []Parameter) (*Type, error) {
	if len(t) == 0 {
		return nil, ErrorCodeInvalidTypeSyntax.Errorf("empty type")
	}
	base, dims, err := splitArraySuffix(t)
	if err != nil {
		return nil, err
	}
	typ, err := newBaseType(base, components)
	if err != nil {
		return nil, err
	}
	for i := len(dims) - 1; i >= 0; i-- {
		if typ, err = wrapArray(typ, dims[i]); err != nil {
			return nil, err
		}
	}
	return typ, nil
}

const dynamicLength = -1

// splitArraySuffix strips "[]" and "[N]" suffixes from right to left.
// The returned dims are ordered outermost first.
func splitArraySuffix(t string) (string, []int, error) {
	var dims []int
	for strings.HasSuffix(t, "]") {
		i := strings.LastIndexByte(t, '[')
		if i < 0 {
			return "", nil, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced bracket in type:%s", t)
		}
		inner := t[i+1 : len(t)-1]
		if len(inner) == 0 {
			dims = append(dims, dynamicLength)
		} else {
			n, err := parseDecimal(inner)
			if err != nil || n == 0 {
				return "", nil, ErrorCodeInvalidTypeSyntax.Errorf("invalid array length:%s", inner)
			}
			dims = append(dims, n)
		}
		t = t[:i]
	}
	if len(t) == 0 {
		return "", nil, ErrorCodeInvalidTypeSyntax.Errorf("missing element type")
	}
	if !strings.HasPrefix(t, "(") && strings.ContainsAny(t, "[]") {
		return "", nil, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced bracket in type:%s", t)
	}
	return t, dims, nil
}

// parseDecimal accepts only plain decimal digits without leading zeros.
func parseDecimal(s string) (int, error) {
	if len(s) == 0 || (len(s) > 1 && s[0] == '0') {
		return 0, ErrorCodeInvalidTypeSyntax.Errorf("invalid number:%s", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrorCodeInvalidTypeSyntax.Errorf("invalid number:%s", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrorCodeInvalidTypeSyntax.Wrapf(err, "invalid number:%s", s)
	}
	return n, nil
}

func newBaseType(base string, components []Parameter) (*Type, error) {
	switch base {
	case "bool":
		return finalize(&Type{Kind: BoolKind}), nil
	case "address":
		return finalize(&Type{Kind: AddressKind, Size: addressLength}), nil
	case "string":
		return finalize(&Type{Kind: StringKind}), nil
	case "bytes":
		return finalize(&Type{Kind: BytesKind}), nil
	case "uint", "int":
		return newIntegerType(base, maxIntegerBits), nil
	case tupleTypePrefix:
		return newTupleType(components)
	}
	if strings.HasPrefix(base, "(") {
		return newInlineTupleType(base)
	}
	for _, prefix := range []string{"uint", "int"} {
		if strings.HasPrefix(base, prefix) {
			bits, err := parseDecimal(base[len(prefix):])
			if err != nil || bits < 8 || bits > maxIntegerBits || bits%8 != 0 {
				return nil, ErrorCodeInvalidTypeSyntax.Errorf("invalid integer type:%s", base)
			}
			return newIntegerType(prefix, bits), nil
		}
	}
	if strings.HasPrefix(base, "bytes") {
		n, err := parseDecimal(base[len("bytes"):])
		if err != nil || n < 1 || n > maxFixedBytes {
			return nil, ErrorCodeInvalidTypeSyntax.Errorf("invalid fixed bytes type:%s", base)
		}
		return finalize(&Type{Kind: FixedBytesKind, Size: n}), nil
	}
	return nil, ErrorCodeInvalidTypeSyntax.Errorf("unsupported type:%s", base)
}

func newIntegerType(prefix string, bits int) *Type {
	k := UintKind
	if prefix == "int" {
		k = IntKind
	}
	return finalize(&Type{Kind: k, Size: bits})
}

func newTupleType(components []Parameter) (*Type, error) {
	if components == nil {
		return nil, ErrorCodeInvalidTypeSyntax.Errorf("tuple requires components")
	}
	ordered, err := Parameters(components).Ordered()
	if err != nil {
		return nil, err
	}
	t := &Type{
		Kind:           TupleKind,
		Components:     make([]*Type, len(ordered)),
		ComponentNames: make([]string, len(ordered)),
	}
	for i, c := range ordered {
		if t.Components[i], err = c.ABIType(); err != nil {
			return nil, err
		}
		t.ComponentNames[i] = c.Name
	}
	return finalize(t), nil
}

func newInlineTupleType(base string) (*Type, error) {
	if !strings.HasSuffix(base, ")") {
		return nil, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced parenthesis in type:%s", base)
	}
	parts, err := splitTopLevel(base[1 : len(base)-1])
	if err != nil {
		return nil, err
	}
	t := &Type{
		Kind:           TupleKind,
		Components:     make([]*Type, len(parts)),
		ComponentNames: make([]string, len(parts)),
	}
	for i, p := range parts {
		if t.Components[i], err = newType(p, nil); err != nil {
			return nil, err
		}
	}
	return finalize(t), nil
}

// splitTopLevel splits s at commas which are not enclosed in parentheses.
func splitTopLevel(s string) ([]string, error) {
	parts := make([]string, 0)
	if len(strings.TrimSpace(s)) == 0 {
		return parts, nil
	}
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced parenthesis:%s", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced parenthesis:%s", s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	for _, p := range parts {
		if len(p) == 0 {
			return nil, ErrorCodeInvalidTypeSyntax.Errorf("empty element in list:%s", s)
		}
	}
	return parts, nil
}

func wrapArray(elem *Type, length int) (*Type, error) {
	if length == dynamicLength {
		return finalize(&Type{Kind: SliceKind, Elem: elem}), nil
	}
	if !elem.dynamic {
		if elem.words == 0 {
			return nil, ErrorCodeInvalidTypeSyntax.Errorf("fixed array of zero-size element:%s[%d]", elem, length)
		}
		if length > maxStaticWords/elem.words {
			return nil, ErrorCodeInvalidTypeSyntax.Errorf("array too large:%s[%d]", elem, length)
		}
	}
	return finalize(&Type{Kind: ArrayKind, Elem: elem, Size: length}), nil
}

// finalize computes the canonical notation and the static layout bottom-up.
func finalize(t *Type) *Type {
	switch t.Kind {
	case BoolKind, AddressKind:
		t.canonical = t.Kind.String()
		t.words = 1
	case UintKind, IntKind:
		t.canonical = t.Kind.String() + strconv.Itoa(t.Size)
		t.words = 1
	case FixedBytesKind:
		t.canonical = "bytes" + strconv.Itoa(t.Size)
		t.words = 1
	case BytesKind, StringKind:
		t.canonical = t.Kind.String()
		t.dynamic = true
		t.words = 1
	case SliceKind:
		t.canonical = t.Elem.canonical + "[]"
		t.dynamic = true
		t.words = 1
	case ArrayKind:
		t.canonical = t.Elem.canonical + "[" + strconv.Itoa(t.Size) + "]"
		t.dynamic = t.Elem.dynamic
		if t.dynamic {
			t.words = 1
		} else {
			t.words = t.Size * t.Elem.words
		}
	case TupleKind:
		names := make([]string, len(t.Components))
		words := 0
		for i, c := range t.Components {
			names[i] = c.canonical
			if c.dynamic {
				t.dynamic = true
			}
			words += c.words
		}
		t.canonical = "(" + strings.Join(names, ",") + ")"
		if t.dynamic {
			t.words = 1
		} else {
			t.words = words
		}
	}
	return t
}
