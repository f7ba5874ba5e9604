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
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

const SelectorLength = 4

// Selector is the first four bytes of the Keccak-256 hash of a function
// or error signature.
type Selector [SelectorLength]byte

func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

func (s Selector) Bytes() []byte {
	return s[:]
}

func (s Selector) MarshalText() ([]byte, error) {
	return hexutil.Bytes(s[:]).MarshalText()
}

func (s *Selector) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Selector", input, s[:])
}

func BytesToSelector(b []byte) (Selector, error) {
	var s Selector
	if len(b) < SelectorLength {
		return s, ErrorCodeBufferTooShort.Errorf("too short for selector length:%d", len(b))
	}
	copy(s[:], b)
	return s, nil
}

func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// CanonicalSignature returns name followed by the canonical types of
// params in ascending order, e.g. "foo(uint256,(address,bool)[])".
func CanonicalSignature(name string, params Parameters) (string, error) {
	if !isIdentifier(name) {
		return "", ErrorCodeInvalidParameter.Errorf("invalid name:%q", name)
	}
	types, seq, err := params.layout()
	if err != nil {
		return "", err
	}
	names := make([]string, len(seq))
	for i, idx := range seq {
		names[i] = types[idx].String()
	}
	return name + "(" + strings.Join(names, ",") + ")", nil
}

func SelectorOf(name string, params Parameters) (Selector, error) {
	sig, err := CanonicalSignature(name, params)
	if err != nil {
		return Selector{}, err
	}
	return SelectorFromSignature(sig), nil
}

func TopicHash(name string, params Parameters) (common.Hash, error) {
	sig, err := CanonicalSignature(name, params)
	if err != nil {
		return common.Hash{}, err
	}
	return Keccak256Hash([]byte(sig)), nil
}

// SelectorFromSignature hashes sig as given; sig must already be canonical.
func SelectorFromSignature(sig string) Selector {
	var s Selector
	copy(s[:], Keccak256([]byte(sig)))
	return s
}

func isIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var signatureKeywords = []string{"function ", "event ", "error "}

// ParseSignature parses a human readable signature such as
// "transfer(address to, uint256 amount)" or
// "event Transfer(address indexed from, address indexed to, uint256)".
// Inline tuples become "tuple" parameters with components. Parameter
// orders follow the positions.
func ParseSignature(sig string) (string, Parameters, error) {
	s := strings.TrimSpace(sig)
	for _, k := range signatureKeywords {
		if strings.HasPrefix(s, k) {
			s = strings.TrimSpace(s[len(k):])
			break
		}
	}
	i := strings.IndexByte(s, '(')
	if i < 0 || !strings.HasSuffix(s, ")") {
		return "", nil, ErrorCodeInvalidTypeSyntax.Errorf("invalid signature:%q", sig)
	}
	name := strings.TrimSpace(s[:i])
	if !isIdentifier(name) {
		return "", nil, ErrorCodeInvalidParameter.Errorf("invalid name in signature:%q", sig)
	}
	params, err := parseParameterList(s[i+1 : len(s)-1])
	if err != nil {
		return "", nil, err
	}
	return name, params, nil
}

// ParseParameters parses a parameter list such as "uint256 id, string"
// or "(uint256,string)".
func ParseParameters(s string) (Parameters, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && matchParenthesis(s) == len(s)-1 {
		s = s[1 : len(s)-1]
	}
	return parseParameterList(s)
}

func parseParameterList(s string) (Parameters, error) {
	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	params := make(Parameters, len(parts))
	for i, part := range parts {
		if params[i], err = parseParameter(part); err != nil {
			return nil, err
		}
		params[i].Order = i + 1
	}
	return params, nil
}

func parseParameter(s string) (Parameter, error) {
	var p Parameter
	typ, rest := s, ""
	if strings.HasPrefix(s, "(") {
		end := matchParenthesis(s)
		if end < 0 {
			return p, ErrorCodeInvalidTypeSyntax.Errorf("unbalanced parenthesis:%s", s)
		}
		components, err := parseParameterList(s[1:end])
		if err != nil {
			return p, err
		}
		p.Components = components
		suffix := s[end+1:]
		if j := strings.IndexAny(suffix, " \t"); j >= 0 {
			suffix, rest = suffix[:j], suffix[j:]
		}
		typ = tupleTypePrefix + suffix
	} else if j := strings.IndexAny(s, " \t"); j >= 0 {
		typ, rest = s[:j], s[j:]
	}
	p.Type = typ
	for _, f := range strings.Fields(rest) {
		switch f {
		case "indexed":
			p.Indexed = true
		case "memory", "calldata", "storage", "payable":
		default:
			if len(p.Name) > 0 || !isIdentifier(f) {
				return p, ErrorCodeInvalidTypeSyntax.Errorf("invalid parameter:%q", s)
			}
			p.Name = f
		}
	}
	if _, err := p.ABIType(); err != nil {
		return p, err
	}
	return p, nil
}

// matchParenthesis returns the index of the parenthesis closing s[0].
func matchParenthesis(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
