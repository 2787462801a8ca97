// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package lexical

import (
	"slices"
	"strings"

	"github.com/xrash/smetrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Indel costs: insertion and deletion cost 1, a substitution costs a
// deletion plus an insertion.
const (
	insertCost     = 1
	deleteCost     = 1
	substituteCost = 2
)

// Fold normalizes s for comparison: NFKC composition, language-neutral
// lower-casing and surrounding whitespace removal.
func Fold(s string) string {
	return strings.TrimSpace(lower(s))
}

func lower(s string) string {
	s = norm.NFKC.String(s)
	return cases.Lower(language.Und).String(s)
}

// Contains reports whether needle occurs in haystack after both are
// lower-cased. Surrounding whitespace in needle is significant.
func Contains(haystack, needle string) bool {
	return strings.Contains(lower(haystack), lower(needle))
}

// SortTokens splits s on whitespace, sorts the tokens and joins them with a
// single space.
func SortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio returns the normalized indel similarity of the
// token-sorted forms of a and b. The result is 1 for identical token
// multisets, including two empty inputs.
func TokenSortRatio(a, b string) float64 {
	return Ratio(SortTokens(a), SortTokens(b))
}

// Ratio returns 1 - indel(a, b) / (len(a) + len(b)) with lengths counted
// in code points.
func Ratio(a, b string) float64 {
	ea, eb, total := encode(a, b)
	if total == 0 {
		return 1
	}
	dist := smetrics.WagnerFischer(ea, eb, insertCost, deleteCost, substituteCost)
	return 1 - float64(dist)/float64(total)
}

// encode maps a and b onto single-byte alphabets so that the byte-oriented
// distance works on code points. When the two strings together use more
// than 256 distinct runes the UTF-8 bytes are compared instead.
func encode(a, b string) (string, string, int) {
	alphabet := make(map[rune]byte)
	ra, rb := []rune(a), []rune(b)
	for _, r := range slices.Concat(ra, rb) {
		if _, ok := alphabet[r]; ok {
			continue
		}
		if len(alphabet) == 256 {
			return a, b, len(a) + len(b)
		}
		alphabet[r] = byte(len(alphabet))
	}

	remap := func(rs []rune) string {
		out := make([]byte, len(rs))
		for i, r := range rs {
			out[i] = alphabet[r]
		}
		return string(out)
	}
	return remap(ra), remap(rb), len(ra) + len(rb)
}
