// Package textutil は解答の比較と例文の穴埋めに使う文字列処理です。
package textutil

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize は大文字小文字とダイアクリティカルマークを無視した比較用の文字列を返します。
// 前後の句読点を落とし、連続する空白は1つにまとめます。
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	folded = strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.Join(strings.Fields(folded), " ")
}

// Equivalent は正規化後に一致するかどうかを返します。
func Equivalent(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Similarity は正規化後の編集距離に基づく類似度 (0..1) を返します。
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	return levenshtein.Similarity(na, nb, nil)
}
