package textutil

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// BlankMarker は穴埋め問題の空欄です。
const BlankMarker = "____"

// Blanker は例文中の対象語を空欄に置き換えます。
// 日本語は分かち書きが無いので形態素解析で語を探し、それ以外は単語境界で探します。
type Blanker struct {
	once sync.Once
	tok  *tokenizer.Tokenizer
	err  error
}

func NewBlanker() *Blanker {
	return &Blanker{}
}

// loadTokenizer は IPA 辞書の読み込みが重いので、最初に日本語を扱うときに作成します。
func (b *Blanker) loadTokenizer() (*tokenizer.Tokenizer, error) {
	b.once.Do(func() {
		b.tok, b.err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	return b.tok, b.err
}

// Blank は sentence 中の最初の word を空欄にした文を返します。見つからなければ ok=false。
func (b *Blanker) Blank(sentence, word, language string) (string, bool) {
	word = strings.TrimSpace(word)
	if word == "" || sentence == "" {
		return "", false
	}
	if isJapanese(language) {
		if out, ok := b.blankJapanese(sentence, word); ok {
			return out, true
		}
		// 複合語など辞書の区切りと一致しない場合は部分一致で探す
		if i := strings.Index(sentence, word); i >= 0 {
			return sentence[:i] + BlankMarker + sentence[i+len(word):], true
		}
		return "", false
	}
	return blankByWordBoundary(sentence, word)
}

func isJapanese(language string) bool {
	l := strings.ToLower(language)
	return l == "ja" || strings.HasPrefix(l, "ja-") || strings.HasPrefix(l, "ja_")
}

func (b *Blanker) blankJapanese(sentence, word string) (string, bool) {
	t, err := b.loadTokenizer()
	if err != nil {
		return "", false
	}
	for _, token := range t.Tokenize(sentence) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		base := token.Surface
		// IPA の素性は 6 番目が原形
		if features := token.Features(); len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		if token.Surface != word && base != word {
			continue
		}
		start := token.Position
		end := start + len(token.Surface)
		if start < 0 || end > len(sentence) || sentence[start:end] != token.Surface {
			continue
		}
		return sentence[:start] + BlankMarker + sentence[end:], true
	}
	return "", false
}

func blankByWordBoundary(sentence, word string) (string, bool) {
	re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(word) + `)(?:[^\p{L}\p{N}]|$)`)
	if err != nil {
		return "", false
	}
	loc := re.FindStringSubmatchIndex(sentence)
	if loc == nil {
		return "", false
	}
	start, end := loc[2], loc[3]
	return sentence[:start] + BlankMarker + sentence[end:], true
}
