package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Perro", "perro"},
		{"  Árbol  ", "arbol"},
		{"niño", "nino"},
		{"Straße", "strasse"},
		{"to   run.", "to run"},
		{"¿Qué?", "que"},
		{"猫", "猫"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestEquivalentAndSimilarity(t *testing.T) {
	assert.True(t, Equivalent("Café", "cafe"))
	assert.False(t, Equivalent("cafe", "cafes"))

	assert.InDelta(t, 1.0, Similarity("PERRO", "perro"), 1e-9)
	// 1文字違いは部分正解の閾値を超える
	sim := Similarity("perro", "pero")
	assert.GreaterOrEqual(t, sim, 0.8)
	assert.Less(t, sim, 1.0)
	assert.Less(t, Similarity("perro", "gato"), 0.5)
}

func TestBlanker_Blank(t *testing.T) {
	b := NewBlanker()

	tests := []struct {
		name     string
		sentence string
		word     string
		language string
		want     string
		wantOK   bool
	}{
		{name: "正常系: 単語境界で置換", sentence: "El perro come.", word: "perro", language: "es", want: "El ____ come.", wantOK: true},
		{name: "正常系: 大文字小文字を無視", sentence: "Perro grande", word: "perro", language: "es", want: "____ grande", wantOK: true},
		{name: "正常系: 部分文字列には一致しない", sentence: "Los perros y el perro", word: "perro", language: "es", want: "Los perros y el ____", wantOK: true},
		{name: "異常系: 見つからない", sentence: "El gato duerme", word: "perro", language: "es", wantOK: false},
		{name: "正常系: 日本語は形態素で置換", sentence: "猫が好きです", word: "猫", language: "ja", want: "____が好きです", wantOK: true},
		{name: "異常系: 日本語で見つからない", sentence: "犬が好きです", word: "猫", language: "ja", wantOK: false},
		{name: "異常系: 空の単語", sentence: "abc", word: " ", language: "en", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.Blank(tt.sentence, tt.word, tt.language)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
