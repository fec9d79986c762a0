// Package tokenizer maps text to character level token ids.
package tokenizer

import (
	"cmp"
	"slices"
	"strings"
)

// Character is a character level vocabulary. Id 0 is reserved for padding;
// characters are numbered from 1 by descending frequency in the fitted
// texts, ties broken by first appearance.
type Character struct {
	runes []rune // runes[id-1] is the character for id
	ids   map[rune]int32
}

// Fit builds a vocabulary from texts. No characters are filtered and case
// is preserved.
func Fit(texts []string) *Character {
	counts := make(map[rune]int)
	var order []rune
	for _, text := range texts {
		for _, r := range text {
			if counts[r] == 0 {
				order = append(order, r)
			}
			counts[r]++
		}
	}

	slices.SortStableFunc(order, func(a, b rune) int {
		return cmp.Compare(counts[b], counts[a])
	})

	return New(order)
}

// New builds a vocabulary from an explicit character order. Duplicate
// characters keep their first id.
func New(runes []rune) *Character {
	c := &Character{ids: make(map[rune]int32, len(runes))}
	for _, r := range runes {
		if _, ok := c.ids[r]; ok {
			continue
		}
		c.runes = append(c.runes, r)
		c.ids[r] = int32(len(c.runes))
	}
	return c
}

// VocabularySize counts the reserved padding id.
func (c *Character) VocabularySize() int {
	return len(c.runes) + 1
}

// Encode maps text to ids. Characters outside the vocabulary are skipped.
func (c *Character) Encode(text string) []int32 {
	ids := make([]int32, 0, len(text))
	for _, r := range text {
		if id, ok := c.ids[r]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Character) EncodeAll(texts []string) [][]int32 {
	seqs := make([][]int32, len(texts))
	for i, text := range texts {
		seqs[i] = c.Encode(text)
	}
	return seqs
}

// Decode maps ids back to text. Padding and unknown ids are skipped.
func (c *Character) Decode(ids []int32) string {
	var sb strings.Builder
	for _, id := range ids {
		if r, ok := c.Lookup(id); ok {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (c *Character) Lookup(id int32) (rune, bool) {
	if id < 1 || int(id) > len(c.runes) {
		return 0, false
	}
	return c.runes[id-1], true
}

// Chunks splits text on sep. Empty chunks, such as the one after a trailing
// separator, are kept and frame to all padding examples.
func Chunks(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}
	return strings.Split(text, sep)
}
