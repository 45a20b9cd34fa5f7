package toy

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// UnknownID is returned by Encode for pieces outside the vocabulary.
const UnknownID = -1

// Split breaks text into pieces: maximal runs of letters and digits, and
// every other rune on its own. Concatenating the pieces yields text again.
func Split(text string) []string {
	var pieces []string
	start := -1
	for i, r := range text {
		if isWord(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			pieces = append(pieces, text[start:i])
			start = -1
		}
		pieces = append(pieces, text[i:i+utf8.RuneLen(r)])
	}
	if start >= 0 {
		pieces = append(pieces, text[start:])
	}
	return pieces
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Vocab maps pieces to dense ids in first-seen order.
type Vocab struct {
	pieces []string
	ids    map[string]int
}

// BuildVocab assigns ids to every distinct piece of text.
func BuildVocab(text string) *Vocab {
	v := &Vocab{ids: make(map[string]int)}
	for _, p := range Split(text) {
		if _, ok := v.ids[p]; !ok {
			v.ids[p] = len(v.pieces)
			v.pieces = append(v.pieces, p)
		}
	}
	return v
}

func (v *Vocab) Size() int {
	return len(v.pieces)
}

// Encode returns the ids for text; unseen pieces map to UnknownID.
func (v *Vocab) Encode(text string) []int {
	pieces := Split(text)
	ids := make([]int, len(pieces))
	for i, p := range pieces {
		id, ok := v.ids[p]
		if !ok {
			id = UnknownID
		}
		ids[i] = id
	}
	return ids
}

func (v *Vocab) Decode(ids []int) (string, error) {
	var out []byte
	for _, id := range ids {
		if id < 0 || id >= len(v.pieces) {
			return "", fmt.Errorf("token id %d out of range [0,%d)", id, len(v.pieces))
		}
		out = append(out, v.pieces[id]...)
	}
	return string(out), nil
}

// TokenString returns the piece for id, or "" when id is out of range.
func (v *Vocab) TokenString(id int) string {
	if id < 0 || id >= len(v.pieces) {
		return ""
	}
	return v.pieces[id]
}
