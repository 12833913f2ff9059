// Package shuffle derives identical card layouts on both clients from one
// shared seed string. The functions are pure; all state lives in the seed.
package shuffle

// DeckEmojis are the card faces; the first six are dealt twice each.
var DeckEmojis = []string{"💕", "🌸", "💌", "🦋", "🌹", "💗", "✨", "🧸"}

const (
	pairCount = 6
	DeckSize  = pairCount * 2
)

// Card is one face-down card of a memory-match board.
type Card struct {
	Id    int
	Emoji string
}

// Fold hashes seed into a 32-bit accumulator with the hash*31+char rule.
func Fold(seed string) int32 {
	var hash int32
	for _, r := range seed {
		hash = hash*31 + int32(r)
	}
	return hash
}

// DerivePermutation returns a permutation of [0,n) fully determined by seed.
// A Fisher–Yates pass picks the swap index at step i from the rehashed
// accumulator, so independent invocations with equal seeds agree exactly.
func DerivePermutation(seed string, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	hash := Fold(seed)
	for i := n - 1; i > 0; i-- {
		hash = hash*31 + int32(i)
		j := int(hash)
		if j < 0 {
			j = -j
		}
		perm[i], perm[j%(i+1)] = perm[j%(i+1)], perm[i]
	}

	return perm
}

// Deal lays out the 12-card board for seed: six pairs, permuted. Both members
// of a pairing call Deal with the round's seed and see the same arrangement.
func Deal(seed string) []Card {
	faces := make([]string, 0, DeckSize)
	for _, emoji := range DeckEmojis[:pairCount] {
		faces = append(faces, emoji, emoji)
	}

	perm := DerivePermutation(seed, DeckSize)
	cards := make([]Card, DeckSize)
	for i, p := range perm {
		cards[i] = Card{Id: i, Emoji: faces[p]}
	}

	return cards
}
