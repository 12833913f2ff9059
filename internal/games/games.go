// Package games wires the session controller, score ledger, and broadcast
// channel into the individual couple mini-games.
package games

// Game type tags, stored on session and score rows.
const (
	TruthOrLove    = "truth_or_love"
	LoveQuiz       = "love_quiz"
	WhosMoreLikely = "whos_more_likely"
	ThisOrThat     = "this_or_that"
	MemoryMatch    = "memory_match"
)
