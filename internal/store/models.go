package store

import "time"

const (
	TableSessions = "game_sessions"
	TableAnswers  = "game_answers"
	TableScores   = "game_scores"
	TableProfiles = "profiles"
)

const (
	StatusActive = "active"
	StatusDone   = "done"
)

// Columns per table, in insert order. The Postgres implementation builds its
// statements from these; the memory store uses them to reject unknown tables.
var tableColumns = map[string][]string{
	TableSessions: {
		"id", "couple_id", "game_type", "question", "option_a", "option_b",
		"answerer_id", "guesser_id", "status", "created_by", "current_round",
		"created_at", "updated_at",
	},
	TableAnswers: {
		"id", "session_id", "user_id", "answer", "round", "created_at",
	},
	TableScores: {
		"id", "couple_id", "user_id", "game_type", "wins", "losses", "draws",
		"total_points", "updated_at",
	},
	TableProfiles: {
		"id", "user_id", "couple_id", "display_name", "created_at", "updated_at",
	},
}

type GameSession struct {
	Id           string
	CoupleId     string
	GameType     string
	Question     string
	OptionA      string
	OptionB      string
	AnswererId   string
	GuesserId    string
	Status       string
	CreatedBy    string
	CurrentRound int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type GameAnswer struct {
	Id        string
	SessionId string
	UserId    string
	Answer    string
	Round     int
	CreatedAt time.Time
}

type GameScore struct {
	Id          string
	CoupleId    string
	UserId      string
	GameType    string
	Wins        int
	Losses      int
	Draws       int
	TotalPoints int
	UpdatedAt   time.Time
}

type Profile struct {
	Id          string
	UserId      string
	CoupleId    string
	DisplayName string
}

func SessionFromRow(row Row) GameSession {
	return GameSession{
		Id:           str(row, "id"),
		CoupleId:     str(row, "couple_id"),
		GameType:     str(row, "game_type"),
		Question:     str(row, "question"),
		OptionA:      str(row, "option_a"),
		OptionB:      str(row, "option_b"),
		AnswererId:   str(row, "answerer_id"),
		GuesserId:    str(row, "guesser_id"),
		Status:       str(row, "status"),
		CreatedBy:    str(row, "created_by"),
		CurrentRound: num(row, "current_round"),
		CreatedAt:    ts(row, "created_at"),
		UpdatedAt:    ts(row, "updated_at"),
	}
}

func (s GameSession) Row() Row {
	return Row{
		"couple_id":     s.CoupleId,
		"game_type":     s.GameType,
		"question":      s.Question,
		"option_a":      s.OptionA,
		"option_b":      s.OptionB,
		"answerer_id":   s.AnswererId,
		"guesser_id":    s.GuesserId,
		"status":        s.Status,
		"created_by":    s.CreatedBy,
		"current_round": s.CurrentRound,
	}
}

func AnswerFromRow(row Row) GameAnswer {
	return GameAnswer{
		Id:        str(row, "id"),
		SessionId: str(row, "session_id"),
		UserId:    str(row, "user_id"),
		Answer:    str(row, "answer"),
		Round:     num(row, "round"),
		CreatedAt: ts(row, "created_at"),
	}
}

func (a GameAnswer) Row() Row {
	return Row{
		"session_id": a.SessionId,
		"user_id":    a.UserId,
		"answer":     a.Answer,
		"round":      a.Round,
	}
}

func ScoreFromRow(row Row) GameScore {
	return GameScore{
		Id:          str(row, "id"),
		CoupleId:    str(row, "couple_id"),
		UserId:      str(row, "user_id"),
		GameType:    str(row, "game_type"),
		Wins:        num(row, "wins"),
		Losses:      num(row, "losses"),
		Draws:       num(row, "draws"),
		TotalPoints: num(row, "total_points"),
		UpdatedAt:   ts(row, "updated_at"),
	}
}

func (s GameScore) Row() Row {
	return Row{
		"couple_id":    s.CoupleId,
		"user_id":      s.UserId,
		"game_type":    s.GameType,
		"wins":         s.Wins,
		"losses":       s.Losses,
		"draws":        s.Draws,
		"total_points": s.TotalPoints,
	}
}

func ProfileFromRow(row Row) Profile {
	return Profile{
		Id:          str(row, "id"),
		UserId:      str(row, "user_id"),
		CoupleId:    str(row, "couple_id"),
		DisplayName: str(row, "display_name"),
	}
}

func (p Profile) Row() Row {
	return Row{
		"user_id":      p.UserId,
		"couple_id":    p.CoupleId,
		"display_name": p.DisplayName,
	}
}

func str(row Row, col string) string {
	s, _ := row[col].(string)
	return s
}

func num(row Row, col string) int {
	switch v := row[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func ts(row Row, col string) time.Time {
	t, _ := row[col].(time.Time)
	return t
}
