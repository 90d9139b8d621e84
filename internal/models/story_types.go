package models

import "time"

// Story lengths and their credit costs. The length also controls how
// many sentences (pages) the generator is asked for.
var StoryCreditCosts = map[string]int64{
	"short":  5,
	"medium": 7,
	"long":   9,
	"epic":   12,
	"saga":   15,
}

// StorySentenceCounts maps a story length to the number of sentences
// the generation prompt asks for.
var StorySentenceCounts = map[string]int{
	"short":  5,
	"medium": 7,
	"long":   9,
	"epic":   12,
	"saga":   15,
}

// Story is the model for the 'stories' table. Sentences are stored as
// a JSON array column.
type Story struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Topic     string    `json:"topic" db:"topic"`
	Length    string    `json:"length" db:"length"`
	Style     string    `json:"style" db:"style"`
	Sentences []string  `json:"sentences" db:"sentences"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// StorySummary is the trimmed shape returned by story listings.
type StorySummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Length    string    `json:"length"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"createdAt"`
}
