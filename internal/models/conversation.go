package models

import "time"

// ConversationStats holds lexical counters computed from user-authored
// conversation text. It is recomputed wholesale, never partially updated.
type ConversationStats struct {
	ScannedAt    time.Time `json:"scannedAt"`
	FilesScanned int       `json:"filesScanned"`
	LinesSkipped int       `json:"linesSkipped"`

	UserMessages        int `json:"userMessages"`
	TotalWords          int `json:"totalWords"`
	TotalChars          int `json:"totalChars"`
	LongestMessageWords int `json:"longestMessageWords"`

	Questions        int `json:"questions"`
	Exclamations     int `json:"exclamations"`
	CurseWords       int `json:"curseWords"`
	PleaseCount      int `json:"pleaseCount"`
	ThanksCount      int `json:"thanksCount"`
	SorryCount       int `json:"sorryCount"`
	PolitePhrases    int `json:"politePhrases"`
	FrustrationWords int `json:"frustrationWords"`
	CapsRage         int `json:"capsRage"`
	LolCount         int `json:"lolCount"`

	Sentiment SentimentCounts `json:"sentiment"`
	Requests  RequestCounts   `json:"requests"`

	CodeBlocks           int            `json:"codeBlocks"`
	CodeBlocksByLanguage map[string]int `json:"codeBlocksByLanguage"`
	LinesOfCode          int            `json:"linesOfCode"`

	HourCounts [24]int `json:"hourCounts"`
}

// SentimentCounts tallies messages per sentiment bucket. Buckets overlap.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Urgent   int `json:"urgent"`
	Confused int `json:"confused"`
}

// RequestCounts tallies messages per request type. Buckets overlap.
type RequestCounts struct {
	BugFix   int `json:"bugFix"`
	Feature  int `json:"feature"`
	Refactor int `json:"refactor"`
	Explain  int `json:"explain"`
	Test     int `json:"test"`
	Review   int `json:"review"`
}

// NewConversationStats returns zeroed stats with initialized maps.
func NewConversationStats() *ConversationStats {
	return &ConversationStats{
		CodeBlocksByLanguage: make(map[string]int),
	}
}
