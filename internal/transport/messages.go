package transport

import (
	"github.com/bft-labs/signtype/internal/spelling"
	"github.com/bft-labs/signtype/pkg/session"
)

type predictionMessage struct {
	Type              string  `json:"type"`
	CurrentPrediction string  `json:"current_prediction"`
	StablePrediction  string  `json:"stable_prediction"`
	StableCount       int     `json:"stable_count"`
	Confidence        float64 `json:"confidence"`
	RemainingTime     int     `json:"remaining_time"`
	ShouldAccept      bool    `json:"should_accept"`
	ShouldDelete      bool    `json:"should_delete"`
	AcceptedLetter    *string `json:"accepted_letter,omitempty"`
	TextBuffer        *string `json:"text_buffer,omitempty"`
}

func newPredictionMessage(res session.Result, confidence float64) predictionMessage {
	m := predictionMessage{
		Type:              TypePrediction,
		CurrentPrediction: res.Current,
		StablePrediction:  res.Stable,
		StableCount:       res.StableCount,
		Confidence:        confidence,
		RemainingTime:     res.Remaining,
		ShouldAccept:      res.Accepted,
		ShouldDelete:      res.Deleted,
	}
	if res.Accepted {
		letter := res.AcceptedLetter
		m.AcceptedLetter = &letter
	}
	if res.HasBuffer {
		buf := res.Buffer
		m.TextBuffer = &buf
	}
	return m
}

type resetCompleteMessage struct {
	Type string `json:"type"`
}

type spellingMessage struct {
	Type       string `json:"type"`
	Word       string `json:"word"`
	Correct    bool   `json:"correct"`
	Suggestion string `json:"suggestion,omitempty"`
}

func newSpellingMessage(r spelling.Result) spellingMessage {
	return spellingMessage{
		Type:       TypeSpelling,
		Word:       r.Word,
		Correct:    r.Correct,
		Suggestion: r.Suggestion,
	}
}
