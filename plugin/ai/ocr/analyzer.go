// Package ocr extracts structured class records from timetable photos using
// a vision-capable model.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/campusclock/campusclock/plugin/ai"
	"github.com/campusclock/campusclock/store"
)

const extractionPrompt = `You are an expert at reading school and university timetables.

Analyze the timetable in the image and extract every class session you can
identify. For each session report:
  - subject: the class or course name
  - roomNumber: the room or location, empty string if not shown
  - startTime: the start time exactly as printed
  - endTime: the end time exactly as printed, empty string if not shown
  - duration: the session length (for example "50m" or "1h 30m"), empty
    string if neither printed nor derivable
  - dayOfWeek: one of Monday, Tuesday, Wednesday, Thursday, Friday,
    Saturday, Sunday

Ignore headers, legends, lunch markers, and cells without a class. If a cell
spans several days, emit one record per day.

Respond with ONLY a JSON object in this exact shape, no other text:
{"classes": [{"subject": "...", "roomNumber": "...", "startTime": "...", "endTime": "...", "duration": "...", "dayOfWeek": "..."}]}`

type extractionResult struct {
	Classes []store.RawClass `json:"classes"`
}

// Analyzer runs timetable extraction against a vision model.
type Analyzer struct {
	chatter ai.Chatter
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer on top of the given completion provider.
func NewAnalyzer(chatter ai.Chatter) *Analyzer {
	return &Analyzer{
		chatter: chatter,
		logger:  slog.Default(),
	}
}

// Analyze extracts class records from a timetable photo given as a data URI.
// A response with no recognizable classes is an error so callers never
// silently replace a schedule with nothing.
func (a *Analyzer) Analyze(ctx context.Context, imageDataURI string) ([]store.RawClass, error) {
	response, err := a.chatter.ChatVision(ctx, extractionPrompt, imageDataURI)
	if err != nil {
		return nil, fmt.Errorf("timetable extraction request failed: %w", err)
	}

	var result extractionResult
	payload := ai.ExtractJSONBlock(response)
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		a.logger.Warn("unparseable extraction response", "error", err, "response_len", len(response))
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	if len(result.Classes) == 0 {
		return nil, fmt.Errorf("no classes recognized in the image")
	}

	a.logger.Info("timetable extracted", "classes", len(result.Classes))
	return result.Classes, nil
}
