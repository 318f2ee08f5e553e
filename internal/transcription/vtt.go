package transcription

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cue is a single timed caption from a WebVTT transcript.
type Cue struct {
	Number int
	Start  time.Duration
	End    time.Duration
	Text   string
}

// ParseVTT parses WebVTT content into cues
func ParseVTT(content string) ([]Cue, error) {
	// Trim any quotes from the content
	content = strings.Trim(content, "\"")

	// Convert literal \n to actual newlines if needed
	if strings.Contains(content, "\\n") {
		content = strings.ReplaceAll(content, "\\n", "\n")
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(content, "WEBVTT") {
		return nil, fmt.Errorf("invalid VTT format: missing WEBVTT header")
	}

	cues := []Cue{}
	blocks := strings.Split(content, "\n\n")

	// The first block is the header, optionally followed by a description.
	for _, block := range blocks[1:] {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")

		// Cue identifiers are optional; the timing line is the first one containing an arrow.
		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 || timing == len(lines)-1 {
			continue
		}

		timestamps := strings.Split(lines[timing], " --> ")
		if len(timestamps) != 2 {
			continue
		}

		start, err := parseVTTTimestamp(strings.TrimSpace(timestamps[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start timestamp: %w", err)
		}

		// Cue settings may follow the end timestamp.
		endField := strings.Fields(timestamps[1])
		if len(endField) == 0 {
			continue
		}
		end, err := parseVTTTimestamp(endField[0])
		if err != nil {
			return nil, fmt.Errorf("invalid end timestamp: %w", err)
		}

		cues = append(cues, Cue{
			Number: len(cues) + 1,
			Start:  start,
			End:    end,
			Text:   strings.Join(lines[timing+1:], " "),
		})
	}

	return cues, nil
}

// TextBetween joins the text of every cue overlapping [start, end).
func TextBetween(cues []Cue, start, end time.Duration) string {
	var b strings.Builder
	for _, c := range cues {
		if c.End <= start || c.Start >= end {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimSpace(c.Text))
	}
	return b.String()
}

func parseVTTTimestamp(timestamp string) (time.Duration, error) {
	// Validate format ([HH:]MM:SS.mmm)
	if !strings.Contains(timestamp, ".") {
		return 0, fmt.Errorf("invalid timestamp format: missing milliseconds")
	}

	parts := strings.Split(timestamp, ":")
	if len(parts) == 2 {
		parts = append([]string{"00"}, parts...)
	}
	if len(parts) != 3 || len(parts[0]) < 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid timestamp format: expected HH:MM:SS.mmm")
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours: %w", err)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes: %w", err)
	}

	// Split seconds and milliseconds
	secondParts := strings.Split(parts[2], ".")
	if len(secondParts) != 2 || len(secondParts[1]) != 3 {
		return 0, fmt.Errorf("invalid seconds format: missing milliseconds")
	}

	seconds, err := strconv.Atoi(secondParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds: %w", err)
	}

	milliseconds, err := strconv.Atoi(secondParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds: %w", err)
	}

	duration := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(milliseconds)*time.Millisecond

	return duration, nil
}
