package transcription

import (
	"testing"
	"time"
)

func TestParseVTT(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name: "basic vtt",
			content: `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello, this is the first subtitle

00:00:04.100 --> 00:00:08.000
This is the second subtitle`,
			want:    2,
			wantErr: false,
		},
		{
			name: "multi-line subtitle",
			content: `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello, this is
a multi-line subtitle

00:00:04.100 --> 00:00:08.000
Second entry`,
			want:    2,
			wantErr: false,
		},
		{
			name: "cue identifiers and settings",
			content: "WEBVTT - lecture\r\n\r\nintro\r\n00:00:01.000 --> 00:00:04.000 align:start\r\nHello\r\n\r\n2\r\n00:00:04.100 --> 00:00:08.000\r\nWorld",
			want:    2,
			wantErr: false,
		},
		{
			name:    "invalid header",
			content: "NOT A VTT FILE",
			want:    0,
			wantErr: true,
		},
		{
			name: "empty lines between entries",
			content: `WEBVTT


00:00:01.000 --> 00:00:04.000
First entry


00:00:04.100 --> 00:00:08.000
Second entry`,
			want:    2,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseVTT(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVTT() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(entries) != tt.want {
				t.Errorf("ParseVTT() got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestParseVTTTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		want      time.Duration
		wantErr   bool
	}{
		{
			name:      "zero timestamp",
			timestamp: "00:00:00.000",
			want:      0,
			wantErr:   false,
		},
		{
			name:      "one second",
			timestamp: "00:00:01.000",
			want:      time.Second,
			wantErr:   false,
		},
		{
			name:      "with hours",
			timestamp: "01:00:00.000",
			want:      time.Hour,
			wantErr:   false,
		},
		{
			name:      "with milliseconds",
			timestamp: "00:00:00.500",
			want:      500 * time.Millisecond,
			wantErr:   false,
		},
		{
			name:      "complex time",
			timestamp: "01:23:45.678",
			want:      1*time.Hour + 23*time.Minute + 45*time.Second + 678*time.Millisecond,
			wantErr:   false,
		},
		{
			name:      "invalid format",
			timestamp: "1:23:45.678",
			wantErr:   true,
		},
		{
			name:      "missing milliseconds",
			timestamp: "00:00:01",
			wantErr:   true,
		},
		{
			name:      "minutes only",
			timestamp: "01:30.250",
			want:      90*time.Second + 250*time.Millisecond,
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVTTTimestamp(tt.timestamp)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVTTTimestamp() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseVTTTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
} 
func TestTextBetween(t *testing.T) {
	cues, err := ParseVTT(`WEBVTT

00:00:01.000 --> 00:00:04.000
the dog runs

00:00:29.000 --> 00:00:31.000
across the field

00:00:45.000 --> 00:00:50.000
and sits down`)
	if err != nil {
		t.Fatalf("ParseVTT() error = %v", err)
	}

	tests := []struct {
		name       string
		start, end time.Duration
		want       string
	}{
		{"first segment", 0, 30 * time.Second, "the dog runs across the field"},
		{"second segment", 30 * time.Second, 60 * time.Second, "across the field and sits down"},
		{"no overlap", 60 * time.Second, 90 * time.Second, ""},
		{"touching edge excluded", 4 * time.Second, 29 * time.Second, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextBetween(cues, tt.start, tt.end); got != tt.want {
				t.Errorf("TextBetween() = %q, want %q", got, tt.want)
			}
		})
	}
}
