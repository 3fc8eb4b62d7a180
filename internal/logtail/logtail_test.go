package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Entry
	}{
		{
			name:  "empty line",
			input: "",
			want:  Entry{Level: LevelInfo},
		},
		{
			name:  "tracker failure",
			input: "2025/10/08 21:01:05 tracker: refresh failed: TIMEOUT: no location fix within 15s",
			want: Entry{
				Time:      "2025/10/08 21:01:05",
				Component: "tracker",
				Message:   "refresh failed: TIMEOUT: no location fix within 15s",
				Level:     LevelError,
			},
		},
		{
			name:  "permission blocked",
			input: "2025/10/08 21:01:05.123456 tracker: PERMISSION_BLOCKED: location access is blocked",
			want: Entry{
				Time:      "2025/10/08 21:01:05.123456",
				Component: "tracker",
				Message:   "PERMISSION_BLOCKED: location access is blocked",
				Level:     LevelWarn,
			},
		},
		{
			name:  "debug wording",
			input: "2025/10/08 21:01:05 nearby: dropped 1 invalid record(s) of 4: x",
			want: Entry{
				Time:      "2025/10/08 21:01:05",
				Component: "nearby",
				Message:   "dropped 1 invalid record(s) of 4: x",
				Level:     LevelDebug,
			},
		},
		{
			name:  "no prefix",
			input: "starting nearby",
			want:  Entry{Message: "starting nearby", Level: LevelInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Raw = tt.input
			if got := Parse(tt.input); got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]string{"a", "2025/10/08 21:01:05 tracker: location upload failed: x"})
	if len(got) != 2 || got[1].Level != LevelError || got[1].Level.String() != "ERROR" {
		t.Fatalf("ParseLines() = %+v", got)
	}
}
