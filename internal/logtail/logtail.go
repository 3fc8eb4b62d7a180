package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. maxLines <= 0
// returns the whole file. A missing file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Level is the inferred severity of a log line.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Entry is a parsed log line.
type Entry struct {
	Time      string // "2006/01/02 15:04:05" prefix written by package log
	Component string // "tracker", "nearby", ...
	Message   string
	Level     Level
	Raw       string
}

var (
	timePrefix   = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?) `)
	componentTag = regexp.MustCompile(`^([a-z][a-z0-9_-]*): `)
)

var (
	errorWords = []string{"failed", "error", "unauthorized", "rejected"}
	warnWords  = []string{"blocked", "denied", "timed out", "timeout", "unavailable"}
	debugWords = []string{"skipped", "throttled", "dropped", "dropping"}
)

// Parse splits a line written through package log into its parts and infers
// a level from the message wording.
func Parse(line string) Entry {
	e := Entry{Raw: line}
	rest := line
	if m := timePrefix.FindStringSubmatch(rest); m != nil {
		e.Time = m[1]
		rest = rest[len(m[0]):]
	}
	if m := componentTag.FindStringSubmatch(rest); m != nil {
		e.Component = m[1]
		rest = rest[len(m[0]):]
	}
	e.Message = rest
	e.Level = classify(rest)
	return e
}

// ParseLines parses each line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, len(lines))
	for i, line := range lines {
		out[i] = Parse(line)
	}
	return out
}

func classify(message string) Level {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, errorWords):
		return LevelError
	case containsAny(lower, warnWords):
		return LevelWarn
	case containsAny(lower, debugWords):
		return LevelDebug
	default:
		return LevelInfo
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
