// Package logtail reads the tail of the nearby log file and parses its lines
// for the log pane.
//
// # Reading Log Files
//
// The Read function uses a ring buffer to extract the last maxLines from a
// file in a single pass:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in chronological order
//
// Example usage:
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//	if err != nil {
//		log.Printf("failed to read log: %v", err)
//	}
//
// # Line Format
//
// The client logs through the standard library log package with date and time
// flags and a component prefix in the message:
//
//	2025/10/08 21:01:05 tracker: refresh failed: TIMEOUT: no location fix within 15s
//
// Parse splits such a line into time, component and message and infers a
// Level from the wording, since package log has no levels of its own. Lines
// that do not match keep their full text in Message.
package logtail
