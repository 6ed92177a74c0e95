package protocol

import (
	"bytes"
	"fmt"
)

// MaxMessageSize bounds a single inbound JSON document.
const MaxMessageSize = 1 << 20

// SplitJSON is a bufio.SplitFunc that yields one top-level JSON object per
// token. Agents send objects back to back with no delimiter, so a single read
// may hold several objects or only part of one. A top-level array is kept
// whole as one token. Bytes outside any object or array are returned as their
// own token so the caller can answer them with an error.
func SplitJSON(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if start == len(data) {
		return len(data), nil, nil
	}

	if data[start] != '{' && data[start] != '[' {
		next := bytes.IndexAny(data[start:], "{[")
		if next < 0 {
			return len(data), bytes.TrimSpace(data[start:]), nil
		}
		return start + next, bytes.TrimSpace(data[start : start+next]), nil
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return i + 1, data[start : i+1], nil
			}
		}
	}

	if len(data)-start > MaxMessageSize {
		return 0, nil, fmt.Errorf("%w: %d bytes without a complete object", ErrMessageTooLarge, len(data)-start)
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
