package jsonfix

import (
	"strings"

	"github.com/tidwall/gjson"
)

// maxRepairCuts bounds how many incomplete trailing members Repair may drop.
const maxRepairCuts = 8

type frame struct {
	closer    byte
	openPos   int
	lastComma int
}

type scanState struct {
	frames   []frame
	inString bool
	escaped  bool
}

func (s scanState) open() bool {
	return s.inString || len(s.frames) > 0
}

func scan(text string) scanState {
	var st scanState
	for i := 0; i < len(text); i++ {
		c := text[i]
		if st.inString {
			switch {
			case st.escaped:
				st.escaped = false
			case c == '\\':
				st.escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}

		switch c {
		case '"':
			st.inString = true
		case '{':
			st.frames = append(st.frames, frame{closer: '}', openPos: i, lastComma: -1})
		case '[':
			st.frames = append(st.frames, frame{closer: ']', openPos: i, lastComma: -1})
		case '}', ']':
			if len(st.frames) > 0 {
				st.frames = st.frames[:len(st.frames)-1]
			}
		case ',':
			if len(st.frames) > 0 {
				st.frames[len(st.frames)-1].lastComma = i
			}
		}
	}
	return st
}

// IsTruncated reports whether text ends inside a string or with unclosed brackets.
func IsTruncated(text string) bool {
	return scan(strings.TrimSpace(text)).open()
}

// Repair closes what is structurally open in text: an unterminated string and any
// unmatched '{' or '['. When the innermost open member is incomplete (a dangling key,
// a key without a value, a partial literal) it is dropped back to the previous comma
// rather than invented. Repair never adds keys or values. It returns the repaired
// document and whether it is valid JSON.
func Repair(text string) (string, bool) {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return "", false
	}
	if gjson.Valid(candidate) {
		return candidate, true
	}

	for cut := 0; cut <= maxRepairCuts; cut++ {
		st := scan(candidate)
		if !st.open() {
			// Balanced but still invalid: nothing structural left to close.
			return candidate, false
		}

		closed := closeOpen(candidate, st)
		if gjson.Valid(closed) {
			return closed, true
		}

		top := st.frames
		if len(top) == 0 {
			return closed, false
		}
		f := top[len(top)-1]
		if f.lastComma >= 0 {
			candidate = strings.TrimSpace(candidate[:f.lastComma])
		} else if f.openPos+1 < len(candidate) {
			candidate = candidate[:f.openPos+1]
		} else {
			// The innermost container is already empty; drop it from its parent.
			candidate = strings.TrimSpace(candidate[:f.openPos])
			candidate = strings.TrimSuffix(candidate, ",")
			if strings.HasSuffix(candidate, ":") {
				return closed, false
			}
			if candidate == "" {
				return closed, false
			}
		}
	}

	return "", false
}

func closeOpen(text string, st scanState) string {
	var sb strings.Builder
	body := text
	if st.inString {
		if st.escaped {
			body = body[:len(body)-1]
		}
		sb.WriteString(body)
		sb.WriteByte('"')
	} else {
		body = strings.TrimRight(body, " \t\r\n")
		body = strings.TrimSuffix(body, ",")
		sb.WriteString(body)
	}

	for i := len(st.frames) - 1; i >= 0; i-- {
		sb.WriteByte(st.frames[i].closer)
	}
	return sb.String()
}
