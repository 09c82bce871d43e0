package protocol

import "strings"

// The auth handshake speaks the older "pattern" encoding: ordered
// key:value fields joined by a fixed separator token, e.g.
//
//	type:login-*-username:player1-*-pin:4321
//
// Values may contain colons (split on the first colon only) but never
// the separator token itself.
const patternSep = "-*-"

// PatternMessage is a decoded pattern frame: the type marker plus an
// arbitrary bag of string fields.
type PatternMessage struct {
	Type   string
	Fields map[string]string
}

// Get returns the field value, or def when absent or empty.
func (m PatternMessage) Get(key, def string) string {
	if v := m.Fields[key]; v != "" {
		return v
	}
	return def
}

func encodePattern(pairs ...[2]string) []byte {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+":"+p[1])
	}
	return []byte(strings.Join(parts, patternSep))
}

// DecodePattern parses a pattern frame. Pairs without a colon are
// ignored; a missing type field leaves Type empty.
func DecodePattern(frame []byte) PatternMessage {
	msg := PatternMessage{Fields: map[string]string{}}
	for _, pair := range strings.Split(string(frame), patternSep) {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if key == "type" {
			msg.Type = value
			continue
		}
		msg.Fields[key] = value
	}
	return msg
}

// EncodeLogin builds the pattern-format login frame. Field order is
// fixed: the backend's parser is order-insensitive but the device
// firmware always emitted type, username, pin.
func EncodeLogin(username, pin string) []byte {
	return encodePattern(
		[2]string{"type", "login"},
		[2]string{"username", username},
		[2]string{"pin", pin},
	)
}

// EncodeUsernameCheck builds the pre-login username validation frame.
func EncodeUsernameCheck(username string) []byte {
	return encodePattern(
		[2]string{"type", "validate_username"},
		[2]string{"username", username},
	)
}
