package protocol

import (
	"bytes"
	"strings"
)

// Decode turns one inbound text frame into an Event. Frames beginning
// with '{' are tagged-object JSON; anything else is tried as the
// pattern format used by the auth handshake. Malformed or missing
// fields degrade to defaults ("", -1, false) rather than rejecting the
// frame; only a missing type marker yields Unrecognized.
func Decode(frame []byte) Event {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if f, ok := ParseJSON(trimmed); ok {
			return decodeTagged(f, trimmed)
		}
		return Unrecognized{Raw: string(trimmed)}
	}
	return decodePattern(DecodePattern(trimmed), trimmed)
}

func decodePattern(msg PatternMessage, raw []byte) Event {
	switch msg.Type {
	case "pong":
		return Pong{}
	case "login_success":
		return AuthResult{
			OK:        true,
			SessionID: msg.Get("session_id", ""),
			Message:   msg.Get("message", ""),
		}
	case "username_valid":
		return UsernameCheckResult{OK: true, Message: msg.Get("message", "Username exists")}
	case "error":
		return classifyError(msg.Get("message", "Unknown error"))
	case "":
		return Unrecognized{Raw: string(raw)}
	default:
		return Unrecognized{Raw: string(raw)}
	}
}

// classifyError sorts a pattern error frame into the reply it answers.
// The backend reuses a single error type for the whole handshake, so
// the device matches on message text the same way the firmware did.
func classifyError(message string) Event {
	if strings.Contains(message, "Username not found") || strings.Contains(message, "Account inactive") {
		return UsernameCheckResult{OK: false, Message: message}
	}
	if strings.Contains(message, "credential") || strings.Contains(message, "Invalid PIN") {
		return AuthResult{OK: false, Message: message}
	}
	return ServerError{Message: message}
}

func decodeTagged(f Fields, raw []byte) Event {
	switch f.Str("type") {
	case "pong":
		return Pong{}
	case "init_ack":
		return InitAck{}
	case "chat_message":
		return ChatMessage{
			FromID:    f.Int("from_user_id"),
			FromName:  f.Str("from_nickname"),
			Text:      f.Str("message"),
			MsgID:     f.Str("message_id"),
			Timestamp: f.Str("timestamp"),
		}
	case "chat_ack":
		return DeliveryStatus{MsgID: f.Str("message_id"), Status: "sent", Timestamp: f.Str("timestamp")}
	case "chat_error":
		return DeliveryStatus{
			MsgID:   f.Str("message_id"),
			Status:  "failed",
			Message: f.Str("message"),
		}
	case "message_delivered":
		return DeliveryStatus{MsgID: f.Str("message_id"), Status: "delivered", Timestamp: f.Str("timestamp")}
	case "message_read":
		return ReadReceipt{MsgID: f.Str("message_id"), Timestamp: f.Str("timestamp")}
	case "typing_status":
		return TypingChanged{
			FromID:   f.Int("from_user_id"),
			FromName: f.Str("from_nickname"),
			IsTyping: f.Bool("is_typing"),
		}
	case "typing_start":
		return TypingChanged{FromID: f.Int("from_user_id"), FromName: f.Str("from_nickname"), IsTyping: true}
	case "typing_stop":
		return TypingChanged{FromID: f.Int("from_user_id"), FromName: f.Str("from_nickname"), IsTyping: false}
	case "user_status_update":
		return PresenceChanged{UserID: f.Int("user_id"), Online: presenceOnline(f)}
	case "notification":
		n := f.Child("notification")
		return Notification{
			ID:        n.Int("id"),
			Kind:      n.Str("type"),
			Message:   n.Str("message"),
			Timestamp: n.Str("timestamp"),
			Read:      n.Bool("read"),
		}
	case "game_event":
		return decodeGameEvent(f.Child("event"))
	case "error":
		return ServerError{Message: f.StrOr("message", "Unknown error")}
	case "":
		return Unrecognized{Raw: string(raw)}
	default:
		return Unrecognized{Raw: string(raw)}
	}
}

// presenceOnline reads the online flag from either encoding the backend
// has used: a bare bool or a status string.
func presenceOnline(f Fields) bool {
	if f.Has("online") {
		return f.Bool("online")
	}
	return f.Str("status") == "online"
}

func decodeGameEvent(ev Fields) Event {
	kind := ev.Str("event_type")
	if kind == GameEvtMove {
		return GameMove{
			SessionID:   ev.Int("session_id"),
			UserID:      ev.Int("user_id"),
			Row:         ev.Int("row"),
			Col:         ev.Int("col"),
			Status:      ev.Str("game_status"),
			WinnerID:    ev.Int("winner_id"),
			CurrentTurn: ev.Int("current_turn"),
		}
	}
	return GameEvent{
		Kind:      kind,
		SessionID: ev.Int("session_id"),
		GameType:  ev.Str("game_type"),
		Status:    ev.Str("status"),
		UserID:    ev.Int("user_id"),
		Accepted:  ev.Bool("accepted"),
		Ready:     ev.Bool("ready"),
		Nickname:  gameEventNickname(ev),
	}
}

// gameEventNickname reads the acting player's display name. Invite
// broadcasts carry host_nickname, respond broadcasts user_nickname;
// a bare nickname key is kept as a fallback.
func gameEventNickname(ev Fields) string {
	if v := ev.Str("host_nickname"); v != "" {
		return v
	}
	if v := ev.Str("user_nickname"); v != "" {
		return v
	}
	return ev.Str("nickname")
}
