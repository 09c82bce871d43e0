package protocol

import (
	"encoding/json"
	"time"
)

// Outbound tagged-object frames. These marshal through encoding/json so
// quotes, backslashes and newlines in message text are escaped exactly
// the way the backend's decoder expects them.

type initFrame struct {
	Type   string `json:"type"`
	Device string `json:"device"`
	UserID int    `json:"user_id,omitempty"`
}

type pingFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type chatSendFrame struct {
	Type      string `json:"type"`
	ToUserID  int    `json:"to_user_id"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

type typingFrame struct {
	Type     string `json:"type"`
	ToUserID int    `json:"to_user_id"`
}

type readReceiptFrame struct {
	Type      string `json:"type"`
	ToUserID  int    `json:"to_user_id"`
	MessageID string `json:"message_id"`
}

func marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable type, which none of the
		// frame structs are.
		panic(err)
	}
	return data
}

// EncodeInit builds the handshake frame sent immediately on connect so
// the backend can map this socket to the local user.
func EncodeInit(userID int) []byte {
	return marshal(initFrame{Type: "init", Device: "tinysocial", UserID: userID})
}

// EncodePing builds the periodic keep-alive probe.
func EncodePing() []byte {
	return marshal(pingFrame{Type: "ping", Timestamp: time.Now().Format(time.RFC3339)})
}

// EncodeChatSend builds an outbound chat message frame.
func EncodeChatSend(toID int, text, msgID string) []byte {
	return marshal(chatSendFrame{
		Type:      "chat_message",
		ToUserID:  toID,
		Message:   text,
		MessageID: msgID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// EncodeTypingStart signals the start of typing to a friend.
func EncodeTypingStart(toID int) []byte {
	return marshal(typingFrame{Type: "typing_start", ToUserID: toID})
}

// EncodeTypingStop signals the end of typing to a friend.
func EncodeTypingStop(toID int) []byte {
	return marshal(typingFrame{Type: "typing_stop", ToUserID: toID})
}

// EncodeReadReceipt reports that msgID from toID's conversation was read.
func EncodeReadReceipt(toID int, msgID string) []byte {
	return marshal(readReceiptFrame{Type: "message_read", ToUserID: toID, MessageID: msgID})
}
