package protocol

import (
	"reflect"
	"testing"
)

func TestDecodeTaggedFrames(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "pong",
			frame: `{"type":"pong"}`,
			want:  Pong{},
		},
		{
			name:  "init ack",
			frame: `{"type":"init_ack"}`,
			want:  InitAck{},
		},
		{
			name:  "chat message",
			frame: `{"type":"chat_message","from_user_id":3,"from_nickname":"Tester","message":"hi there","message_id":"m-1","timestamp":"2024-01-01T00:00:00"}`,
			want:  ChatMessage{FromID: 3, FromName: "Tester", Text: "hi there", MsgID: "m-1", Timestamp: "2024-01-01T00:00:00"},
		},
		{
			name:  "chat message with missing fields degrades to defaults",
			frame: `{"type":"chat_message","message":"hello"}`,
			want:  ChatMessage{FromID: -1, Text: "hello"},
		},
		{
			name:  "chat ack maps to sent status",
			frame: `{"type":"chat_ack","message_id":"m-2"}`,
			want:  DeliveryStatus{MsgID: "m-2", Status: "sent"},
		},
		{
			name:  "chat error maps to failed status",
			frame: `{"type":"chat_error","message":"Users are not friends","code":"not_friends"}`,
			want:  DeliveryStatus{Status: "failed", Message: "Users are not friends"},
		},
		{
			name:  "delivery",
			frame: `{"type":"message_delivered","message_id":"m-3","timestamp":"ts"}`,
			want:  DeliveryStatus{MsgID: "m-3", Status: "delivered", Timestamp: "ts"},
		},
		{
			name:  "read receipt",
			frame: `{"type":"message_read","message_id":"m-4","timestamp":"ts"}`,
			want:  ReadReceipt{MsgID: "m-4", Timestamp: "ts"},
		},
		{
			name:  "typing status",
			frame: `{"type":"typing_status","from_user_id":7,"from_nickname":"Ace","is_typing":true}`,
			want:  TypingChanged{FromID: 7, FromName: "Ace", IsTyping: true},
		},
		{
			name:  "presence bool flag",
			frame: `{"type":"user_status_update","user_id":9,"online":true}`,
			want:  PresenceChanged{UserID: 9, Online: true},
		},
		{
			name:  "presence status string",
			frame: `{"type":"user_status_update","user_id":9,"status":"offline"}`,
			want:  PresenceChanged{UserID: 9, Online: false},
		},
		{
			name:  "notification",
			frame: `{"type":"notification","notification":{"id":42,"type":"friend_request","message":"Ace wants to be friends","timestamp":"2024-01-01","read":false}}`,
			want:  Notification{ID: 42, Kind: NotifFriendRequest, Message: "Ace wants to be friends", Timestamp: "2024-01-01"},
		},
		{
			name:  "notification with missing body",
			frame: `{"type":"notification"}`,
			want:  Notification{ID: -1},
		},
		{
			name:  "game invite event",
			frame: `{"type":"game_event","event":{"event_type":"invite","session_id":12,"game_type":"caro","host_nickname":"Hero"}}`,
			want:  GameEvent{Kind: GameEvtInvite, SessionID: 12, GameType: "caro", UserID: -1, Nickname: "Hero"},
		},
		{
			name:  "invite response carries the responder's name",
			frame: `{"type":"game_event","event":{"event_type":"respond","session_id":12,"user_id":5,"user_nickname":"Alice","accepted":true}}`,
			want:  GameEvent{Kind: GameEvtInviteResponse, SessionID: 12, UserID: 5, Nickname: "Alice", Accepted: true},
		},
		{
			name:  "bare nickname still decodes",
			frame: `{"type":"game_event","event":{"event_type":"left","session_id":12,"user_id":5,"nickname":"Hero"}}`,
			want:  GameEvent{Kind: GameEvtLeave, SessionID: 12, UserID: 5, Nickname: "Hero"},
		},
		{
			name:  "game move event",
			frame: `{"type":"game_event","event":{"event_type":"move","session_id":12,"user_id":5,"row":7,"col":10,"game_status":"in_progress","current_turn":6}}`,
			want:  GameMove{SessionID: 12, UserID: 5, Row: 7, Col: 10, Status: "in_progress", WinnerID: -1, CurrentTurn: 6},
		},
		{
			name:  "unknown type",
			frame: `{"type":"mystery","x":1}`,
			want:  Unrecognized{Raw: `{"type":"mystery","x":1}`},
		},
		{
			name:  "missing type marker",
			frame: `{"x":1}`,
			want:  Unrecognized{Raw: `{"x":1}`},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode([]byte(tc.frame))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Decode(%s)\n got %#v\nwant %#v", tc.frame, got, tc.want)
			}
		})
	}
}

func TestDecodePatternFrames(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "login success",
			frame: "type:login_success-*-session_id:s-1-*-message:ok",
			want:  AuthResult{OK: true, SessionID: "s-1", Message: "ok"},
		},
		{
			name:  "username valid",
			frame: "type:username_valid-*-message:Username exists",
			want:  UsernameCheckResult{OK: true, Message: "Username exists"},
		},
		{
			name:  "username not found error routes to username check",
			frame: "type:error-*-message:Username not found",
			want:  UsernameCheckResult{OK: false, Message: "Username not found"},
		},
		{
			name:  "invalid pin error routes to auth",
			frame: "type:error-*-message:Invalid PIN",
			want:  AuthResult{OK: false, Message: "Invalid PIN"},
		},
		{
			name:  "other error is a server error",
			frame: "type:error-*-message:rate limited",
			want:  ServerError{Message: "rate limited"},
		},
		{
			name:  "pattern pong",
			frame: "type:pong",
			want:  Pong{},
		},
		{
			name:  "junk",
			frame: "not a frame",
			want:  Unrecognized{Raw: "not a frame"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode([]byte(tc.frame))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Decode(%s)\n got %#v\nwant %#v", tc.frame, got, tc.want)
			}
		})
	}
}

// The backend decodes our chat frames with a plain JSON parser, so an
// encode/decode trip must preserve text with quotes, backslashes and
// newlines exactly.
func TestChatSendRoundTrip(t *testing.T) {
	text := "line one\nsaid \"hey\" and c:\\path"
	frame := EncodeChatSend(14, text, "msg-77")

	f, ok := ParseJSON(frame)
	if !ok {
		t.Fatalf("backend-side parse failed for %s", frame)
	}
	if got := f.Str("type"); got != "chat_message" {
		t.Fatalf("type = %q", got)
	}
	if got := f.Int("to_user_id"); got != 14 {
		t.Fatalf("to_user_id = %d, want 14", got)
	}
	if got := f.Str("message"); got != text {
		t.Fatalf("message = %q, want %q", got, text)
	}
	if got := f.Str("message_id"); got != "msg-77" {
		t.Fatalf("message_id = %q, want msg-77", got)
	}
}

func TestEncodeTypingAndReceipt(t *testing.T) {
	f, ok := ParseJSON(EncodeTypingStart(5))
	if !ok || f.Str("type") != "typing_start" || f.Int("to_user_id") != 5 {
		t.Fatalf("typing_start frame wrong: %v", f)
	}
	f, ok = ParseJSON(EncodeTypingStop(5))
	if !ok || f.Str("type") != "typing_stop" {
		t.Fatalf("typing_stop frame wrong: %v", f)
	}
	f, ok = ParseJSON(EncodeReadReceipt(5, "m-9"))
	if !ok || f.Str("type") != "message_read" || f.Str("message_id") != "m-9" {
		t.Fatalf("message_read frame wrong: %v", f)
	}
}

func TestEncodeInitCarriesUserID(t *testing.T) {
	f, ok := ParseJSON(EncodeInit(5))
	if !ok {
		t.Fatal("init frame did not parse")
	}
	if f.Str("type") != "init" || f.Int("user_id") != 5 {
		t.Fatalf("init frame wrong: %v", f)
	}
}
