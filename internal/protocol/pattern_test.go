package protocol

import "testing"

func TestEncodeLogin(t *testing.T) {
	got := string(EncodeLogin("player1", "4321"))
	want := "type:login-*-username:player1-*-pin:4321"
	if got != want {
		t.Fatalf("EncodeLogin = %q, want %q", got, want)
	}
}

func TestEncodeUsernameCheck(t *testing.T) {
	got := string(EncodeUsernameCheck("player2"))
	want := "type:validate_username-*-username:player2"
	if got != want {
		t.Fatalf("EncodeUsernameCheck = %q, want %q", got, want)
	}
}

func TestDecodePattern(t *testing.T) {
	cases := []struct {
		name     string
		frame    string
		wantType string
		wantKV   map[string]string
	}{
		{
			name:     "login success",
			frame:    "type:login_success-*-session_id:abc-123-*-message:Authentication successful",
			wantType: "login_success",
			wantKV:   map[string]string{"session_id": "abc-123", "message": "Authentication successful"},
		},
		{
			name:     "value containing colon splits on first colon only",
			frame:    "type:error-*-message:bad thing: details",
			wantType: "error",
			wantKV:   map[string]string{"message": "bad thing: details"},
		},
		{
			name:     "pair without colon is skipped",
			frame:    "type:pong-*-garbage",
			wantType: "pong",
			wantKV:   map[string]string{},
		},
		{
			name:     "no type marker",
			frame:    "session_id:xyz",
			wantType: "",
			wantKV:   map[string]string{"session_id": "xyz"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := DecodePattern([]byte(tc.frame))
			if msg.Type != tc.wantType {
				t.Fatalf("type = %q, want %q", msg.Type, tc.wantType)
			}
			for k, want := range tc.wantKV {
				if got := msg.Get(k, ""); got != want {
					t.Errorf("field %q = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestPatternGetDefault(t *testing.T) {
	msg := DecodePattern([]byte("type:login_success"))
	if got := msg.Get("session_id", "fallback"); got != "fallback" {
		t.Fatalf("missing field should yield default, got %q", got)
	}
}
