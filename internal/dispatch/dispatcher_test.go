package dispatch

import (
	"context"
	"testing"

	"github.com/tnetwork96/tinysocial/internal/game"
	"github.com/tnetwork96/tinysocial/internal/protocol"
	"github.com/tnetwork96/tinysocial/internal/state"
)

const localID = 10

type fakeSender struct {
	frames [][]byte
}

func (f *fakeSender) Send(_ context.Context, frame []byte) error {
	f.frames = append(f.frames, frame)
	return nil
}

type nullBackend struct{}

func (nullBackend) SubmitMove(context.Context, int, int, int, int) (game.MoveResult, error) {
	return game.MoveResult{Accepted: true}, nil
}
func (nullBackend) GameState(context.Context, int) (game.StateResult, error) {
	return game.StateResult{OK: true}, nil
}

func newDispatcher(hooks Hooks) (*Dispatcher, *state.Store, *game.Synchronizer, *fakeSender) {
	store := state.NewStore()
	sync := game.NewSynchronizer(nullBackend{}, localID, nil)
	sock := &fakeSender{}
	return New(sock, store, sync, localID, hooks, nil), store, sync, sock
}

func TestNotificationFrameLandsInStore(t *testing.T) {
	d, store, _, _ := newDispatcher(Hooks{})
	d.HandleFrame([]byte(`{"type":"notification","notification":{"id":4,"type":"friend_request","message":"ha wants to be friends","timestamp":"t1","read":false}}`))

	got := store.NotificationsSnapshot()
	if len(got) != 1 || got[0].ID != 4 || got[0].Kind != "friend_request" {
		t.Fatalf("store holds %+v", got)
	}

	// Same frame again is suppressed.
	d.HandleFrame([]byte(`{"type":"notification","notification":{"id":4,"type":"friend_request","message":"ha wants to be friends","timestamp":"t1","read":false}}`))
	if n := len(store.NotificationsSnapshot()); n != 1 {
		t.Fatalf("duplicate frame grew store to %d", n)
	}
}

func TestChatMessageBumpsUnreadAndFiresHook(t *testing.T) {
	var hooked []protocol.ChatMessage
	d, store, _, _ := newDispatcher(Hooks{
		OnChat: func(m protocol.ChatMessage) { hooked = append(hooked, m) },
	})
	store.SetFriends([]state.Friend{{ID: 8, Name: "binh"}})

	d.HandleFrame([]byte(`{"type":"chat_message","from_user_id":8,"from_nickname":"binh","message":"hi","message_id":"m1","timestamp":"t"}`))

	if got := store.FriendsSnapshot()[0].Unread; got != 1 {
		t.Fatalf("unread %d, want 1", got)
	}
	if len(hooked) != 1 || hooked[0].Text != "hi" {
		t.Fatalf("hook got %+v", hooked)
	}
}

func TestPresenceAndTypingRouting(t *testing.T) {
	d, store, _, _ := newDispatcher(Hooks{})
	store.SetFriends([]state.Friend{{ID: 8, Name: "binh"}})

	d.HandleFrame([]byte(`{"type":"user_status_update","user_id":8,"online":true}`))
	d.HandleFrame([]byte(`{"type":"typing_status","from_user_id":8,"is_typing":true}`))

	f := store.FriendsSnapshot()[0]
	if !f.Online || !f.Typing {
		t.Fatalf("friend state %+v after pushes", f)
	}
}

func TestInviteLifecycleRouting(t *testing.T) {
	d, store, _, _ := newDispatcher(Hooks{})

	// Exact broadcast shapes as the backend emits them.
	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"invite","session_id":42,"game_type":"caro","host_nickname":"ha"}}`))
	inv := store.InvitesSnapshot()
	if len(inv) != 1 || inv[0].SessionID != 42 || inv[0].Status != state.InvitePending {
		t.Fatalf("invites %+v", inv)
	}
	if inv[0].HostName != "ha" {
		t.Fatalf("host name %q, want ha", inv[0].HostName)
	}

	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"cancelled","session_id":42,"game_type":"caro"}}`))
	if n := len(store.InvitesSnapshot()); n != 0 {
		t.Fatalf("%d invites after cancel, want 0", n)
	}
}

func TestInviteAcceptedStartsHostSession(t *testing.T) {
	d, _, sync, _ := newDispatcher(Hooks{})

	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"respond","session_id":42,"user_id":20,"user_nickname":"binh","accepted":true}}`))

	v := sync.View()
	if v.SessionID != 42 || v.Status != game.StatusPlaying {
		t.Fatalf("session not started: %+v", v)
	}
	if v.CurrentTurn != localID {
		t.Fatalf("turn %d, want host %d", v.CurrentTurn, localID)
	}
	if v.GuestID != 20 {
		t.Fatalf("guest %d, want 20", v.GuestID)
	}
}

func TestRemoteMoveRoutedOwnEchoSkipped(t *testing.T) {
	d, _, sync, _ := newDispatcher(Hooks{})
	sync.StartAsHost(42, 20)

	// Opponent move lands on the board.
	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"move","session_id":42,"user_id":20,"row":3,"col":4,"game_status":"in_progress"}}`))
	if got := sync.View().Board[3][4]; got != 20 {
		t.Fatalf("cell holds %d, want 20", got)
	}

	// Echo of our own move is ignored; cell stays empty.
	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"move","session_id":42,"user_id":10,"row":5,"col":5,"game_status":"in_progress"}}`))
	if got := sync.View().Board[5][5]; got != game.EmptyCell {
		t.Fatalf("own echo marked cell with %d", got)
	}
}

func TestOpponentLeaveEndsSession(t *testing.T) {
	d, _, sync, _ := newDispatcher(Hooks{})
	sync.StartAsHost(42, 20)

	// Leave for another session is ignored.
	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"left","session_id":99,"user_id":20}}`))
	if sync.View().Status != game.StatusPlaying {
		t.Fatal("foreign leave ended our session")
	}

	d.HandleFrame([]byte(`{"type":"game_event","event":{"event_type":"left","session_id":42,"user_id":20}}`))
	if sync.View().Status != game.StatusIdle {
		t.Fatal("opponent leave did not end the session")
	}
}

func TestNotifyFiresPerFrame(t *testing.T) {
	calls := 0
	d, _, _, _ := newDispatcher(Hooks{Notify: func() { calls++ }})

	d.HandleFrame([]byte(`{"type":"pong"}`))
	d.HandleFrame([]byte(`not even close`))
	d.HandleFrame([]byte(`{"type":"user_status_update","user_id":8,"online":false}`))

	if calls != 3 {
		t.Fatalf("notify fired %d times, want 3", calls)
	}
}

func TestAuthResultRoutedToHook(t *testing.T) {
	var got []protocol.Event
	d, _, _, _ := newDispatcher(Hooks{OnAuth: func(ev protocol.Event) { got = append(got, ev) }})

	d.HandleFrame([]byte(`type:login_success-*-session_id:abc123`))
	d.HandleFrame([]byte(`type:error-*-message:Invalid PIN`))

	if len(got) != 2 {
		t.Fatalf("hook saw %d events, want 2", len(got))
	}
	auth, ok := got[0].(protocol.AuthResult)
	if !ok || !auth.OK || auth.SessionID != "abc123" {
		t.Fatalf("first event %+v", got[0])
	}
	if fail, ok := got[1].(protocol.AuthResult); !ok || fail.OK {
		t.Fatalf("second event %+v", got[1])
	}
}

func TestOutboundEncoding(t *testing.T) {
	d, store, _, sock := newDispatcher(Hooks{})
	store.SetFriends([]state.Friend{{ID: 8, Name: "binh", Unread: 3}})
	ctx := context.Background()

	if err := d.SendChat(ctx, 8, "hello", "m1"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if err := d.SendTyping(ctx, 8, true); err != nil {
		t.Fatalf("SendTyping: %v", err)
	}
	if err := d.MarkRead(ctx, 8, "m1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	if len(sock.frames) != 3 {
		t.Fatalf("%d frames sent, want 3", len(sock.frames))
	}
	f, ok := protocol.ParseJSON(sock.frames[0])
	if !ok || f.Str("type") != "chat_message" || f.Int("to_user_id") != 8 {
		t.Fatalf("chat frame %s", sock.frames[0])
	}
	if f, _ := protocol.ParseJSON(sock.frames[1]); f.Str("type") != "typing_start" {
		t.Fatalf("typing frame %s", sock.frames[1])
	}
	if f, _ := protocol.ParseJSON(sock.frames[2]); f.Str("type") != "message_read" {
		t.Fatalf("receipt frame %s", sock.frames[2])
	}

	// MarkRead also clears the local badge.
	if got := store.FriendsSnapshot()[0].Unread; got != 0 {
		t.Fatalf("unread %d after MarkRead, want 0", got)
	}
}
