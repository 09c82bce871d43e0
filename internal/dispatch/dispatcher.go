package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/tnetwork96/tinysocial/internal/game"
	"github.com/tnetwork96/tinysocial/internal/metrics"
	"github.com/tnetwork96/tinysocial/internal/protocol"
	"github.com/tnetwork96/tinysocial/internal/state"
)

// Sender is the outbound half of the socket the dispatcher writes to.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// Hooks are optional observation points for the presentation layer.
// They run on the receive goroutine and must not block.
type Hooks struct {
	// Notify fires after every applied mutation so the UI can refresh.
	Notify func()
	// OnConnected fires after the transport (re)establishes, the cue to
	// re-pull friends and notifications over REST.
	OnConnected func()
	// OnAuth receives login/username-check results from the pattern
	// protocol phase of the socket.
	OnAuth func(protocol.Event)
	// OnChat receives each inbound chat message after the unread
	// counter was bumped, for the open conversation view.
	OnChat func(protocol.ChatMessage)
	// OnReceipt receives delivery-status and read-receipt events.
	OnReceipt func(protocol.Event)
	// OnGameStarted fires when an outbound invite is accepted and the
	// hosted session begins.
	OnGameStarted func(sessionID int)
}

// Dispatcher is the single place that knows both sides: the socket it
// reads frames from and the store/synchronizer it mutates. Each decoded
// event maps to exactly one state mutation; everything else is a hook
// or a log line.
type Dispatcher struct {
	sock  Sender
	store *state.Store
	game  *game.Synchronizer
	hooks Hooks
	log   *zap.Logger

	localUserID int
}

func New(sock Sender, store *state.Store, sync *game.Synchronizer, localUserID int, hooks Hooks, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		sock:        sock,
		store:       store,
		game:        sync,
		hooks:       hooks,
		log:         log,
		localUserID: localUserID,
	}
}

func (d *Dispatcher) HandleConnected() {
	if d.hooks.OnConnected != nil {
		d.hooks.OnConnected()
	}
	d.notify()
}

func (d *Dispatcher) HandleDisconnected() {
	d.notify()
}

// HandleFrame decodes one inbound frame and routes it. Runs on the
// receive goroutine; ordering across frames is the transport's order.
func (d *Dispatcher) HandleFrame(frame []byte) {
	ev := protocol.Decode(frame)
	metrics.EventsDispatched.WithLabelValues(kindOf(ev)).Inc()

	switch ev := ev.(type) {
	case protocol.Pong, protocol.InitAck:
		// Keep-alive bookkeeping only; a missing pong is never fatal.
		return

	case protocol.AuthResult, protocol.UsernameCheckResult:
		if d.hooks.OnAuth != nil {
			d.hooks.OnAuth(ev)
		}

	case protocol.ServerError:
		d.log.Warn("server error frame", zap.String("message", ev.Message))

	case protocol.Notification:
		d.store.UpsertNotification(state.Notification{
			ID:        ev.ID,
			Kind:      ev.Kind,
			Message:   ev.Message,
			Timestamp: ev.Timestamp,
			Read:      ev.Read,
		})

	case protocol.ChatMessage:
		d.store.IncrementUnread(ev.FromID)
		if d.hooks.OnChat != nil {
			d.hooks.OnChat(ev)
		}

	case protocol.TypingChanged:
		d.store.UpdateTyping(ev.FromID, ev.IsTyping)

	case protocol.PresenceChanged:
		d.store.UpdatePresence(ev.UserID, ev.Online)

	case protocol.DeliveryStatus, protocol.ReadReceipt:
		if d.hooks.OnReceipt != nil {
			d.hooks.OnReceipt(ev)
		}

	case protocol.GameEvent:
		d.handleGameEvent(ev)

	case protocol.GameMove:
		// The server echoes confirmed local moves; those were already
		// reconciled from the REST response.
		if ev.UserID != d.localUserID {
			d.game.OnRemoteMove(ev.SessionID, ev.UserID, ev.Row, ev.Col, ev.Status, ev.WinnerID, ev.CurrentTurn)
		}

	case protocol.Unrecognized:
		metrics.UnrecognizedFrames.Inc()
		d.log.Debug("unrecognized frame discarded", zap.String("raw", ev.Raw))

	default:
		d.log.Debug("unrouted event", zap.String("kind", kindOf(ev)))
	}

	d.notify()
}

func (d *Dispatcher) handleGameEvent(ev protocol.GameEvent) {
	switch ev.Kind {
	case protocol.GameEvtInvite:
		d.store.UpsertInvite(state.Invite{
			SessionID: ev.SessionID,
			GameType:  ev.GameType,
			Status:    state.InvitePending,
			HostName:  ev.Nickname,
		})

	case protocol.GameEvtInviteCancel:
		d.store.UpsertInvite(state.Invite{
			SessionID: ev.SessionID,
			GameType:  ev.GameType,
			Status:    state.InviteCancelled,
			HostName:  ev.Nickname,
		})
		d.store.RemoveInviteIfCancelled(ev.SessionID)

	case protocol.GameEvtInviteResponse:
		// As host: the guest accepted, the session begins with us to
		// move. A decline just logs; the session stays unstarted.
		if ev.Accepted {
			d.game.StartAsHost(ev.SessionID, ev.UserID)
			if d.hooks.OnGameStarted != nil {
				d.hooks.OnGameStarted(ev.SessionID)
			}
		} else {
			d.log.Info("invite declined",
				zap.Int("session_id", ev.SessionID), zap.Int("user_id", ev.UserID))
		}

	case protocol.GameEvtLeave:
		if d.game.View().SessionID == ev.SessionID {
			d.game.Leave()
		}

	case protocol.GameEvtReady, protocol.GameEvtSessionUpdate:
		d.log.Debug("game session event",
			zap.String("kind", ev.Kind), zap.Int("session_id", ev.SessionID), zap.String("status", ev.Status))

	default:
		d.log.Debug("unhandled game event", zap.String("kind", ev.Kind))
	}
}

func (d *Dispatcher) notify() {
	if d.hooks.Notify != nil {
		d.hooks.Notify()
	}
}

// SendChat writes a chat frame for toID. Delivery confirmation arrives
// later as a DeliveryStatus event keyed on msgID.
func (d *Dispatcher) SendChat(ctx context.Context, toID int, text, msgID string) error {
	return d.sock.Send(ctx, protocol.EncodeChatSend(toID, text, msgID))
}

func (d *Dispatcher) SendTyping(ctx context.Context, toID int, typing bool) error {
	if typing {
		return d.sock.Send(ctx, protocol.EncodeTypingStart(toID))
	}
	return d.sock.Send(ctx, protocol.EncodeTypingStop(toID))
}

// MarkRead clears the local unread badge and tells the sender their
// message was read.
func (d *Dispatcher) MarkRead(ctx context.Context, toID int, msgID string) error {
	d.store.ClearUnread(toID)
	return d.sock.Send(ctx, protocol.EncodeReadReceipt(toID, msgID))
}

func kindOf(ev protocol.Event) string {
	switch ev.(type) {
	case protocol.Pong:
		return "pong"
	case protocol.InitAck:
		return "init_ack"
	case protocol.AuthResult:
		return "auth_result"
	case protocol.UsernameCheckResult:
		return "username_check"
	case protocol.ServerError:
		return "server_error"
	case protocol.Notification:
		return "notification"
	case protocol.ChatMessage:
		return "chat_message"
	case protocol.TypingChanged:
		return "typing"
	case protocol.DeliveryStatus:
		return "delivery_status"
	case protocol.ReadReceipt:
		return "read_receipt"
	case protocol.PresenceChanged:
		return "presence"
	case protocol.GameEvent:
		return "game_event"
	case protocol.GameMove:
		return "game_move"
	case protocol.Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}
