package protocol

// Event is the tagged variant produced by Decode. The dispatcher
// switches over the concrete types; anything it does not know how to
// route arrives as Unrecognized.
type Event interface{ isEvent() }

// Pong acknowledges a keep-alive probe. Carries nothing; its absence is
// deliberately not treated as a liveness failure.
type Pong struct{}

// InitAck acknowledges the post-connect init handshake.
type InitAck struct{}

// AuthResult is the reply to a pattern-format login frame.
type AuthResult struct {
	OK        bool
	SessionID string
	Message   string
}

// UsernameCheckResult is the reply to a pre-login username validation.
type UsernameCheckResult struct {
	OK      bool
	Message string
}

// ServerError is a pattern or tagged error frame that matched neither
// the auth nor the username-check heuristics.
type ServerError struct {
	Message string
}

// Notification is a pushed notification record.
type Notification struct {
	ID        int
	Kind      string
	Message   string
	Timestamp string
	Read      bool
}

// ChatMessage is an incoming chat message from a friend.
type ChatMessage struct {
	FromID    int
	FromName  string
	Text      string
	MsgID     string
	Timestamp string
}

// TypingChanged reports a friend starting or stopping typing.
type TypingChanged struct {
	FromID   int
	FromName string
	IsTyping bool
}

// DeliveryStatus reports the fate of a message this client sent.
// Status is one of "sent" (accepted by the server), "delivered"
// (reached the recipient) or "failed".
type DeliveryStatus struct {
	MsgID     string
	Status    string
	Message   string
	Timestamp string
}

// ReadReceipt reports that the recipient read a message.
type ReadReceipt struct {
	MsgID     string
	Timestamp string
}

// PresenceChanged reports a friend going online or offline.
type PresenceChanged struct {
	UserID int
	Online bool
}

// GameEvent is any game session event other than a move: invites,
// invite responses, ready toggles, leaves, session updates.
type GameEvent struct {
	Kind      string
	SessionID int
	GameType  string
	Status    string
	UserID    int
	Accepted  bool
	Ready     bool
	Nickname  string
}

// GameMove is an authoritative move pushed for the active session.
type GameMove struct {
	SessionID   int
	UserID      int
	Row         int
	Col         int
	Status      string
	WinnerID    int
	CurrentTurn int
}

// Unrecognized wraps a frame with a missing or unknown type marker.
// The raw text is kept for logging.
type Unrecognized struct {
	Raw string
}

func (Pong) isEvent()                {}
func (InitAck) isEvent()             {}
func (AuthResult) isEvent()          {}
func (UsernameCheckResult) isEvent() {}
func (ServerError) isEvent()         {}
func (Notification) isEvent()        {}
func (ChatMessage) isEvent()         {}
func (TypingChanged) isEvent()       {}
func (DeliveryStatus) isEvent()      {}
func (ReadReceipt) isEvent()         {}
func (PresenceChanged) isEvent()     {}
func (GameEvent) isEvent()           {}
func (GameMove) isEvent()            {}
func (Unrecognized) isEvent()        {}

// Known notification kinds. The wire value is carried verbatim so new
// server-side kinds pass through.
const (
	NotifFriendRequest  = "friend_request"
	NotifFriendAccepted = "friend_request_accepted"
	NotifGameInvite     = "game_invite"
)

// Game event kinds as the backend broadcasts them.
const (
	GameEvtInvite         = "invite"
	GameEvtInviteResponse = "respond"
	GameEvtInviteCancel   = "cancelled"
	GameEvtReady          = "ready"
	GameEvtLeave          = "left"
	GameEvtMove           = "move"
	GameEvtSessionUpdate  = "session_update"
)
