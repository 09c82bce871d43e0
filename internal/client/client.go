// Package client wires the connection manager, dispatcher, store and
// game synchronizer into the surface the presentation layer consumes.
package client

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tnetwork96/tinysocial/internal/backend"
	"github.com/tnetwork96/tinysocial/internal/config"
	"github.com/tnetwork96/tinysocial/internal/conn"
	"github.com/tnetwork96/tinysocial/internal/dispatch"
	"github.com/tnetwork96/tinysocial/internal/game"
	"github.com/tnetwork96/tinysocial/internal/protocol"
	"github.com/tnetwork96/tinysocial/internal/state"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Options configures a Client. OnUpdate, when set, fires after every
// state change so the UI can redraw; it runs on the receive goroutine
// and must not block.
type Options struct {
	Config   config.Config
	Log      *zap.Logger
	OnUpdate func()
	// Dial overrides the websocket dialer, for tests.
	Dial conn.DialFunc
}

type Client struct {
	cfg config.Config
	log *zap.Logger
	api *backend.Client

	store    *state.Store
	onUpdate func()
	dial     conn.DialFunc

	mu        sync.Mutex
	userID    int
	nickname  string
	sessionID string
	sync      *game.Synchronizer
	mgr       *conn.Manager
	disp      *dispatch.Dispatcher
	runCtx    context.Context
	cancel    context.CancelFunc
}

func New(opts Options) *Client {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:      opts.Config,
		log:      log,
		api:      backend.NewClient(opts.Config.BaseURL()),
		store:    state.NewStore(),
		onUpdate: opts.OnUpdate,
		dial:     opts.Dial,
	}
}

// Login authenticates against the backend and records the local user.
// The socket is not opened until Connect.
func (c *Client) Login(ctx context.Context, username, pin string) (backend.LoginResult, error) {
	res, err := c.api.Login(ctx, username, pin)
	if err != nil {
		return backend.LoginResult{}, err
	}
	if res.OK {
		c.mu.Lock()
		c.userID = res.UserID
		c.nickname = res.Nickname
		c.mu.Unlock()
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, username, pin, nickname string) (backend.Result, error) {
	return c.api.Register(ctx, username, pin, nickname)
}

// Connect opens the persistent socket and starts the reconnect loop.
// Requires a successful Login first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID <= 0 {
		return ErrNotLoggedIn
	}
	if c.mgr != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel

	sync := game.NewSynchronizer(c.api, c.userID, c.log)
	c.sync = sync

	hooks := dispatch.Hooks{
		Notify: c.onUpdate,
		OnConnected: func() {
			// REST refresh off the receive goroutine.
			go c.refresh(runCtx)
		},
		OnGameStarted: func(sessionID int) {
			go sync.RunResync(runCtx, c.cfg.ResyncInterval)
		},
		OnAuth: c.handleAuth,
	}

	// The dispatcher needs the manager for sends and the manager needs
	// the dispatcher as its frame handler; a forwarding handler breaks
	// the cycle.
	fwd := &forwardingHandler{}
	c.mgr = conn.NewManager(conn.Options{
		URL:            c.cfg.WSURL(),
		UserID:         c.userID,
		PingEvery:      c.cfg.PingInterval,
		ReconnectEvery: c.cfg.ReconnectInterval,
		Dial:           c.dial,
		Log:            c.log,
	}, fwd)
	c.disp = dispatch.New(c.mgr, c.store, c.sync, c.userID, hooks, c.log)
	fwd.target = c.disp

	c.mgr.Start(runCtx)
	return nil
}

type forwardingHandler struct {
	target conn.Handler
}

func (f *forwardingHandler) HandleConnected()         { f.target.HandleConnected() }
func (f *forwardingHandler) HandleDisconnected()      { f.target.HandleDisconnected() }
func (f *forwardingHandler) HandleFrame(frame []byte) { f.target.HandleFrame(frame) }

// refresh re-pulls friends and notifications after a (re)connect.
func (c *Client) refresh(ctx context.Context) {
	c.refreshFriends(ctx)

	if notifs, err := c.api.Notifications(ctx, c.UserID()); err != nil {
		c.log.Warn("notification refresh failed", zap.Error(err))
	} else {
		for _, n := range notifs {
			c.store.UpsertNotification(n)
		}
	}
	c.update()
}

// refreshFriends pulls the JSON friend list, falling back to the
// compact-string endpoint the older backend builds expose.
func (c *Client) refreshFriends(ctx context.Context) {
	friends, err := c.api.Friends(ctx, c.UserID())
	if err == nil {
		c.store.SetFriends(friends)
		c.update()
		return
	}
	c.log.Warn("friend refresh failed, trying compact list", zap.Error(err))
	if compact, cerr := c.api.FriendsCompact(ctx, c.UserID()); cerr != nil {
		c.log.Warn("compact friend refresh failed", zap.Error(cerr))
	} else {
		c.store.SetFriendsCompact(compact)
	}
	c.update()
}

func (c *Client) update() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// Close stops the socket loop and waits for it to exit.
func (c *Client) Close() {
	c.mu.Lock()
	cancel, mgr := c.cancel, c.mgr
	c.cancel, c.mgr = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if mgr != nil {
		<-mgr.Done()
	}
}

func (c *Client) UserID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// --- snapshots ---

func (c *Client) NotificationsSnapshot() []state.Notification {
	return c.store.NotificationsSnapshot()
}

func (c *Client) FriendsSnapshot() []state.Friend {
	return c.store.FriendsSnapshot()
}

func (c *Client) ActiveInvites() []state.Invite {
	return c.store.InvitesSnapshot()
}

func (c *Client) GameView() (game.View, bool) {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()
	if sync == nil {
		return game.View{}, false
	}
	return sync.View(), true
}

// --- chat ---

// SendChat writes one chat frame; the returned id keys the eventual
// delivery receipt.
func (c *Client) SendChat(ctx context.Context, toID int, text string) (string, error) {
	disp := c.dispatcher()
	if disp == nil {
		return "", ErrNotLoggedIn
	}
	msgID, err := generateMessageID()
	if err != nil {
		return "", err
	}
	return msgID, disp.SendChat(ctx, toID, text, msgID)
}

func (c *Client) SendTyping(ctx context.Context, toID int, typing bool) error {
	disp := c.dispatcher()
	if disp == nil {
		return ErrNotLoggedIn
	}
	return disp.SendTyping(ctx, toID, typing)
}

// MarkRead clears the unread badge for a conversation and notifies the
// sender.
func (c *Client) MarkRead(ctx context.Context, toID int, msgID string) error {
	disp := c.dispatcher()
	if disp == nil {
		return ErrNotLoggedIn
	}
	return disp.MarkRead(ctx, toID, msgID)
}

// --- socket auth (pattern protocol) ---

// LoginOverSocket authenticates on the socket itself, the path the
// device uses when no REST endpoint is reachable. The result arrives
// asynchronously; SessionID reports it once the backend answers.
func (c *Client) LoginOverSocket(ctx context.Context, username, pin string) error {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return ErrNotLoggedIn
	}
	return mgr.Send(ctx, protocol.EncodeLogin(username, pin))
}

// CheckUsername asks the backend whether username names an active
// account; the answer arrives as a UsernameCheckResult event.
func (c *Client) CheckUsername(ctx context.Context, username string) error {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return ErrNotLoggedIn
	}
	return mgr.Send(ctx, protocol.EncodeUsernameCheck(username))
}

func (c *Client) handleAuth(ev protocol.Event) {
	res, ok := ev.(protocol.AuthResult)
	if !ok {
		return
	}
	if res.OK {
		c.mu.Lock()
		c.sessionID = res.SessionID
		c.mu.Unlock()
	} else {
		c.log.Warn("socket login rejected", zap.String("message", res.Message))
	}
}

// SessionID is the socket session granted by LoginOverSocket, empty
// until one succeeds.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) dispatcher() *dispatch.Dispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disp
}

// --- friend requests ---

func (c *Client) SendFriendRequest(ctx context.Context, toUsername string) (backend.Result, error) {
	return c.api.SendFriendRequest(ctx, c.UserID(), toUsername)
}

// AcceptFriendRequest accepts, drops the local notification and
// re-pulls the friend list so the new friend shows up.
func (c *Client) AcceptFriendRequest(ctx context.Context, notificationID int) (backend.Result, error) {
	res, err := c.api.AcceptFriendRequest(ctx, notificationID, c.UserID())
	if err == nil && res.OK {
		c.store.RemoveNotification(notificationID)
		go c.refreshFriends(ctx)
	}
	return res, err
}

func (c *Client) RejectFriendRequest(ctx context.Context, notificationID int) (backend.Result, error) {
	res, err := c.api.RejectFriendRequest(ctx, notificationID, c.UserID())
	if err == nil && res.OK {
		c.store.RemoveNotification(notificationID)
	}
	return res, err
}

func (c *Client) RemoveFriend(ctx context.Context, friendID int) (backend.Result, error) {
	res, err := c.api.RemoveFriend(ctx, c.UserID(), friendID)
	if err == nil && res.OK {
		go c.refreshFriends(ctx)
	}
	return res, err
}

// --- game ---

// StartGame creates a session and invites a friend. The session does
// not begin until the respond event arrives with an accept.
func (c *Client) StartGame(ctx context.Context, friendID int) (int, error) {
	created, err := c.api.CreateGameSession(ctx, c.UserID(), "caro")
	if err != nil {
		return 0, err
	}
	if !created.OK {
		return 0, errors.Errorf("create session refused: %s", created.Message)
	}
	if res, err := c.api.InviteToSession(ctx, created.SessionID, c.UserID(), friendID); err != nil {
		return 0, err
	} else if !res.OK {
		return 0, errors.Errorf("invite refused: %s", res.Message)
	}
	return created.SessionID, nil
}

// RespondToInvite answers a pending invite. Accepting attaches the
// local session as guest and starts the periodic resync; either way
// the invite leaves the store.
func (c *Client) RespondToInvite(ctx context.Context, sessionID int, accept bool) error {
	res, err := c.api.RespondInvite(ctx, sessionID, c.UserID(), accept)
	if err != nil {
		return err
	}
	if !res.OK {
		return errors.Errorf("respond refused: %s", res.Message)
	}
	c.store.RemoveInvite(sessionID)
	if !accept {
		return nil
	}

	st, err := c.api.GameState(ctx, sessionID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	sync := c.sync
	runCtx := c.runCtx
	c.mu.Unlock()
	if sync == nil {
		return ErrNotLoggedIn
	}
	sync.AttachAsGuest(sessionID, st.HostID)
	// The resync loop outlives this command; tie it to the connection's
	// lifetime, not the caller's request context.
	go sync.RunResync(runCtx, c.cfg.ResyncInterval)
	return nil
}

// SetReady marks the local player ready in the active session.
func (c *Client) SetReady(ctx context.Context) error {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()
	if sync == nil {
		return ErrNotLoggedIn
	}
	v := sync.View()
	if v.SessionID == 0 {
		return game.ErrNoSession
	}
	res, err := c.api.SetReady(ctx, v.SessionID, c.UserID())
	if err != nil {
		return err
	}
	if !res.OK {
		return errors.Errorf("ready refused: %s", res.Message)
	}
	return nil
}

func (c *Client) SetCursor(row, col int) {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()
	if sync != nil {
		sync.SetCursor(row, col)
	}
}

// SubmitMove plays the cell under the cursor.
func (c *Client) SubmitMove(ctx context.Context, row, col int) error {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()
	if sync == nil {
		return ErrNotLoggedIn
	}
	return sync.ApplyLocalMove(ctx, row, col)
}

// LeaveGame abandons the active session on the server and locally.
func (c *Client) LeaveGame(ctx context.Context) error {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()
	if sync == nil {
		return ErrNotLoggedIn
	}
	v := sync.View()
	if v.SessionID == 0 {
		return game.ErrNoSession
	}
	if _, err := c.api.LeaveSession(ctx, v.SessionID, c.UserID()); err != nil {
		return err
	}
	sync.Leave()
	return nil
}

// generateMessageID makes a short random id for delivery tracking.
func generateMessageID() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	id := make([]byte, 12)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		id[i] = charset[n.Int64()]
	}
	return string(id), nil
}
