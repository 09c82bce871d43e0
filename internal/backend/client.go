package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tnetwork96/tinysocial/internal/game"
	"github.com/tnetwork96/tinysocial/internal/protocol"
	"github.com/tnetwork96/tinysocial/internal/state"
)

// Client talks to the social backend's REST surface. Every endpoint
// answers with a top-level success flag plus type-specific fields;
// success:false is an ordinary result carrying the server's message,
// not an error. Errors are reserved for transport and decode failures.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Result is the common success/message pair most endpoints reduce to.
type Result struct {
	OK      bool
	Message string
}

type LoginResult struct {
	OK            bool
	AccountExists bool
	Message       string
	UserID        int
	Username      string
	Nickname      string
}

type CreateSessionResult struct {
	OK        bool
	Message   string
	SessionID int
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (protocol.Fields, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s request", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *Client) getJSON(ctx context.Context, path string) (protocol.Fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request", path)
	}
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (protocol.Fields, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", path)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}
	f, ok := protocol.ParseJSON(raw)
	if !ok {
		return nil, errors.Errorf("decode %s response: not a JSON object", path)
	}
	return f, nil
}

func (c *Client) Login(ctx context.Context, username, pin string) (LoginResult, error) {
	f, err := c.postJSON(ctx, "/api/login", map[string]string{"username": username, "pin": pin})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		OK:            f.Bool("success"),
		AccountExists: f.Bool("account_exists"),
		Message:       f.StrOr("message", ""),
		UserID:        f.IntOr("user_id", -1),
		Username:      f.StrOr("username", username),
		Nickname:      f.StrOr("nickname", ""),
	}, nil
}

func (c *Client) Register(ctx context.Context, username, pin, nickname string) (Result, error) {
	f, err := c.postJSON(ctx, "/api/register", map[string]string{
		"username": username, "pin": pin, "nickname": nickname,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func resultOf(f protocol.Fields) Result {
	return Result{OK: f.Bool("success"), Message: f.StrOr("message", "")}
}

// Friends fetches the full friend list. Friend records arrive with the
// server's unread counters zeroed; the store overlays its own.
func (c *Client) Friends(ctx context.Context, userID int) ([]state.Friend, error) {
	f, err := c.getJSON(ctx, fmt.Sprintf("/api/friends/%d", userID))
	if err != nil {
		return nil, err
	}
	if !f.Bool("success") {
		return nil, nil
	}
	var out []state.Friend
	for _, item := range f.List("friends") {
		out = append(out, state.Friend{
			ID:     item.IntOr("user_id", -1),
			Name:   item.StrOr("nickname", ""),
			Online: item.Bool("online"),
		})
	}
	return out, nil
}

// FriendsCompact fetches the alternate compact encoding,
// "name,id,flag" tuples joined by '|', ready for
// Store.SetFriendsCompact.
func (c *Client) FriendsCompact(ctx context.Context, userID int) (string, error) {
	path := fmt.Sprintf("/api/friends/%d/list", userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", errors.Wrapf(err, "build %s request", path)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "call %s", path)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrapf(err, "read %s response", path)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (c *Client) Notifications(ctx context.Context, userID int) ([]state.Notification, error) {
	f, err := c.getJSON(ctx, fmt.Sprintf("/api/notifications/%d", userID))
	if err != nil {
		return nil, err
	}
	if !f.Bool("success") {
		return nil, nil
	}
	var out []state.Notification
	for _, item := range f.List("notifications") {
		out = append(out, state.Notification{
			ID:        item.IntOr("id", -1),
			Kind:      item.StrOr("type", ""),
			Message:   item.StrOr("message", ""),
			Timestamp: item.StrOr("timestamp", ""),
			Read:      item.Bool("read"),
		})
	}
	return out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, fromID int, toUsername string) (Result, error) {
	f, err := c.postJSON(ctx, "/api/friend-requests/send", map[string]any{
		"from_user_id": fromID, "to_username": toUsername,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func (c *Client) AcceptFriendRequest(ctx context.Context, notificationID, userID int) (Result, error) {
	return c.friendRequestAction(ctx, "accept", notificationID, userID)
}

func (c *Client) RejectFriendRequest(ctx context.Context, notificationID, userID int) (Result, error) {
	return c.friendRequestAction(ctx, "reject", notificationID, userID)
}

func (c *Client) CancelFriendRequest(ctx context.Context, notificationID, userID int) (Result, error) {
	return c.friendRequestAction(ctx, "cancel", notificationID, userID)
}

func (c *Client) friendRequestAction(ctx context.Context, action string, notificationID, userID int) (Result, error) {
	f, err := c.postJSON(ctx, "/api/friend-requests/"+action, map[string]any{
		"notification_id": notificationID, "user_id": userID,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func (c *Client) RemoveFriend(ctx context.Context, userID, friendID int) (Result, error) {
	path := fmt.Sprintf("/api/friends/%d/%d", userID, friendID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return Result{}, errors.Wrapf(err, "build %s request", path)
	}
	f, err := c.do(req, path)
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func (c *Client) CreateGameSession(ctx context.Context, hostID int, gameType string) (CreateSessionResult, error) {
	f, err := c.postJSON(ctx, "/api/games/create", map[string]any{
		"host_user_id": hostID, "game_type": gameType,
	})
	if err != nil {
		return CreateSessionResult{}, err
	}
	return CreateSessionResult{
		OK:        f.Bool("success"),
		Message:   f.StrOr("message", ""),
		SessionID: f.IntOr("session_id", -1),
	}, nil
}

func (c *Client) InviteToSession(ctx context.Context, sessionID, hostID, friendID int) (Result, error) {
	f, err := c.postJSON(ctx, fmt.Sprintf("/api/games/%d/invite", sessionID), map[string]any{
		"host_user_id": hostID, "participant_ids": []int{friendID},
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

// RespondInvite answers an invite. The accept flag must always be on
// the wire: the backend defaults a missing field to accept.
func (c *Client) RespondInvite(ctx context.Context, sessionID, userID int, accept bool) (Result, error) {
	f, err := c.postJSON(ctx, fmt.Sprintf("/api/games/%d/respond", sessionID), map[string]any{
		"user_id": userID, "accept": accept,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func (c *Client) SetReady(ctx context.Context, sessionID, userID int) (Result, error) {
	f, err := c.postJSON(ctx, fmt.Sprintf("/api/games/%d/ready", sessionID), map[string]any{
		"user_id": userID,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

func (c *Client) LeaveSession(ctx context.Context, sessionID, userID int) (Result, error) {
	f, err := c.postJSON(ctx, fmt.Sprintf("/api/games/%d/leave", sessionID), map[string]any{
		"user_id": userID,
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(f), nil
}

// SubmitMove posts a move and returns the server's verdict in the
// shape the game synchronizer consumes.
func (c *Client) SubmitMove(ctx context.Context, sessionID, userID, row, col int) (game.MoveResult, error) {
	f, err := c.postJSON(ctx, fmt.Sprintf("/api/games/%d/move", sessionID), map[string]any{
		"user_id": userID, "row": row, "col": col,
	})
	if err != nil {
		return game.MoveResult{}, err
	}
	return game.MoveResult{
		Accepted:    f.Bool("success"),
		Message:     f.StrOr("message", ""),
		GameStatus:  f.StrOr("game_status", ""),
		WinnerID:    f.IntOr("winner_id", -1),
		CurrentTurn: f.IntOr("current_turn", -1),
	}, nil
}

// GameState fetches the authoritative session state. The reply keys
// the status as "status" and carries no winner; the winner only ever
// arrives on move confirmations and pushes, so -1 here means "keep
// what you have".
func (c *Client) GameState(ctx context.Context, sessionID int) (game.StateResult, error) {
	f, err := c.getJSON(ctx, fmt.Sprintf("/api/games/%d/state", sessionID))
	if err != nil {
		return game.StateResult{}, err
	}
	players := f.Child("players")
	return game.StateResult{
		OK:          f.Bool("success"),
		GameStatus:  f.StrOr("status", f.Str("game_status")),
		WinnerID:    f.IntOr("winner_id", -1),
		CurrentTurn: f.IntOr("current_turn", -1),
		MoveCount:   f.IntOr("move_count", 0),
		HostID:      players.Child("host").IntOr("user_id", -1),
		GuestID:     players.Child("guest").IntOr("user_id", -1),
	}, nil
}
