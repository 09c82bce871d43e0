package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no active session")
var ErrNotPlaying = errors.New("session is not in play")
var ErrNotYourTurn = errors.New("not your turn")
var ErrCursorElsewhere = errors.New("cursor is not on the target cell")
var ErrCellOccupied = errors.New("cell already occupied")

const (
	BoardRows = 15
	BoardCols = 20
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
)

// Cell ownership on the board. Empty cells hold -1.
const EmptyCell = -1

// MoveResult is the backend's verdict on a submitted move.
type MoveResult struct {
	Accepted    bool
	Message     string
	GameStatus  string
	WinnerID    int
	CurrentTurn int
}

// StateResult is the backend's authoritative view of a session.
type StateResult struct {
	OK          bool
	GameStatus  string
	WinnerID    int
	CurrentTurn int
	MoveCount   int
	HostID      int
	GuestID     int
}

// Backend is the slice of the REST surface the synchronizer needs.
// Declared here so the synchronizer does not depend on the full API
// client.
type Backend interface {
	SubmitMove(ctx context.Context, sessionID, userID, row, col int) (MoveResult, error)
	GameState(ctx context.Context, sessionID int) (StateResult, error)
}

// View is a point-in-time copy of the session for rendering.
type View struct {
	SessionID   int
	Status      Status
	Board       [BoardRows][BoardCols]int
	CurrentTurn int
	WinnerID    int
	HostID      int
	GuestID     int
	CursorRow   int
	CursorCol   int
	MyTurn      bool
}

// Synchronizer keeps the local board converged with the server's view
// of a caro session. Local moves apply optimistically and the server's
// confirmation is authoritative; pushes for the opponent's moves and a
// periodic full resync cover whatever the socket drops.
type Synchronizer struct {
	backend Backend
	log     *zap.Logger

	mu          sync.Mutex
	localUserID int
	sessionID   int
	status      Status
	board       [BoardRows][BoardCols]int
	currentTurn int
	winnerID    int
	hostID      int
	guestID     int
	cursorRow   int
	cursorCol   int
}

func NewSynchronizer(backend Backend, localUserID int, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{
		backend:     backend,
		log:         log,
		localUserID: localUserID,
		status:      StatusIdle,
		winnerID:    -1,
	}
	s.clearBoardLocked()
	return s
}

func (s *Synchronizer) clearBoardLocked() {
	for r := range s.board {
		for c := range s.board[r] {
			s.board[r][c] = EmptyCell
		}
	}
}

// StartAsHost begins a session the local user created. The host always
// moves first.
func (s *Synchronizer) StartAsHost(sessionID, guestID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(sessionID, s.localUserID, guestID)
}

// AttachAsGuest joins a session the local user was invited to. Turn
// still opens with the host.
func (s *Synchronizer) AttachAsGuest(sessionID, hostID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(sessionID, hostID, s.localUserID)
}

func (s *Synchronizer) resetLocked(sessionID, hostID, guestID int) {
	s.sessionID = sessionID
	s.hostID = hostID
	s.guestID = guestID
	s.status = StatusPlaying
	s.currentTurn = hostID
	s.winnerID = -1
	s.cursorRow = 0
	s.cursorCol = 0
	s.clearBoardLocked()
}

// SetCursor moves the local selection cursor. Out-of-range targets are
// clamped to the board.
func (s *Synchronizer) SetCursor(row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorRow = clamp(row, 0, BoardRows-1)
	s.cursorCol = clamp(col, 0, BoardCols-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplyLocalMove places the local user's mark at (row, col) and submits
// it. The placement is optimistic: the cell is marked before the
// request goes out, and the server's confirmation then overrides
// whatever was placed. A rejected move reverts the cell and triggers a
// full resync.
func (s *Synchronizer) ApplyLocalMove(ctx context.Context, row, col int) error {
	s.mu.Lock()
	if s.sessionID == 0 {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.status != StatusPlaying {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	if s.currentTurn != s.localUserID {
		s.mu.Unlock()
		return ErrNotYourTurn
	}
	if s.cursorRow != row || s.cursorCol != col {
		s.mu.Unlock()
		return ErrCursorElsewhere
	}
	if s.board[row][col] != EmptyCell {
		s.mu.Unlock()
		return ErrCellOccupied
	}
	s.board[row][col] = s.localUserID
	sessionID := s.sessionID
	userID := s.localUserID
	s.mu.Unlock()

	res, err := s.backend.SubmitMove(ctx, sessionID, userID, row, col)
	if err != nil {
		s.revertAndResync(ctx, row, col)
		return err
	}
	if !res.Accepted {
		s.log.Warn("move rejected by server",
			zap.Int("row", row), zap.Int("col", col), zap.String("reason", res.Message))
		s.revertAndResync(ctx, row, col)
		return nil
	}
	s.OnServerMoveConfirmed(res)
	return nil
}

func (s *Synchronizer) revertAndResync(ctx context.Context, row, col int) {
	s.mu.Lock()
	if s.board[row][col] == s.localUserID {
		s.board[row][col] = EmptyCell
	}
	s.mu.Unlock()
	if err := s.Resync(ctx); err != nil {
		s.log.Warn("resync after rejected move failed", zap.Error(err))
	}
}

// OnServerMoveConfirmed adopts the server's verdict on the local move
// just submitted: status and winner come straight from the response,
// and the turn passes to the opponent unless the response names the
// next player explicitly.
func (s *Synchronizer) OnServerMoveConfirmed(res MoveResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptStatusLocked(res.GameStatus, res.WinnerID)
	if res.CurrentTurn > 0 {
		s.currentTurn = res.CurrentTurn
	} else {
		s.currentTurn = s.opponentLocked()
	}
}

// OnRemoteMove applies an opponent move pushed over the socket. When
// the push omits the next turn the turn simply flips back to the local
// user.
func (s *Synchronizer) OnRemoteMove(sessionID, userID, row, col int, gameStatus string, winnerID, currentTurn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == 0 || sessionID != s.sessionID {
		return
	}
	if row >= 0 && row < BoardRows && col >= 0 && col < BoardCols {
		s.board[row][col] = userID
	}
	s.adoptStatusLocked(gameStatus, winnerID)
	if currentTurn > 0 {
		s.currentTurn = currentTurn
	} else {
		s.currentTurn = s.localUserID
	}
}

func (s *Synchronizer) adoptStatusLocked(gameStatus string, winnerID int) {
	switch gameStatus {
	case "playing", "in_progress":
		s.status = StatusPlaying
	case "completed":
		// The state endpoint reports completion without a winner; keep
		// the winner a move confirmation or push already delivered.
		s.status = StatusCompleted
	case "draw":
		s.status = StatusCompleted
		s.winnerID = -1
	}
	if winnerID > 0 {
		s.winnerID = winnerID
	}
}

func (s *Synchronizer) opponentLocked() int {
	if s.localUserID == s.hostID {
		return s.guestID
	}
	return s.hostID
}

// Resync pulls the authoritative session state and overwrites the
// local turn, status and player assignments. A failed pull leaves the
// local state untouched; the next cycle tries again.
func (s *Synchronizer) Resync(ctx context.Context) error {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()
	if sessionID == 0 {
		return ErrNoSession
	}

	res, err := s.backend.GameState(ctx, sessionID)
	if err != nil {
		return err
	}
	if !res.OK {
		return errors.New("state fetch refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != sessionID {
		return nil
	}
	s.adoptStatusLocked(res.GameStatus, res.WinnerID)
	if res.CurrentTurn > 0 {
		s.currentTurn = res.CurrentTurn
	}
	if res.HostID > 0 {
		s.hostID = res.HostID
	}
	if res.GuestID > 0 {
		s.guestID = res.GuestID
	}
	return nil
}

// RunResync polls the server on a fixed interval for as long as the
// session is in play, backstopping any push the socket dropped. Returns
// when ctx is cancelled or the session ends.
func (s *Synchronizer) RunResync(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			playing := s.status == StatusPlaying && s.sessionID != 0
			s.mu.Unlock()
			if !playing {
				return
			}
			if err := s.Resync(ctx); err != nil {
				s.log.Debug("periodic resync failed", zap.Error(err))
			}
		}
	}
}

// Leave abandons the session locally. Telling the server is the
// caller's job.
func (s *Synchronizer) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = 0
	s.status = StatusIdle
	s.winnerID = -1
	s.clearBoardLocked()
}

// View snapshots the session.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID:   s.sessionID,
		Status:      s.status,
		Board:       s.board,
		CurrentTurn: s.currentTurn,
		WinnerID:    s.winnerID,
		HostID:      s.hostID,
		GuestID:     s.guestID,
		CursorRow:   s.cursorRow,
		CursorCol:   s.cursorCol,
		MyTurn:      s.status == StatusPlaying && s.currentTurn == s.localUserID,
	}
}
