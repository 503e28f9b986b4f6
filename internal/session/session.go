// Package session serializes access to one loaded board and implements the
// save contract: optimistic saves against the loaded base commit, with
// reload-and-replay when another writer advanced the branch first.
package session

import (
	"context"
	"sync"

	"github.com/ganban/ganban/internal/codec"
	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/gitx"
	"github.com/ganban/ganban/internal/model"
)

// maxReplayAttempts bounds how often Save reloads and replays before
// giving up with the stale-base error.
const maxReplayAttempts = 3

// entry is one journaled operation. Operations are pure functions of
// (board, args), so replaying them onto a freshly loaded board yields the
// same semantic change.
type entry struct {
	note  string
	apply func(*model.Board) (model.Effects, error)
}

// Session owns one board. All methods serialize behind its mutex, which
// also keeps tree watcher dispatch single-threaded.
type Session struct {
	mu     sync.Mutex
	g      *gitx.Git
	branch string

	board        *model.Board
	journal      []entry
	pending      []model.Warning
	savedVersion uint64
}

// New creates a session for the board on branch. Nothing is read until
// Load.
func New(g *gitx.Git, branch string) *Session {
	return &Session{g: g, branch: branch}
}

// Load reads the branch tip into memory, replacing any previous state and
// clearing the journal.
func (s *Session) Load(ctx context.Context) (*model.Board, []model.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, warnings, err := model.Load(ctx, s.g, s.branch)
	if err != nil {
		return nil, nil, err
	}
	s.board = board
	s.journal = nil
	s.pending = nil
	s.savedVersion = board.Version()
	return board, warnings, nil
}

// Board returns the loaded board, or nil before Load.
func (s *Session) Board() *model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Dirty reports whether unsaved mutations exist.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	return s.board != nil && s.board.Version() != s.savedVersion
}

// Save commits the board. When the branch moved since load, the journal is
// replayed onto a fresh load and the save retried; warnings picked up
// during those reloads are returned alongside the commit.
func (s *Session) Save(ctx context.Context, message string) (string, []model.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, message)
}

// Flush saves only if there are unsaved mutations. Used as the sync
// engine's commit-before-pull hook.
func (s *Session) Flush(ctx context.Context, message string) (string, []model.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirtyLocked() {
		if s.board == nil {
			return "", nil, nil
		}
		return s.board.BaseCommit, s.drainWarnings(), nil
	}
	return s.saveLocked(ctx, message)
}

func (s *Session) saveLocked(ctx context.Context, message string) (string, []model.Warning, error) {
	if s.board == nil {
		return "", nil, errors.New(errors.EInternal, "save before load")
	}

	for attempt := 0; ; attempt++ {
		commit, err := model.Save(ctx, s.g, s.board, message)
		if err == nil {
			s.journal = nil
			s.savedVersion = s.board.Version()
			return commit, s.drainWarnings(), nil
		}
		if !errors.HasCode(err, errors.EStaleBase) || attempt+1 >= maxReplayAttempts {
			return "", s.drainWarnings(), err
		}
		if rerr := s.replayLocked(ctx); rerr != nil {
			return "", s.drainWarnings(), rerr
		}
	}
}

// replayLocked reloads the branch tip and reapplies the journal.
func (s *Session) replayLocked(ctx context.Context) error {
	board, warnings, err := model.Load(ctx, s.g, s.branch)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, warnings...)

	for _, e := range s.journal {
		if _, err := e.apply(board); err != nil {
			return errors.WrapWithDetails(
				errors.EStaleBase,
				"cannot replay "+e.note+" onto the moved branch",
				err,
				map[string]string{"operation": e.note},
			)
		}
	}
	s.board = board
	s.savedVersion = 0 // replayed mutations are unsaved by definition
	return nil
}

func (s *Session) drainWarnings() []model.Warning {
	w := s.pending
	s.pending = nil
	return w
}

// run applies one operation to the live board and journals it for replay.
func (s *Session) run(note string, apply func(*model.Board) (model.Effects, error)) (model.Effects, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return model.Effects{}, errors.New(errors.EInternal, "mutate before load")
	}
	eff, err := apply(s.board)
	if err != nil {
		return model.Effects{}, err
	}
	s.journal = append(s.journal, entry{note: note, apply: apply})
	return eff, nil
}

// CreateCard adds a card to the named column and returns its id. On replay
// the id may differ; callers must treat it as advisory until saved.
func (s *Session) CreateCard(columnOrder, title, body string) (string, error) {
	var id string
	_, err := s.run("create card", func(b *model.Board) (model.Effects, error) {
		created, err := model.CreateCard(b, columnOrder, title, body)
		id = created
		return model.Effects{}, err
	})
	return id, err
}

// MoveCard moves a card's link from srcOrder (empty: its only column) to
// destOrder.
func (s *Session) MoveCard(cardID, srcOrder, destOrder string, index int) (model.Effects, error) {
	return s.run("move card "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.MoveCard(b, cardID, srcOrder, destOrder, index)
	})
}

// ReorderCard repositions a card within the column with columnOrder
// (empty: its only column).
func (s *Session) ReorderCard(columnOrder, cardID string, index int) (model.Effects, error) {
	return s.run("reorder card "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.ReorderCard(b, columnOrder, cardID, index)
	})
}

// ArchiveCard removes a card's link, leaving the document in the store.
func (s *Session) ArchiveCard(cardID string) error {
	_, err := s.run("archive card "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.ArchiveCard(b, cardID)
	})
	return err
}

// CreateColumn appends a column and returns its order id.
func (s *Session) CreateColumn(title string) (string, error) {
	var order string
	_, err := s.run("create column", func(b *model.Board) (model.Effects, error) {
		col, err := model.CreateColumn(b, title)
		if err == nil {
			order = col.Order
		}
		return model.Effects{}, err
	})
	return order, err
}

// RenameColumn retitles a column.
func (s *Session) RenameColumn(order, title string) error {
	_, err := s.run("rename column "+order, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.RenameColumn(b, order, title)
	})
	return err
}

// MoveColumn repositions a column, renumbering the visible sequence.
func (s *Session) MoveColumn(order string, index int) (model.Effects, error) {
	return s.run("move column "+order, func(b *model.Board) (model.Effects, error) {
		return model.MoveColumn(b, order, index)
	})
}

// ArchiveColumn hides a column without touching its cards.
func (s *Session) ArchiveColumn(order string) error {
	_, err := s.run("archive column "+order, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.ArchiveColumn(b, order)
	})
	return err
}

// AddComment appends an attributed comment to a card.
func (s *Session) AddComment(cardID string, c codec.Comment) error {
	_, err := s.run("comment on card "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.AddComment(b, cardID, c)
	})
	return err
}

// LinkCards records a typed relation between two cards.
func (s *Session) LinkCards(fromID, kind, toID string) error {
	_, err := s.run("link cards", func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.LinkCards(b, fromID, kind, toID)
	})
	return err
}

// SetCardMeta sets or, with a nil value, deletes one front-matter key.
func (s *Session) SetCardMeta(cardID, key string, value any) error {
	_, err := s.run("set card meta "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.SetCardMeta(b, cardID, key, value)
	})
	return err
}

// SetCardBody replaces a card's first section body.
func (s *Session) SetCardBody(cardID, body string) error {
	_, err := s.run("set card body "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.SetCardBody(b, cardID, body)
	})
	return err
}

// RenameCard retitles a card.
func (s *Session) RenameCard(cardID, title string) error {
	_, err := s.run("rename card "+cardID, func(b *model.Board) (model.Effects, error) {
		return model.Effects{}, model.RenameCard(b, cardID, title)
	})
	return err
}
