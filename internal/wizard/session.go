package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
)

var (
	// ErrStaleLoad is returned by SelectProduct when another selection started
	// while this one was loading. The displayed state is left alone.
	ErrStaleLoad = errors.New("wizard: draft load superseded by a newer selection")

	ErrNoProduct = errors.New("wizard: no product selected")
)

// DraftStore is where a Session loads and saves drafts. Client is the HTTP
// implementation; LoadDraft returns draft.ErrNotFound when nothing is saved.
type DraftStore interface {
	LoadDraft(ctx context.Context, productID, variantID string) (*draft.Draft, error)
	SaveDraft(ctx context.Context, productID, variantID string, d draft.Draft) error
	DeleteDraft(ctx context.Context, productID, variantID string) error
}

// Session holds the wizard for the product currently on screen. It is safe for
// concurrent use; the usual caller fires SelectProduct from UI events without
// waiting for the previous one.
type Session struct {
	store DraftStore

	mu        sync.Mutex
	seq       uint64 // token of the latest selection
	cancel    context.CancelFunc
	productID string
	state     State
	selected  bool
}

func NewSession(store DraftStore) *Session {
	return &Session{store: store}
}

// SelectProduct switches to a product and loads its draft. Each call takes a
// new token and cancels the load still in flight; whichever load finishes
// after a newer call started returns ErrStaleLoad. A product without a saved
// draft starts from NewState.
func (s *Session) SelectProduct(ctx context.Context, productID, variantID string) (State, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	st, err := s.load(loadCtx, productID, variantID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		return State{}, ErrStaleLoad
	}
	s.cancel = nil
	if err != nil {
		return State{}, err
	}
	s.productID = productID
	s.state = st
	s.selected = true
	return st, nil
}

func (s *Session) load(ctx context.Context, productID, variantID string) (State, error) {
	d, err := s.store.LoadDraft(ctx, productID, variantID)
	if errors.Is(err, draft.ErrNotFound) {
		return NewState(variantID), nil
	}
	if err != nil {
		return State{}, err
	}
	st, err := Restore(*d)
	if err != nil {
		return State{}, err
	}
	st.VariantID = variantID
	return st, nil
}

// Current returns the displayed product and state.
func (s *Session) Current() (string, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productID, s.state, s.selected
}

// Update replaces the displayed state with fn's result.
func (s *Session) Update(fn func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return State{}, ErrNoProduct
	}
	s.state = fn(s.state)
	return s.state, nil
}

// Save stores a snapshot of the displayed state.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.selected {
		s.mu.Unlock()
		return ErrNoProduct
	}
	productID, st := s.productID, s.state
	s.mu.Unlock()

	d, err := st.Snapshot()
	if err != nil {
		return err
	}
	return s.store.SaveDraft(ctx, productID, st.VariantID, d)
}

// StartOver deletes the saved draft and resets the displayed state.
func (s *Session) StartOver(ctx context.Context) error {
	s.mu.Lock()
	if !s.selected {
		s.mu.Unlock()
		return ErrNoProduct
	}
	productID, variantID, token := s.productID, s.state.VariantID, s.seq
	s.mu.Unlock()

	if err := s.store.DeleteDraft(ctx, productID, variantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.seq {
		s.state = NewState(variantID)
	}
	return nil
}
