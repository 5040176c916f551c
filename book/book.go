/*
Package book holds the fund collection for a running application.

LIFECYCLE:
  1. Open() reads the whole collection from storage once
  2. Every mutation runs an engine function against one fund snapshot
  3. The whole collection is written back before the change becomes visible

  If the write fails the in-memory collection keeps its previous state and
  the storage error is returned, so callers never observe a change that was
  not persisted.

CONCURRENCY:
  A single mutex serializes mutations. Reads return deep copies.

AUTHORIZATION:
  Destructive operations (delete, restore) ask an Authorizer first. The
  credential is whatever the caller supplied; interpretation is up to the
  Authorizer.
*/
package book

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/logging"
)

// =============================================================================
// AUTHORIZATION
// =============================================================================

type Action string

const (
	ActionDeleteFund Action = "delete_fund"
	ActionRestore    Action = "restore"
)

// Authorizer gates destructive operations. It returns an error wrapping
// chit.ErrUnauthorized when the credential is rejected.
type Authorizer interface {
	Authorize(ctx context.Context, action Action, credential string) error
}

// AllowAll authorizes everything.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, Action, string) error { return nil }

// =============================================================================
// BOOK
// =============================================================================

type Book struct {
	mu      sync.Mutex
	funds   []chit.Fund
	storage chit.Storage
	auth    Authorizer
	log     *logging.Logger
}

// Open loads the collection. Stored funds that fail validation abort the open.
func Open(ctx context.Context, storage chit.Storage, auth Authorizer, logger *logging.Logger) (*Book, error) {
	if auth == nil {
		auth = AllowAll{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	funds, err := storage.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}
	if err := validateAll(funds); err != nil {
		return nil, fmt.Errorf("stored funds: %w", err)
	}

	b := &Book{
		funds:   funds,
		storage: storage,
		auth:    auth,
		log:     logger.WithComponent(logging.ComponentBook),
	}
	b.log.InfoContext(ctx, "funds loaded", logging.FieldOperation, logging.OpLoad, logging.FieldCount, len(funds))
	return b, nil
}

// List returns every fund in insertion order.
func (b *Book) List() []chit.Fund {
	b.mu.Lock()
	defer b.mu.Unlock()
	return chit.CloneAll(b.funds)
}

// Snapshot is List under the name used for backups.
func (b *Book) Snapshot() []chit.Fund {
	return b.List()
}

func (b *Book) Get(id chit.FundID) (chit.Fund, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(id)
	if i < 0 {
		return chit.Fund{}, &chit.NotFoundError{Kind: "fund", Key: string(id)}
	}
	return b.funds[i].Clone(), nil
}

// Create adds a validated fund.
func (b *Book) Create(ctx context.Context, f chit.Fund) (chit.Fund, error) {
	if err := chit.Validate(f); err != nil {
		return chit.Fund{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexLocked(f.ID) >= 0 {
		return chit.Fund{}, fmt.Errorf("%w: %s", chit.ErrFundExists, f.ID)
	}

	next := append(chit.CloneAll(b.funds), f.Clone())
	if err := b.commitLocked(ctx, next); err != nil {
		return chit.Fund{}, err
	}
	b.log.InfoContext(ctx, "fund created", logging.FieldOperation, logging.OpCreate, logging.FieldFundID, string(f.ID))
	return f.Clone(), nil
}

// Update applies fn to one fund and persists the result. fn receives a copy;
// if it returns an error nothing changes.
func (b *Book) Update(ctx context.Context, id chit.FundID, fn func(chit.Fund) (chit.Fund, error)) (chit.Fund, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return chit.Fund{}, &chit.NotFoundError{Kind: "fund", Key: string(id)}
	}
	updated, err := fn(b.funds[i].Clone())
	if err != nil {
		return chit.Fund{}, err
	}
	if updated.ID != id {
		return chit.Fund{}, fmt.Errorf("update changed fund id from %s to %s", id, updated.ID)
	}

	next := chit.CloneAll(b.funds)
	next[i] = updated.Clone()
	if err := b.commitLocked(ctx, next); err != nil {
		return chit.Fund{}, err
	}
	b.log.InfoContext(ctx, "fund updated", logging.FieldOperation, logging.OpUpdate, logging.FieldFundID, string(id))
	return updated, nil
}

// Delete removes a fund after authorization.
func (b *Book) Delete(ctx context.Context, id chit.FundID, credential string) error {
	if err := b.authorize(ctx, ActionDeleteFund, credential); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(id)
	if i < 0 {
		return &chit.NotFoundError{Kind: "fund", Key: string(id)}
	}
	next := slices.Delete(chit.CloneAll(b.funds), i, i+1)
	if err := b.commitLocked(ctx, next); err != nil {
		return err
	}
	b.log.InfoContext(ctx, "fund deleted", logging.FieldOperation, logging.OpDelete, logging.FieldFundID, string(id))
	return nil
}

// Restore replaces the whole collection after authorization. Demo scenario
// loading goes through here too.
func (b *Book) Restore(ctx context.Context, funds []chit.Fund, credential string) error {
	if err := b.authorize(ctx, ActionRestore, credential); err != nil {
		return err
	}
	if err := validateAll(funds); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.commitLocked(ctx, chit.CloneAll(funds)); err != nil {
		return err
	}
	b.log.InfoContext(ctx, "funds restored", logging.FieldOperation, logging.OpRestore, logging.FieldCount, len(funds))
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (b *Book) authorize(ctx context.Context, action Action, credential string) error {
	if err := b.auth.Authorize(ctx, action, credential); err != nil {
		b.log.WarnContext(ctx, "authorization rejected", logging.FieldOperation, string(action))
		if errors.Is(err, chit.ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", chit.ErrUnauthorized, err)
	}
	return nil
}

// commitLocked saves next and only then makes it the current collection.
func (b *Book) commitLocked(ctx context.Context, next []chit.Fund) error {
	if err := b.storage.SaveAll(ctx, next); err != nil {
		b.log.ErrorContext(ctx, "save failed", logging.FieldError, err.Error())
		return fmt.Errorf("save funds: %w", err)
	}
	b.funds = next
	return nil
}

func (b *Book) indexLocked(id chit.FundID) int {
	return slices.IndexFunc(b.funds, func(f chit.Fund) bool { return f.ID == id })
}

func validateAll(funds []chit.Fund) error {
	seen := make(map[chit.FundID]bool, len(funds))
	for _, f := range funds {
		if seen[f.ID] {
			return fmt.Errorf("%w: %s", chit.ErrFundExists, f.ID)
		}
		seen[f.ID] = true
		if err := chit.Validate(f); err != nil {
			return fmt.Errorf("fund %s: %w", f.ID, err)
		}
	}
	return nil
}
