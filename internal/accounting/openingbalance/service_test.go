package openingbalance_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts/accountstest"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals/journaltest"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/openingbalance"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

type memState struct {
	nextBatch int64
	nextLine  int64
	batches   map[int64]openingbalance.Batch
	lines     map[int64][]openingbalance.Line
}

func (s memState) clone() memState {
	out := memState{nextBatch: s.nextBatch, nextLine: s.nextLine, batches: map[int64]openingbalance.Batch{}, lines: map[int64][]openingbalance.Line{}}
	for id, b := range s.batches {
		out.batches[id] = b
	}
	for id, l := range s.lines {
		out.lines[id] = append([]openingbalance.Line(nil), l...)
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	state memState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memState{batches: map[int64]openingbalance.Batch{}, lines: map[int64][]openingbalance.Line{}}}
}

func (r *memoryRepo) GetBatch(_ context.Context, id int64) (openingbalance.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.state.batches[id]
	if !ok {
		return openingbalance.Batch{}, shared.ErrBatchNotFound
	}
	b.Lines = append([]openingbalance.Line(nil), r.state.lines[id]...)
	return b, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, openingbalance.TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

type memoryTx struct {
	state memState
}

func (t *memoryTx) CreateBatch(_ context.Context, asOf time.Time, memo string) (openingbalance.Batch, error) {
	t.state.nextBatch++
	b := openingbalance.Batch{ID: t.state.nextBatch, AsOfDate: asOf, Memo: memo, Status: openingbalance.StatusDraft}
	t.state.batches[b.ID] = b
	return b, nil
}

func (t *memoryTx) GetBatchForUpdate(_ context.Context, id int64) (openingbalance.Batch, error) {
	b, ok := t.state.batches[id]
	if !ok {
		return openingbalance.Batch{}, shared.ErrBatchNotFound
	}
	return b, nil
}

func (t *memoryTx) ListLines(_ context.Context, batchID int64) ([]openingbalance.Line, error) {
	return append([]openingbalance.Line(nil), t.state.lines[batchID]...), nil
}

func (t *memoryTx) InsertLine(_ context.Context, batchID int64, in openingbalance.LineInput) (openingbalance.Line, error) {
	t.state.nextLine++
	l := openingbalance.Line{ID: t.state.nextLine, BatchID: batchID, AccountID: in.AccountID, Debit: in.Debit, Credit: in.Credit, Memo: in.Memo}
	t.state.lines[batchID] = append(t.state.lines[batchID], l)
	return l, nil
}

func (t *memoryTx) UpdateLine(_ context.Context, batchID, lineID int64, in openingbalance.LineInput) (openingbalance.Line, error) {
	for idx, l := range t.state.lines[batchID] {
		if l.ID == lineID {
			l.AccountID, l.Debit, l.Credit, l.Memo = in.AccountID, in.Debit, in.Credit, in.Memo
			t.state.lines[batchID][idx] = l
			return l, nil
		}
	}
	return openingbalance.Line{}, shared.ErrBatchLineNotFound
}

func (t *memoryTx) DeleteLine(_ context.Context, batchID, lineID int64) error {
	lines := t.state.lines[batchID]
	for idx, l := range lines {
		if l.ID == lineID {
			t.state.lines[batchID] = append(lines[:idx:idx], lines[idx+1:]...)
			return nil
		}
	}
	return shared.ErrBatchLineNotFound
}

func (t *memoryTx) SetStatus(_ context.Context, id int64, status openingbalance.BatchStatus, finalizedAt *time.Time) error {
	b := t.state.batches[id]
	b.Status = status
	b.FinalizedAt = finalizedAt
	t.state.batches[id] = b
	return nil
}

func (t *memoryTx) SetJournalEntry(_ context.Context, id int64, entryID int64) error {
	b := t.state.batches[id]
	b.JournalEntryID = &entryID
	t.state.batches[id] = b
	return nil
}

// batchDocs serves opening balance batches to the posting engine from the
// memory repository. Other document kinds are not used here.
type batchDocs struct {
	posting.Documents
	repo *memoryRepo
	fail error
}

func (d *batchDocs) OpeningBalanceBatch(ctx context.Context, id int64) (posting.OpeningBalanceBatch, error) {
	if d.fail != nil {
		return posting.OpeningBalanceBatch{}, d.fail
	}
	b, err := d.repo.GetBatch(ctx, id)
	if err != nil {
		return posting.OpeningBalanceBatch{}, shared.ErrSourceNotFound
	}
	out := posting.OpeningBalanceBatch{ID: b.ID, Status: string(b.Status), AsOfDate: b.AsOfDate, Memo: b.Memo}
	for _, l := range b.Lines {
		out.Lines = append(out.Lines, posting.OpeningBalanceLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo})
	}
	return out, nil
}

type fixture struct {
	repo    *memoryRepo
	docs    *batchDocs
	store   *journaltest.Store
	service *openingbalance.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := accountstest.Default(t)
	repo := newMemoryRepo()
	store := journaltest.New()
	docs := &batchDocs{repo: repo}
	engine := posting.NewEngine(docs, journals.NewService(store, reg, nil, nil), reg, nil)
	return fixture{repo: repo, docs: docs, store: store, service: openingbalance.NewService(repo, engine, reg, nil)}
}

var asOf = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func debit(account int64, amount string) openingbalance.LineInput {
	return openingbalance.LineInput{AccountID: account, Debit: decimal.RequireFromString(amount), Credit: decimal.Zero}
}

func credit(account int64, amount string) openingbalance.LineInput {
	return openingbalance.LineInput{AccountID: account, Debit: decimal.Zero, Credit: decimal.RequireFromString(amount)}
}

func TestFinalizeRejectsUnbalancedThenPostsOnceBalanced(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	batch, err := fx.service.CreateBatch(ctx, asOf, "")
	require.NoError(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, debit(1000, "100.00"))
	require.NoError(t, err)

	_, err = fx.service.Finalize(ctx, batch.ID)
	require.ErrorIs(t, err, shared.ErrBatchUnbalanced)
	stored, err := fx.service.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, openingbalance.StatusDraft, stored.Status)
	require.Empty(t, fx.store.Entries())

	_, err = fx.service.AddLine(ctx, batch.ID, credit(3000, "100.00"))
	require.Error(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, credit(2000, "100.00"))
	require.NoError(t, err)

	final, err := fx.service.Finalize(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, openingbalance.StatusFinalized, final.Status)
	require.NotNil(t, final.JournalEntryID)
	require.NotNil(t, final.FinalizedAt)

	live := fx.store.Live()
	require.Len(t, live, 1)
	require.Equal(t, *final.JournalEntryID, live[0].ID)
	require.Equal(t, journals.EntryTypeOpeningBalance, live[0].EntryType)
	debitTotal, creditTotal := journals.Totals(live[0].Lines)
	require.Equal(t, "100.00", debitTotal.StringFixed(2))
	require.True(t, debitTotal.Equal(creditTotal))
}

func TestFinalizeRequiresLines(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	batch, err := fx.service.CreateBatch(ctx, asOf, "empty")
	require.NoError(t, err)
	_, err = fx.service.Finalize(ctx, batch.ID)
	require.ErrorIs(t, err, shared.ErrBatchEmpty)

	_, err = fx.service.Finalize(ctx, 404)
	require.ErrorIs(t, err, shared.ErrBatchNotFound)
}

func TestFinalizedBatchIsImmutableAndFinalizeIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	batch, err := fx.service.CreateBatch(ctx, asOf, "go-live")
	require.NoError(t, err)
	first, err := fx.service.AddLine(ctx, batch.ID, debit(1100, "750.25"))
	require.NoError(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, credit(2000, "750.25"))
	require.NoError(t, err)

	final, err := fx.service.Finalize(ctx, batch.ID)
	require.NoError(t, err)

	_, err = fx.service.AddLine(ctx, batch.ID, debit(1000, "1"))
	require.ErrorIs(t, err, shared.ErrBatchFinalized)
	_, err = fx.service.UpdateLine(ctx, batch.ID, first.ID, debit(1100, "1"))
	require.ErrorIs(t, err, shared.ErrBatchFinalized)
	require.ErrorIs(t, fx.service.DeleteLine(ctx, batch.ID, first.ID), shared.ErrBatchFinalized)

	again, err := fx.service.Finalize(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, *final.JournalEntryID, *again.JournalEntryID)
	require.Len(t, fx.store.Entries(), 1)
}

func TestFinalizeRevertsToDraftWhenPostingFails(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	batch, err := fx.service.CreateBatch(ctx, asOf, "")
	require.NoError(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, debit(1000, "10"))
	require.NoError(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, credit(2000, "10"))
	require.NoError(t, err)

	fx.docs.fail = errors.New("db unavailable")
	_, err = fx.service.Finalize(ctx, batch.ID)
	require.Error(t, err)
	stored, err := fx.service.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, openingbalance.StatusDraft, stored.Status)
	require.Nil(t, stored.JournalEntryID)

	fx.docs.fail = nil
	final, err := fx.service.Finalize(ctx, batch.ID)
	require.NoError(t, err)
	require.NotNil(t, final.JournalEntryID)
}

func TestLineEditsOnDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	batch, err := fx.service.CreateBatch(ctx, asOf, "")
	require.NoError(t, err)
	a, err := fx.service.AddLine(ctx, batch.ID, debit(1000, "10"))
	require.NoError(t, err)
	b, err := fx.service.AddLine(ctx, batch.ID, credit(2000, "15"))
	require.NoError(t, err)

	_, err = fx.service.UpdateLine(ctx, batch.ID, a.ID, debit(1000, "15"))
	require.NoError(t, err)
	_, err = fx.service.AddLine(ctx, batch.ID, debit(1000, "3"))
	require.NoError(t, err)

	stored, err := fx.service.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, "3.00", openingbalance.Difference(stored.Lines).StringFixed(2))

	last := stored.Lines[len(stored.Lines)-1]
	require.NoError(t, fx.service.DeleteLine(ctx, batch.ID, last.ID))
	require.ErrorIs(t, fx.service.DeleteLine(ctx, batch.ID, last.ID), shared.ErrBatchLineNotFound)

	stored, err = fx.service.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	ids := []int64{stored.Lines[0].ID, stored.Lines[1].ID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	require.Equal(t, []int64{a.ID, b.ID}, ids)
	require.True(t, openingbalance.Difference(stored.Lines).IsZero())
}

func TestLineInputValidate(t *testing.T) {
	require.NoError(t, debit(1000, "1").Validate())
	require.ErrorIs(t, openingbalance.LineInput{AccountID: 1000}.Validate(), shared.ErrInvalidLine)
	both := debit(1000, "1")
	both.Credit = decimal.NewFromInt(1)
	require.ErrorIs(t, both.Validate(), shared.ErrInvalidLine)
	require.ErrorIs(t, debit(0, "1").Validate(), shared.ErrInvalidLine)
	require.ErrorIs(t, debit(1000, "-1").Validate(), shared.ErrInvalidLine)
}
