package changefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	changes []entitystore.Change
	err     error
	calls   int
}

func (f *fakeSource) add(author models.TransactionSource, op entitystore.Op) entitystore.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := entitystore.Change{
		Seq:      int64(len(f.changes) + 1),
		RecordID: uuid.New(),
		Version:  1,
		Op:       op,
		Author:   author,
	}
	c.Record.ID = c.RecordID
	c.Record.Version = 1
	f.changes = append(f.changes, c)
	return c
}

func (f *fakeSource) ChangesSince(_ context.Context, afterSeq int64, limit int) ([]entitystore.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []entitystore.Change
	for _, c := range f.changes {
		if c.Seq > afterSeq && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) LatestSeq(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.changes)), nil
}

type recorder struct {
	mu   sync.Mutex
	seen []int64
}

func (r *recorder) handle(_ context.Context, c entitystore.Change) error {
	r.mu.Lock()
	r.seen = append(r.seen, c.Seq)
	r.mu.Unlock()
	return nil
}

func (r *recorder) seqs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.seen...)
}

func TestPoll_DeliversOnlyForeignChanges(t *testing.T) {
	src := &fakeSource{}
	src.add(models.SourceShareExtension, entitystore.OpInsert)
	src.add(models.SourceApp, entitystore.OpInsert)
	src.add(models.SourceShareExtension, entitystore.OpUpdate)

	p := NewPoller(src, models.SourceApp, logging.NewMockLogger())
	rec := &recorder{}
	p.Subscribe(rec.handle)

	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3}, rec.seqs())
	assert.Equal(t, int64(3), p.Cursor())

	n, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoll_DrainsAcrossBatches(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 7; i++ {
		src.add(models.SourceShareExtension, entitystore.OpInsert)
	}

	p := NewPoller(src, models.SourceApp, nil, WithBatchSize(3))
	rec := &recorder{}
	p.Subscribe(rec.handle)

	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, rec.seqs())
	assert.Equal(t, 3, src.calls)
}

func TestPoll_HandlerErrorRetriesSameChange(t *testing.T) {
	src := &fakeSource{}
	src.add(models.SourceShareExtension, entitystore.OpInsert)
	src.add(models.SourceShareExtension, entitystore.OpInsert)

	fail := true
	var seen []int64
	p := NewPoller(src, models.SourceApp, logging.NewMockLogger())
	p.Subscribe(func(_ context.Context, c entitystore.Change) error {
		if c.Seq == 2 && fail {
			return errors.New("view busy")
		}
		seen = append(seen, c.Seq)
		return nil
	})

	_, err := p.Poll(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(1), p.Cursor())

	fail = false
	_, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, seen)
	assert.Equal(t, int64(2), p.Cursor())
}

func TestPoll_RetryResumesAtFailingHandler(t *testing.T) {
	src := &fakeSource{}
	src.add(models.SourceShareExtension, entitystore.OpInsert)
	src.add(models.SourceShareExtension, entitystore.OpUpdate)
	src.add(models.SourceShareExtension, entitystore.OpInsert)

	first, third := &recorder{}, &recorder{}
	failures := 2
	var second []int64
	p := NewPoller(src, models.SourceApp, logging.NewMockLogger())
	p.Subscribe(first.handle)
	p.Subscribe(func(_ context.Context, c entitystore.Change) error {
		if c.Seq == 2 && failures > 0 {
			failures--
			return errors.New("publish failed")
		}
		second = append(second, c.Seq)
		return nil
	})
	p.Subscribe(third.handle)

	for i := 0; i < 2; i++ {
		_, err := p.Poll(context.Background())
		require.Error(t, err)
		assert.Equal(t, int64(1), p.Cursor())
	}

	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2, 3}, first.seqs(), "first handler saw a change twice")
	assert.Equal(t, []int64{1, 2, 3}, second)
	assert.Equal(t, []int64{1, 2, 3}, third.seqs())
	assert.Equal(t, int64(3), p.Cursor())
}

func TestPoll_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("database is locked")}
	_, err := NewPoller(src, models.SourceApp, nil).Poll(context.Background())
	assert.Error(t, err)
}

func TestSkipToLatestAndWithCursor(t *testing.T) {
	src := &fakeSource{}
	src.add(models.SourceShareExtension, entitystore.OpInsert)
	src.add(models.SourceShareExtension, entitystore.OpInsert)

	p := NewPoller(src, models.SourceApp, nil)
	require.NoError(t, p.SkipToLatest(context.Background()))
	assert.Equal(t, int64(2), p.Cursor())

	p = NewPoller(src, models.SourceApp, nil, WithCursor(1))
	rec := &recorder{}
	p.Subscribe(rec.handle)
	_, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, rec.seqs())
}

func TestRun_NotifyTriggersPoll(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, models.SourceApp, logging.NewMockLogger(), WithInterval(time.Hour))
	rec := &recorder{}
	p.Subscribe(rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src.add(models.SourceShareExtension, entitystore.OpInsert)
	assert.Eventually(t, func() bool {
		p.Notify()
		return len(rec.seqs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPoller_WithRealStore(t *testing.T) {
	dir := t.TempDir()
	open := func(author models.TransactionSource) *entitystore.Store {
		s, err := entitystore.Open(context.Background(), entitystore.Options{
			Directory:  dir,
			Passphrase: "correct horse battery staple",
			Author:     author,
			Logger:     logging.NewMockLogger(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	app := open(models.SourceApp)
	share := open(models.SourceShareExtension)
	ctx := context.Background()

	amount := decimal.NewFromInt(980)
	tx, err := models.NewTransactionBuilder().
		WithAmount(&amount).
		WithMemo("ランチ").
		WithSource(models.SourceShareExtension).
		Build()
	require.NoError(t, err)

	view := NewView(nil)
	p := NewPoller(app, models.SourceApp, nil)
	p.Subscribe(view.Apply)

	saved, err := share.Insert(ctx, tx)
	require.NoError(t, err)
	own, err := models.NewTransactionBuilder().WithAmount(&amount).WithMemo("自分").Build()
	require.NoError(t, err)
	_, err = app.Insert(ctx, own)
	require.NoError(t, err)

	n, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := view.Get(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "ランチ", *got.Memo)
	assert.Equal(t, 1, view.Len())

	require.NoError(t, share.Delete(ctx, saved.ID))
	_, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, view.Len())
}
