/*
history.go - Interval bucketing (OHLCV balance history)

PURPOSE:
  Partitions the span before "now" into count consecutive buckets and
  derives candlestick-style statistics per bucket by replaying the
  session's transactions chronologically:

    open   balance at bucket start (the previous bucket's close)
    close  open + sum of signed amounts dated within the bucket
    high   maximum running balance observed during the replay
    low    minimum running balance observed during the replay
    volume sum of absolute amounts (turnover, not net)

BUCKET BOUNDARIES:
  Buckets are fixed-length windows ending at now, oldest first. A
  transaction dated exactly on a boundary belongs to the earlier bucket:
  bucket i owns (start, end]. Calendar alignment (weeks starting Monday
  and the like) is deliberately not applied; see WindowBounds.

EDGE CASES:
  - empty bucket: open = close = high = low = previous close, volume = 0
  - empty session: every statistic is zero
  - unknown interval or count < 1: fails with InvalidParameter
*/
package ledger

import (
	"context"
	"time"
)

// Bucket is one fixed window of balance history.
type Bucket struct {
	Start  time.Time
	End    time.Time
	Open   Money
	High   Money
	Low    Money
	Close  Money
	Volume Money
}

// BucketHistory derives count buckets ending at now from a snapshot slice
// ordered by date ascending. Pure function; see Bucketer for the
// session-level contract.
func BucketHistory(txs []Transaction, iv Interval, count int, now time.Time) ([]Bucket, error) {
	bounds, err := WindowBounds(now, iv, count)
	if err != nil {
		return nil, err
	}

	buckets := make([]Bucket, count)
	running := SumAsOf(txs, bounds[0])

	// Advance past everything contributing to the first open.
	i := 0
	for i < len(txs) && !txs[i].Date.After(bounds[0]) {
		i++
	}

	for b := 0; b < count; b++ {
		start, end := bounds[b], bounds[b+1]
		bucket := Bucket{
			Start:  start,
			End:    end,
			Open:   running,
			High:   running,
			Low:    running,
			Volume: ZeroMoney(),
		}

		for i < len(txs) && !txs[i].Date.After(end) {
			tx := txs[i]
			running = running.Add(tx.Signed())
			bucket.High = bucket.High.Max(running)
			bucket.Low = bucket.Low.Min(running)
			bucket.Volume = bucket.Volume.Add(tx.Amount.Abs())
			i++
		}

		bucket.Close = running
		buckets[b] = bucket
	}

	return buckets, nil
}

// =============================================================================
// BUCKETER - Session-level history contract
// =============================================================================

// Bucketer computes balance history for a session.
type Bucketer struct {
	Store Store
}

func NewBucketer(store Store) *Bucketer {
	return &Bucketer{Store: store}
}

// History returns count buckets of the given interval ending at now, oldest
// first. Fails with NotFound for an unknown session and InvalidParameter for
// a bad interval or count.
func (b *Bucketer) History(ctx context.Context, sid SessionID, iv Interval, count int, now time.Time) ([]Bucket, error) {
	ok, err := b.Store.HasSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Kind: "session", ID: sid}
	}

	txs, err := b.Store.ListTransactions(ctx, sid, TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return BucketHistory(txs, iv, count, now)
}
