package history

import (
	"context"
	"net/url"
	"sort"

	"safe-core/pkg/model"
)

// Iterator walks a history query page by page. Pages are fetched only when
// the buffered one is exhausted. An Iterator holds continuation state and
// cannot be rewound; build a new one with Builder.Query to start over.
//
// With the default ordering each page is sorted by (nonce, submission date)
// locally. Order across pages is whatever the service returns for
// ordering=nonce,created; pages are never merged.
type Iterator struct {
	fetcher Fetcher
	path    string
	query   url.Values
	sorted  bool

	minNonce *uint64
	maxNonce *uint64
	limit    int

	started bool
	next    string
	buf     []model.MultisigTransaction
	cur     *model.MultisigTransaction
	yielded int
	total   uint64
	pages   int
	err     error
	done    bool
}

// Next advances to the next transaction, fetching a page if needed. It
// returns false at the end of the history or on error; check Err.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.limit > 0 && it.yielded >= it.limit {
		it.finish()
		return false
	}

	for {
		for len(it.buf) > 0 {
			tx := it.buf[0]
			it.buf = it.buf[1:]
			if !it.inRange(tx.Nonce) {
				continue
			}
			it.cur = &tx
			it.yielded++
			return true
		}
		if it.started && it.next == "" {
			it.finish()
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			it.finish()
			return false
		}
	}
}

func (it *Iterator) fetch(ctx context.Context) error {
	var page model.Page[model.MultisigTransaction]
	var err error
	if !it.started {
		err = it.fetcher.Get(ctx, it.path, it.query, &page)
	} else {
		err = it.fetcher.GetURL(ctx, it.next, &page)
	}
	if err != nil {
		return err
	}

	if !it.started {
		it.total = page.Count
	}
	it.started = true
	it.pages++
	it.next = ""
	if page.Next != nil {
		it.next = *page.Next
	}

	results := page.Results
	if it.sorted {
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Nonce != results[j].Nonce {
				return results[i].Nonce < results[j].Nonce
			}
			return results[i].SubmissionDate.Before(results[j].SubmissionDate)
		})
	}
	it.buf = results
	return nil
}

// The service applies the same bounds; this guards against one that ignores
// a filter.
func (it *Iterator) inRange(n uint64) bool {
	if it.minNonce != nil && n < *it.minNonce {
		return false
	}
	if it.maxNonce != nil && n > *it.maxNonce {
		return false
	}
	return true
}

func (it *Iterator) finish() {
	it.done = true
	it.cur = nil
	it.buf = nil
}

// Transaction returns the current transaction, valid after Next returned
// true.
func (it *Iterator) Transaction() *model.MultisigTransaction {
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Total is the service-reported result count, known after the first page.
func (it *Iterator) Total() uint64 {
	return it.total
}

// Pages reports how many pages have been fetched so far.
func (it *Iterator) Pages() int {
	return it.pages
}

// Collect drains the iterator.
func (it *Iterator) Collect(ctx context.Context) ([]model.MultisigTransaction, error) {
	var out []model.MultisigTransaction
	for it.Next(ctx) {
		out = append(out, *it.Transaction())
	}
	return out, it.Err()
}
