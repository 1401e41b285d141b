package gateway

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
)

// ListFunc fetches one page of a go-github list endpoint.
type ListFunc[T any] func(ctx context.Context, opts *github.ListOptions) ([]T, *github.Response, error)

// Pager walks a paginated endpoint page by page, following the page cursor
// the host advertises. Pagination ends on an empty page, when no next page
// is advertised, when a visitor asks to stop, or after a failed page.
type Pager[T any] struct {
	op      string
	list    ListFunc[T]
	retry   RetryPolicy
	perPage int

	next    int // 0 once exhausted
	fetched int
}

// NewPager creates a pager positioned at the first page
func NewPager[T any](op string, list ListFunc[T], perPage int, retry RetryPolicy) *Pager[T] {
	return &Pager[T]{
		op:      op,
		list:    list,
		retry:   retry,
		perPage: perPage,
		next:    1,
	}
}

// Next fetches the next page. It returns (nil, nil) once the pager is done.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.next == 0 {
		return nil, nil
	}

	opts := &github.ListOptions{Page: p.next, PerPage: p.perPage}
	var (
		items []T
		resp  *github.Response
	)
	err := p.retry.do(ctx, fmt.Sprintf("%s (page %d)", p.op, p.next), func() (*github.Response, error) {
		var err error
		items, resp, err = p.list(ctx, opts)
		return resp, err
	})
	if err != nil {
		p.next = 0
		return nil, err
	}

	p.fetched++
	if len(items) == 0 || resp == nil || resp.NextPage == 0 {
		p.next = 0
	} else {
		p.next = resp.NextPage
	}
	return items, nil
}

// Done reports whether no further page will be requested
func (p *Pager[T]) Done() bool {
	return p.next == 0
}

// PagesFetched returns how many pages were retrieved successfully
func (p *Pager[T]) PagesFetched() int {
	return p.fetched
}

// Reset restarts pagination from the first page
func (p *Pager[T]) Reset() {
	p.next = 1
	p.fetched = 0
}

// Walk visits items in order until visit returns false or pages run out
func (p *Pager[T]) Walk(ctx context.Context, visit func(T) bool) error {
	for !p.Done() {
		items, err := p.Next(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !visit(item) {
				p.next = 0
				return nil
			}
		}
	}
	return nil
}

// Collect gathers every remaining item. On error the items gathered so far are returned with it.
func (p *Pager[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	err := p.Walk(ctx, func(item T) bool {
		all = append(all, item)
		return true
	})
	return all, err
}
