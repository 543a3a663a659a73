package reconcile

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// MergeRequestRef addresses one merge request on the code-hosting service.
// ProjectID and MrID may be empty, in which case MrURL is authoritative.
type MergeRequestRef struct {
	MrURL     string
	ProjectID string
	MrID      string
}

// MergeRequestState is the collaborator's view of a merge request.
type MergeRequestState struct {
	State       string
	MergeStatus string
}

// MergeRequestSource answers state queries for a batch of merge requests.
// The result is keyed by MrURL; refs the source could not resolve are
// simply absent. A non-nil error means the whole batch failed.
type MergeRequestSource interface {
	QueryMergeRequests(ctx context.Context, refs []MergeRequestRef) (map[string]MergeRequestState, error)
}

// LookupFunc fetches the state of a single merge request.
type LookupFunc func(ctx context.Context, ref MergeRequestRef) (MergeRequestState, error)

// CollaboratorError wraps a failure of the code-hosting collaborator.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

type perRequest struct {
	lookup      LookupFunc
	concurrency int64
}

// PerRequest turns a single-MR lookup into a MergeRequestSource that issues
// at most concurrency lookups at a time. Lookups that fail are left out of
// the result. The batch itself fails only when every lookup failed or the
// context ended.
func PerRequest(lookup LookupFunc, concurrency int) MergeRequestSource {
	if concurrency < 1 {
		concurrency = 1
	}
	return &perRequest{lookup: lookup, concurrency: int64(concurrency)}
}

func (p *perRequest) QueryMergeRequests(ctx context.Context, refs []MergeRequestRef) (map[string]MergeRequestState, error) {
	sem := semaphore.NewWeighted(p.concurrency)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		out      = make(map[string]MergeRequestState, len(refs))
		firstErr error
	)

	for _, ref := range refs {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(ref MergeRequestRef) {
			defer wg.Done()
			defer sem.Release(1)

			state, err := p.lookup(ctx, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[ref.MrURL] = state
		}(ref)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &CollaboratorError{Op: "query", Err: err}
	}
	if len(refs) > 0 && len(out) == 0 && firstErr != nil {
		return nil, &CollaboratorError{Op: "query", Err: firstErr}
	}
	return out, nil
}
