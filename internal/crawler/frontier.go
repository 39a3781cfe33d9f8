package crawler

// Frontier is the pending-to-visit queue of one crawl, processed
// first-in-first-out so the crawl proceeds breadth-first. It tracks every
// URL ever accepted so nothing is enqueued twice, and it enforces the page
// budget: once pending plus visited reaches the budget, enqueueing stops.
//
// A Frontier is owned by a single crawl goroutine and is not safe for
// concurrent use. Crawls never share frontiers, so no locking is needed.
type Frontier struct {
	// budget is the hard cap on total URLs ever accepted (pending+visited).
	budget int

	// pending holds URLs waiting to be visited, in discovery order.
	pending []string

	// accepted tracks every URL ever enqueued, pending or visited.
	// Enqueue-time dedup happens here.
	accepted map[string]struct{}

	// visited tracks URLs that have been dequeued and processed.
	visited map[string]struct{}
}

// NewFrontier creates an empty frontier with the given page budget.
// A non-positive budget is treated as a budget of one so the seed page
// can always be visited.
func NewFrontier(budget int) *Frontier {
	if budget < 1 {
		budget = 1
	}
	return &Frontier{
		budget:   budget,
		pending:  make([]string, 0, budget),
		accepted: make(map[string]struct{}, budget),
		visited:  make(map[string]struct{}, budget),
	}
}

// Enqueue appends a URL to the back of the queue. It reports false and
// leaves the frontier unchanged when the URL was already accepted before,
// or when accepting it would exceed the budget.
func (f *Frontier) Enqueue(url string) bool {
	if _, dup := f.accepted[url]; dup {
		return false
	}
	if len(f.pending)+len(f.visited) >= f.budget {
		return false
	}
	f.accepted[url] = struct{}{}
	f.pending = append(f.pending, url)
	return true
}

// Dequeue removes and returns the URL at the front of the queue.
// It reports false when the queue is empty.
func (f *Frontier) Dequeue() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	url := f.pending[0]
	f.pending = f.pending[1:]
	return url, true
}

// MarkVisited records that a dequeued URL has been processed.
func (f *Frontier) MarkVisited(url string) {
	f.visited[url] = struct{}{}
}

// Visited reports whether a URL has already been processed.
func (f *Frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// HasNext reports whether the crawl loop should run another iteration:
// there is a pending URL and the visited count is still under budget.
func (f *Frontier) HasNext() bool {
	return len(f.pending) > 0 && len(f.visited) < f.budget
}

// VisitedCount returns the number of processed URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// PendingCount returns the number of URLs waiting to be visited.
func (f *Frontier) PendingCount() int {
	return len(f.pending)
}

// Budget returns the page budget the frontier enforces.
func (f *Frontier) Budget() int {
	return f.budget
}
