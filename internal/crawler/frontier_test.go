package crawler

import "testing"

func TestFrontierFIFOOrder(t *testing.T) {
	t.Parallel()

	f := NewFrontier(10)
	for _, u := range []string{"a", "b", "c"} {
		if !f.Enqueue(u) {
			t.Fatalf("Enqueue(%q) = false, want true", u)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := f.Dequeue()
		if !ok {
			t.Fatalf("Dequeue() ok = false, want %q", want)
		}
		if got != want {
			t.Errorf("Dequeue() = %q, want %q", got, want)
		}
	}

	if _, ok := f.Dequeue(); ok {
		t.Error("Dequeue() on empty frontier ok = true, want false")
	}
}

func TestFrontierRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := NewFrontier(10)
	if !f.Enqueue("a") {
		t.Fatal("first Enqueue(a) = false, want true")
	}
	if f.Enqueue("a") {
		t.Error("duplicate Enqueue(a) = true, want false")
	}

	// Once visited, the URL stays rejected.
	url, _ := f.Dequeue()
	f.MarkVisited(url)
	if f.Enqueue("a") {
		t.Error("Enqueue(a) after visit = true, want false")
	}
	if f.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", f.PendingCount())
	}
}

func TestFrontierEnforcesBudget(t *testing.T) {
	t.Parallel()

	t.Run("pending alone fills the budget", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(2)
		if !f.Enqueue("a") || !f.Enqueue("b") {
			t.Fatal("expected first two enqueues to succeed")
		}
		if f.Enqueue("c") {
			t.Error("Enqueue over budget = true, want false")
		}
	})

	t.Run("visited counts against the budget", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(2)
		f.Enqueue("a")
		url, _ := f.Dequeue()
		f.MarkVisited(url)

		if !f.Enqueue("b") {
			t.Fatal("Enqueue(b) within budget = false, want true")
		}
		if f.Enqueue("c") {
			t.Error("Enqueue(c) over budget = true, want false")
		}
	})
}

func TestFrontierHasNext(t *testing.T) {
	t.Parallel()

	f := NewFrontier(1)
	if f.HasNext() {
		t.Error("HasNext() on empty frontier = true, want false")
	}

	f.Enqueue("a")
	if !f.HasNext() {
		t.Error("HasNext() with pending URL = false, want true")
	}

	url, _ := f.Dequeue()
	f.MarkVisited(url)
	if f.HasNext() {
		t.Error("HasNext() with exhausted budget = true, want false")
	}
}

func TestNewFrontierClampsBudget(t *testing.T) {
	t.Parallel()

	f := NewFrontier(0)
	if f.Budget() != 1 {
		t.Errorf("Budget() = %d, want 1", f.Budget())
	}
	if !f.Enqueue("seed") {
		t.Error("Enqueue(seed) with clamped budget = false, want true")
	}
}
