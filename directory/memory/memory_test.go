package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/lounge/directory"
)

func add(t *testing.T, d *Directory, id int64) {
	t.Helper()
	p := &directory.Participant{ID: id}
	p.Defaults()
	if err := d.Add(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	d := New()
	add(t, d, 1)

	p, err := d.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	p.Karma = 99

	again, err := d.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if again.Karma != 0 {
		t.Fatal("mutating a returned participant must not change the record")
	}
}

func TestGetUnknown(t *testing.T) {
	d := New()
	if _, err := d.Get(context.Background(), 42); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAllOrderedByID(t *testing.T) {
	d := New()
	add(t, d, 3)
	add(t, d, 1)
	add(t, d, 2)

	parts, err := d.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(parts))
	}
	for i, want := range []int64{1, 2, 3} {
		if parts[i].ID != want {
			t.Fatalf("expected id %d at position %d, got %d", want, i, parts[i].ID)
		}
	}
}

func TestModifyIsAtomic(t *testing.T) {
	d := New()
	add(t, d, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Modify(context.Background(), 1, func(p *directory.Participant) {
				p.Karma++
			})
		}()
	}
	wg.Wait()

	p, err := d.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Karma != 50 {
		t.Fatalf("expected 50 concurrent increments, got %d", p.Karma)
	}
}

func TestModifyUnknown(t *testing.T) {
	d := New()
	if _, err := d.Modify(context.Background(), 42, func(*directory.Participant) {}); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountActive(t *testing.T) {
	d := New()
	add(t, d, 1)
	add(t, d, 2)
	add(t, d, 3)

	if _, err := d.Modify(context.Background(), 2, func(p *directory.Participant) { p.SetLeft() }); err != nil {
		t.Fatal(err)
	}

	n, err := d.CountActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 active, got %d", n)
	}
}
