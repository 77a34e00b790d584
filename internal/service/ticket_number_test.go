package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldserve/ticket-tracker/internal/clock"
)

func TestTicketNumberAllocator(t *testing.T) {
	ctx := context.Background()

	t.Run("formats day and zero-padded sequence", func(t *testing.T) {
		sequences := newFakeSequenceRepo()
		fixed := clock.NewFixed(time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC))
		allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
		if err != nil {
			t.Fatalf("allocator: %v", err)
		}

		number, err := allocator.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if number != "20250614-0001" {
			t.Errorf("number = %q, want 20250614-0001", number)
		}
	})

	t.Run("day follows the business timezone", func(t *testing.T) {
		// 03:00 UTC on the 15th is still 22:00 on the 14th in Chicago.
		sequences := newFakeSequenceRepo()
		fixed := clock.NewFixed(time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
		allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
		if err != nil {
			t.Fatalf("allocator: %v", err)
		}

		number, err := allocator.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if number != "20250614-0001" {
			t.Errorf("number = %q, want the Chicago calendar day", number)
		}
		if _, ok := sequences.counters["2025-06-14"]; !ok {
			t.Errorf("counter day keys = %v, want 2025-06-14", sequences.counters)
		}
	})

	t.Run("sequence widens past 9999", func(t *testing.T) {
		sequences := newFakeSequenceRepo()
		sequences.counters["2025-06-14"] = 9999
		fixed := clock.NewFixed(time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC))
		allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
		if err != nil {
			t.Fatalf("allocator: %v", err)
		}

		number, err := allocator.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if number != "20250614-10000" {
			t.Errorf("number = %q, want 20250614-10000", number)
		}
	})

	t.Run("concurrent allocations never collide", func(t *testing.T) {
		const workers = 50

		sequences := newFakeSequenceRepo()
		fixed := clock.NewFixed(time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC))
		allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
		if err != nil {
			t.Fatalf("allocator: %v", err)
		}

		var wg sync.WaitGroup
		numbers := make(chan string, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				number, err := allocator.Next(ctx)
				if err != nil {
					t.Errorf("next: %v", err)
					return
				}
				numbers <- number
			}()
		}
		wg.Wait()
		close(numbers)

		seen := map[string]bool{}
		for number := range numbers {
			if seen[number] {
				t.Fatalf("duplicate ticket number %q", number)
			}
			seen[number] = true
		}
		if len(seen) != workers {
			t.Fatalf("allocated %d distinct numbers, want %d", len(seen), workers)
		}
	})

	t.Run("counter outage is a dependency failure", func(t *testing.T) {
		sequences := newFakeSequenceRepo()
		sequences.err = errors.New("connection refused")
		fixed := clock.NewFixed(time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC))
		allocator, err := NewTicketNumberAllocator(sequences, fixed, "America/Chicago")
		if err != nil {
			t.Fatalf("allocator: %v", err)
		}

		_, err = allocator.Next(ctx)
		assertDomainCode(t, err, "DEPENDENCY_UNAVAILABLE")
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		_, err := NewTicketNumberAllocator(newFakeSequenceRepo(), clock.NewSystem(), "Mars/Olympus")
		if err == nil {
			t.Fatal("expected error for unknown timezone")
		}
	})
}
