package oidc

import (
	"encoding/base64"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestStateStore_IssueConsume(t *testing.T) {
	s := NewStateStore(newTestCache())
	st, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(st)
	if err != nil || len(raw) != 32 {
		t.Fatalf("state is not 32 bytes of urlsafe entropy: %q", st)
	}
	if got := s.Consume(st); got != StateOK {
		t.Fatalf("first Consume = %v, want StateOK", got)
	}
	// segunda presentación: ya consumido
	if got := s.Consume(st); got != StateInvalid {
		t.Fatalf("second Consume = %v, want StateInvalid", got)
	}
}

func TestStateStore_UnknownAndEmpty(t *testing.T) {
	s := NewStateStore(newTestCache())
	if got := s.Consume("never-issued"); got != StateInvalid {
		t.Fatalf("Consume(unknown) = %v, want StateInvalid", got)
	}
	if got := s.Consume(""); got != StateInvalid {
		t.Fatalf("Consume(empty) = %v, want StateInvalid", got)
	}
}

func TestStateStore_Expired(t *testing.T) {
	c := newTestCache()
	s := NewStateStore(c)

	// entrada viva en el backend pero con expiry lógico en el pasado
	exp := time.Now().Add(-time.Minute).Unix()
	c.Set("oidc:state:stale", []byte(strconv.FormatInt(exp, 10)), stateGrace)

	if got := s.Consume("stale"); got != StateExpired {
		t.Fatalf("Consume(stale) = %v, want StateExpired", got)
	}
	// expirado también consume: no hay segunda oportunidad
	if got := s.Consume("stale"); got != StateInvalid {
		t.Fatalf("Consume(stale) again = %v, want StateInvalid", got)
	}
}

func TestStateStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewStateStore(newTestCache())
	st, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	const n = 16
	results := make([]ConsumeResult, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = s.Consume(st)
		}(i)
	}
	wg.Wait()

	oks := 0
	for _, r := range results {
		if r == StateOK {
			oks++
		}
	}
	if oks != 1 {
		t.Fatalf("StateOK count = %d, want exactly 1", oks)
	}
}
