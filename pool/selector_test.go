package pool

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, creds ...string) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")
	content := ""
	for _, c := range creds {
		content += c + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	s, err := LoadStore(path)
	require.NoError(t, err)
	return s
}

func TestSelector_RoundRobin(t *testing.T) {
	store := newTestStore(t, "k1", "k2", "k3")
	ledger := NewLedger(filepath.Join(t.TempDir(), "key_usage.txt"), testLogger(t))
	sel := NewSelector(store, ledger)

	var seen []string
	for i := 0; i < 6; i++ {
		cred, ok := sel.Next("gemini-pro")
		require.True(t, ok)
		seen = append(seen, cred)
	}
	require.Equal(t, []string{"k1", "k2", "k3", "k1", "k2", "k3"}, seen)
}

func TestSelector_SkipsExhaustedForModelOnly(t *testing.T) {
	store := newTestStore(t, "k1", "k2")
	ledger := NewLedger(filepath.Join(t.TempDir(), "key_usage.txt"), testLogger(t))
	ledger.MarkExhausted("k1", "gemini-pro")
	sel := NewSelector(store, ledger)

	cred, ok := sel.Next("gemini-pro")
	require.True(t, ok)
	require.Equal(t, "k2", cred)

	// Different model: k1 is not quarantined for it.
	cred, ok = sel.Next("gemini-1.5-flash")
	require.True(t, ok)
	require.Equal(t, "k1", cred)
}

func TestSelector_NoneAvailableWhenAllExhausted(t *testing.T) {
	store := newTestStore(t, "k1", "k2")
	ledger := NewLedger(filepath.Join(t.TempDir(), "key_usage.txt"), testLogger(t))
	ledger.MarkExhausted("k1", "gemini-pro")
	ledger.MarkExhausted("k2", "gemini-pro")
	sel := NewSelector(store, ledger)

	_, ok := sel.Next("gemini-pro")
	require.False(t, ok)
}

func TestSelector_ConcurrentCallsNeverShareACursorTick(t *testing.T) {
	store := newTestStore(t, "k1", "k2", "k3", "k4")
	ledger := NewLedger(filepath.Join(t.TempDir(), "key_usage.txt"), testLogger(t))
	sel := NewSelector(store, ledger)

	const n = 40
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred, ok := sel.Next("gemini-pro")
			require.True(t, ok)
			results[i] = cred
		}(i)
	}
	wg.Wait()

	counts := map[string]int{}
	for _, r := range results {
		counts[r]++
	}
	require.Equal(t, n/4, counts["k1"])
	require.Equal(t, n/4, counts["k2"])
	require.Equal(t, n/4, counts["k3"])
	require.Equal(t, n/4, counts["k4"])
}
