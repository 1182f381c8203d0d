// Package pool owns the credential pool: the immutable credential list, the
// daily usage ledger, and the round-robin selector built on top of them.
package pool

import (
	"bufio"
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Store is an immutable, ordered list of upstream credentials loaded once at
// startup. It is safe for concurrent read access without locking.
type Store struct {
	creds []string
}

// LoadStore reads path as a newline-delimited credential file. Whitespace-only
// lines are ignored; remaining lines are trimmed. Returns an error if the file
// cannot be read or yields zero credentials, so the caller can fail fast.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open credential file %q", path)
	}
	defer f.Close()

	var creds []string
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		creds = append(creds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan credential file %q", path)
	}
	if len(creds) == 0 {
		return nil, errors.Errorf("credential file %q contains no usable credentials", path)
	}
	return &Store{creds: creds}, nil
}

// Count returns the number of credentials in the pool.
func (s *Store) Count() int {
	return len(s.creds)
}

// At returns the credential at load-order index i.
func (s *Store) At(i int) string {
	return s.creds[i]
}

// All returns the credentials in load order. The returned slice must not be
// mutated by the caller.
func (s *Store) All() []string {
	return s.creds
}

// MaskSuffix returns "****" followed by the trailing four characters of cred
// for safe logging, or just "****" when cred has four characters or fewer.
func MaskSuffix(cred string) string {
	if len(cred) <= 4 {
		return "****"
	}
	return "****" + cred[len(cred)-4:]
}
