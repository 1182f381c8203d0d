package pool

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	glog "github.com/Laisky/go-utils/v6/log"
)

// dayKey returns the current calendar date in the process's local time,
// ISO-8601 form (e.g. "2026-07-30").
func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// record is the JSON shape written to and read from the usage file.
type record struct {
	Date          string                     `json:"date"`
	Counts        map[string]int             `json:"counts"`
	ModelCounts   map[string]map[string]int  `json:"model_counts"`
	ExhaustedKeys json.RawMessage            `json:"exhausted_keys"`
}

// Ledger is the in-memory daily usage ledger described by the persistence
// record. All mutating operations are serialized by mu and followed by a
// crash-safe rewrite of the backing file.
type Ledger struct {
	mu        sync.Mutex
	path      string
	logger    glog.Logger
	day       string
	totals    map[string]int
	perModel  map[string]map[string]int
	exhausted map[string]map[string]struct{}
	cursor    int
}

// NewLedger loads path if present and dated today, otherwise starts empty for
// today. Load failures are logged and treated as "start fresh" — they never
// propagate to the caller, per the persistence-error disposition.
func NewLedger(path string, logger glog.Logger) *Ledger {
	l := &Ledger{
		path:      path,
		logger:    logger,
		day:       dayKey(time.Now()),
		totals:    map[string]int{},
		perModel:  map[string]map[string]int{},
		exhausted: map[string]map[string]struct{}{},
	}

	rec, err := loadRecord(path)
	if err != nil {
		logger.Warn("failed to load usage ledger, starting fresh for today", zap.Error(err))
		return l
	}
	if rec.Date != l.day {
		logger.Info("persisted ledger is from a previous day, starting fresh",
			zap.String("persisted_day", rec.Date), zap.String("today", l.day))
		return l
	}

	l.day = rec.Date
	if rec.Counts != nil {
		l.totals = rec.Counts
	}
	if rec.ModelCounts != nil {
		l.perModel = rec.ModelCounts
	}
	l.exhausted = parseExhausted(rec.ExhaustedKeys, logger)
	return l
}

// parseExhausted accepts either the current shape (map[string][]string) or
// the legacy flat-list-of-credentials shape, which carries no per-model
// information and is therefore discarded rather than migrated.
func parseExhausted(raw json.RawMessage, logger glog.Logger) map[string]map[string]struct{} {
	out := map[string]map[string]struct{}{}
	if len(raw) == 0 {
		return out
	}

	var byModel map[string][]string
	if err := json.Unmarshal(raw, &byModel); err == nil {
		for cred, models := range byModel {
			set := map[string]struct{}{}
			for _, m := range models {
				set[m] = struct{}{}
			}
			out[cred] = set
		}
		return out
	}

	var flatList []string
	if err := json.Unmarshal(raw, &flatList); err == nil {
		logger.Info("recognized legacy flat-list exhausted_keys shape, discarding for today")
		return out
	}

	logger.Warn("unrecognized exhausted_keys shape, starting with empty exhaustion set")
	return out
}

func loadRecord(path string) (*record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read usage file %q", path)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "parse usage file %q", path)
	}
	return &rec, nil
}

// EnsureDay compares today to the ledger's day and, on mismatch, resets all
// four fields to an empty record dated today, then persists.
func (l *Ledger) EnsureDay(now time.Time) {
	today := dayKey(now)

	l.mu.Lock()
	if l.day == today {
		l.mu.Unlock()
		return
	}
	l.day = today
	l.totals = map[string]int{}
	l.perModel = map[string]map[string]int{}
	l.exhausted = map[string]map[string]struct{}{}
	l.cursor = 0
	l.mu.Unlock()

	l.persist()
}

// IsExhausted reports whether cred has been quarantined for model today.
func (l *Ledger) IsExhausted(cred, model string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isExhaustedLocked(cred, model)
}

func (l *Ledger) isExhaustedLocked(cred, model string) bool {
	set, ok := l.exhausted[cred]
	if !ok {
		return false
	}
	_, ok = set[model]
	return ok
}

// MarkExhausted adds model to cred's exhaustion set and persists.
func (l *Ledger) MarkExhausted(cred, model string) {
	l.mu.Lock()
	set, ok := l.exhausted[cred]
	if !ok {
		set = map[string]struct{}{}
		l.exhausted[cred] = set
	}
	set[model] = struct{}{}
	l.mu.Unlock()

	l.persist()
}

// RecordSuccess increments totals[cred] and perModel[cred][model], then
// persists. Named "success" for historical reasons: it is also called for
// non-429 error responses, per the preserved source behavior (see §9 of the
// design notes) — the ledger counts credential uses, not successes.
func (l *Ledger) RecordSuccess(cred, model string) {
	l.mu.Lock()
	l.totals[cred]++
	m, ok := l.perModel[cred]
	if !ok {
		m = map[string]int{}
		l.perModel[cred] = m
	}
	m[model]++
	l.mu.Unlock()

	l.persist()
}

// AllExhaustedFor reports whether every credential in creds is exhausted for
// model.
func (l *Ledger) AllExhaustedFor(model string, creds []string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range creds {
		if !l.isExhaustedLocked(c, model) {
			return false
		}
	}
	return true
}

// nextCursor advances and returns the selector cursor under the ledger's
// lock, so that concurrent requests arriving at the same tick never observe
// the same value.
func (l *Ledger) nextCursor(poolSize int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.cursor % poolSize
	l.cursor++
	return c
}

// Day returns the ledger's current day key.
func (l *Ledger) Day() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day
}

// Snapshot returns a deep copy of the ledger's current state for tests and
// diagnostics.
func (l *Ledger) Snapshot() (day string, totals map[string]int, perModel map[string]map[string]int, exhausted map[string][]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day = l.day
	totals = map[string]int{}
	for k, v := range l.totals {
		totals[k] = v
	}
	perModel = map[string]map[string]int{}
	for k, v := range l.perModel {
		inner := map[string]int{}
		for mk, mv := range v {
			inner[mk] = mv
		}
		perModel[k] = inner
	}
	exhausted = map[string][]string{}
	for k, v := range l.exhausted {
		var models []string
		for m := range v {
			models = append(models, m)
		}
		exhausted[k] = models
	}
	return
}

// persist rewrites the usage file with the ledger's current state. It writes
// to a sibling temporary file and renames it into place so a crash never
// leaves a partially-written file behind. Failures are logged, never
// returned: a failed save must not fail the in-flight request.
//
// The snapshot, marshal, and write+rename all happen under l.mu, not just the
// snapshot: releasing the lock before the I/O would let two persist() calls
// race their writes, and the slower one could rename an older snapshot over
// a newer one that finished first, silently regressing the on-disk file.
func (l *Ledger) persist() {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := record{
		Date:   l.day,
		Counts: map[string]int{},
	}
	for k, v := range l.totals {
		rec.Counts[k] = v
	}
	rec.ModelCounts = map[string]map[string]int{}
	for k, v := range l.perModel {
		inner := map[string]int{}
		for mk, mv := range v {
			inner[mk] = mv
		}
		rec.ModelCounts[k] = inner
	}
	exhaustedOut := map[string][]string{}
	for k, v := range l.exhausted {
		var models []string
		for m := range v {
			models = append(models, m)
		}
		exhaustedOut[k] = models
	}
	path := l.path

	raw, err := json.Marshal(struct {
		Date          string                    `json:"date"`
		Counts        map[string]int            `json:"counts"`
		ModelCounts   map[string]map[string]int `json:"model_counts"`
		ExhaustedKeys map[string][]string        `json:"exhausted_keys"`
	}{
		Date:          rec.Date,
		Counts:        rec.Counts,
		ModelCounts:   rec.ModelCounts,
		ExhaustedKeys: exhaustedOut,
	})
	if err != nil {
		l.logger.Error("failed to marshal usage ledger", zap.Error(err))
		return
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".usage-*.tmp")
	if err != nil {
		l.logger.Error("failed to create temp usage file", zap.Error(err))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		l.logger.Error("failed to write temp usage file", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		l.logger.Error("failed to close temp usage file", zap.Error(err))
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		l.logger.Error("failed to rename temp usage file into place", zap.Error(err))
	}
}
