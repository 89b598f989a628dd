package mount

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
)

// Store is durable key/value byte storage, see store.Dir.
type Store interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	DeleteIfExists(name string) error
	List() ([]string, error)
	GenerateName() string
	Path(name string) string
}

// Ledger persists one Record per mount that has not been undone yet, keyed by a
// sequence id that only grows for the lifetime of the Ledger.
type Ledger struct {
	store Store
	next  uint64
}

// NewLedger opens a ledger over s. Sequence ids continue after the highest id already
// stored so that entries left by an earlier run are never overwritten.
func NewLedger(s Store) (*Ledger, error) {
	names, err := s.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing mount records")
	}

	l := &Ledger{store: s}
	for _, name := range names {
		if seq, err := strconv.ParseUint(name, 10, 64); err == nil && seq >= l.next {
			l.next = seq + 1
		}
	}
	return l, nil
}

// Append stores r under the next sequence id and returns it with Key set.
func (l *Ledger) Append(r Record) (Record, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return Record{}, errors.Wrap(err, "encoding mount record")
	}

	key := strconv.FormatUint(l.next, 10)
	if err := l.store.Write(key, b); err != nil {
		return Record{}, errors.Wrapf(err, "writing mount record for %s", style.Symbol(r.Dest))
	}
	l.next++

	r.Key = key
	return r, nil
}

func (l *Ledger) Get(key string) (Record, error) {
	b, err := l.store.Read(key)
	if err != nil {
		return Record{}, errors.Wrapf(err, "reading mount record %s", style.Symbol(key))
	}

	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, errors.Wrapf(err, "decoding mount record %s", style.Symbol(key))
	}
	r.Key = key
	return r, nil
}

func (l *Ledger) Delete(key string) error {
	return errors.Wrapf(l.store.DeleteIfExists(key), "deleting mount record %s", style.Symbol(key))
}

// Keys lists every stored entry, newest first. Names that are not sequence ids sort last.
func (l *Ledger) Keys() ([]string, error) {
	names, err := l.store.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing mount records")
	}

	sort.SliceStable(names, func(i, j int) bool {
		a, errA := strconv.ParseUint(names[i], 10, 64)
		b, errB := strconv.ParseUint(names[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a > b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return names[i] < names[j]
	})
	return names, nil
}

// Records reads every stored entry, newest first.
func (l *Ledger) Records() ([]Record, error) {
	keys, err := l.Keys()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		r, err := l.Get(key)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
