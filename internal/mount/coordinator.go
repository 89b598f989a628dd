package mount

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/pkg/logging"
)

// Mapping places Source (a path relative to the project root, or an http(s) URL) at Dest.
type Mapping struct {
	Dest   string
	Source string
}

// FileMap is an ordered set of mappings. Mounts happen in slice order.
type FileMap []Mapping

// Coordinator applies batches of mounts all-or-nothing and sweeps the ledger.
type Coordinator struct {
	engine    Engine
	ledger    *Ledger
	logger    logging.Logger
	committed map[string]bool
}

func NewCoordinator(engine Engine, ledger *Ledger, logger logging.Logger) *Coordinator {
	return &Coordinator{
		engine:    engine,
		ledger:    ledger,
		logger:    logger,
		committed: map[string]bool{},
	}
}

// DoMount mounts every mapping of files under the unit directory. When a mount fails,
// the mounts already applied are undone newest first and an AggregateError holding the
// mount error and any rollback errors is returned.
func (c *Coordinator) DoMount(ctx context.Context, files FileMap, unit string) error {
	var records []Record
	for _, f := range files {
		record, err := c.engine.Mount(ctx, f.Source, filepath.Join(unit, f.Dest))
		if record != nil {
			records = append(records, *record)
		}
		if err != nil {
			errs := append([]error{err}, c.rollback(records)...)
			c.engine.Reset()
			return aggregate(errs)
		}
	}

	for _, r := range records {
		c.committed[r.Key] = true
	}
	return nil
}

func (c *Coordinator) rollback(records []Record) []error {
	var errs []error
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if err := c.engine.Unmount(r); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.ledger.Delete(r.Key); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ClearMounts undoes every mount recorded in the ledger, newest first. The session is
// reset whether or not the sweep succeeds.
func (c *Coordinator) ClearMounts() error {
	defer c.engine.Reset()

	keys, err := c.ledger.Keys()
	if err != nil {
		return aggregate([]error{err})
	}

	_, err = c.sweep(keys)
	return err
}

// Cleanup undoes the ledger entries named by keys and drops them from the ledger. A failing
// entry does not stop the sweep; all failures are returned in one AggregateError. When a key
// committed by this coordinator is among them the session is reset.
func (c *Coordinator) Cleanup(keys []string) error {
	ownKeys, err := c.sweep(keys)
	if ownKeys {
		c.engine.Reset()
	}
	return err
}

func (c *Coordinator) sweep(keys []string) (bool, error) {
	if c.preexisting(keys) {
		c.logger.Warn("preexisting mounts found, recent changes may be lost")
	}

	var (
		errs    []error
		ownKeys bool
	)
	for _, key := range keys {
		if c.committed[key] {
			ownKeys = true
		}

		record, err := c.ledger.Get(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := c.engine.Unmount(record); err != nil {
			errs = append(errs, errors.Wrapf(err, "undoing mount record %s", key))
			continue
		}

		if err := c.ledger.Delete(key); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(c.committed, key)
	}

	return ownKeys, aggregate(errs)
}

// preexisting reports whether any key was left by an earlier run rather than committed by this coordinator.
func (c *Coordinator) preexisting(keys []string) bool {
	for _, key := range keys {
		if !c.committed[key] {
			return true
		}
	}
	return false
}
