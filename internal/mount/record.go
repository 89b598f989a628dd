package mount

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Record is the undo unit of a mount: Dest was overwritten and Replaced says where its
// original content went.
type Record struct {
	// Key is the ledger entry the record is stored under. It is not part of the stored form.
	Key      string   `json:"-"`
	Dest     string   `json:"dest"`
	Replaced Replaced `json:"replaced"`
}

// Replaced is either None, when the destination did not exist before the mount, or
// StashedAt(key) when its original content was moved into the stash under key.
// The zero value is None.
type Replaced struct {
	key     string
	stashed bool
}

func None() Replaced {
	return Replaced{}
}

func StashedAt(key string) Replaced {
	return Replaced{key: key, stashed: true}
}

// Stashed returns the stash key and true, or "" and false for None.
func (r Replaced) Stashed() (string, bool) {
	return r.key, r.stashed
}

func (r Replaced) IsNone() bool {
	return !r.stashed
}

func (r Replaced) Equal(o Replaced) bool {
	return r == o
}

func (r Replaced) String() string {
	if !r.stashed {
		return "none"
	}
	return r.key
}

// MarshalJSON encodes None as false and StashedAt(key) as the key string.
func (r Replaced) MarshalJSON() ([]byte, error) {
	if !r.stashed {
		return []byte("false"), nil
	}
	return json.Marshal(r.key)
}

func (r *Replaced) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch val := v.(type) {
	case bool:
		if val {
			return errors.New("replaced must be false or a stash key, got true")
		}
		*r = None()
	case string:
		if val == "" {
			return errors.New("replaced stash key must not be empty")
		}
		*r = StashedAt(val)
	default:
		return errors.Errorf("replaced must be false or a stash key, got %s", string(b))
	}
	return nil
}
