// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Set is an immutable kid-to-key mapping. A nil *Set behaves as empty, so an
// optional override set can be passed through without nil checks.
type Set struct {
	byKid map[string]*Key
}

// NewSet builds a Set from the given keys. Duplicate kids are an error.
func NewSet(members ...*Key) (*Set, error) {
	byKid := make(map[string]*Key, len(members))
	for _, k := range members {
		if k == nil {
			continue
		}
		if _, dup := byKid[k.Kid()]; dup {
			return nil, fmt.Errorf("duplicate key ID %q", k.Kid())
		}
		byKid[k.Kid()] = k
	}
	return &Set{byKid: byKid}, nil
}

// Get returns the key for kid, or nil if absent.
func (s *Set) Get(kid string) *Key {
	if s == nil {
		return nil
	}
	return s.byKid[kid]
}

// Len returns the number of keys in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byKid)
}

// Kids returns the sorted key identifiers in the set.
func (s *Set) Kids() []string {
	if s == nil {
		return nil
	}
	kids := make([]string, 0, len(s.byKid))
	for kid := range s.byKid {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// ParseSet builds a Set from the JSON key-store format: an object mapping
// kid to a key descriptor. Entries that are not Ed25519 OKP keys are skipped;
// entries that claim the right type but carry malformed material are an
// error.
func ParseSet(data []byte) (*Set, error) {
	var entries map[string]Descriptor
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid key store: %w", err)
	}

	byKid := make(map[string]*Key, len(entries))
	for kid, d := range entries {
		if !d.Matches() {
			continue
		}
		k, err := FromDescriptor(kid, d)
		if err != nil {
			return nil, err
		}
		byKid[kid] = k
	}
	return &Set{byKid: byKid}, nil
}

// LoadSet reads and parses a JSON key store from disk.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key store %s: %w", path, err)
	}
	return ParseSet(data)
}

// Resolver resolves kids against a preloaded store with optional per-call
// overrides. The store is read-only for the resolver's lifetime; rotation
// means constructing a new Resolver over a new store.
type Resolver struct {
	store *Set
}

// NewResolver creates a Resolver over the given store. A nil store is
// treated as empty.
func NewResolver(store *Set) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the key for kid, checking the caller-supplied override set
// first and the preloaded store second. First match wins, so one
// verification call can shadow or extend the store without mutating it.
// Returns ErrKeyNotFound (wrapped) when neither source has the kid.
func (r *Resolver) Resolve(kid string, override *Set) (*Key, error) {
	if k := override.Get(kid); k != nil {
		return k, nil
	}
	if r != nil {
		if k := r.store.Get(kid); k != nil {
			return k, nil
		}
	}
	return nil, fmt.Errorf("verification key for %q: %w", kid, ErrKeyNotFound)
}
