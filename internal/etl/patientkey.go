package etl

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not security
	"encoding/hex"
	"strconv"
)

// PatientIDSpace is the modulus applied to the name hash.
const PatientIDSpace = 1_000_000

// PatientID derives the collision-tolerant patient identifier: the first eight
// hex digits of MD5(name) read as an integer, modulo PatientIDSpace.
//
// Distinct names can share an id. With n distinct names the expected number of
// colliding pairs is about n²/(2·PatientIDSpace), so roughly 50 pairs at 10,000
// patients. Colliding names are treated as one patient: the first record seen
// supplies the dimension attributes.
func PatientID(name string) int64 {
	sum := md5.Sum([]byte(name)) //nolint:gosec // see above
	n, _ := strconv.ParseUint(hex.EncodeToString(sum[:4]), 16, 32)
	return int64(n % PatientIDSpace)
}

// Collision records two different names that derived the same patient id.
type Collision struct {
	ID    int64
	First string
	Other string
	Row   int
}

// PatientKeys assigns patient ids and tracks collisions across a run.
type PatientKeys struct {
	seen       map[int64]string
	collisions []Collision
	reported   map[string]struct{}
	row        int
}

// NewPatientKeys creates an empty key tracker.
func NewPatientKeys() *PatientKeys {
	return &PatientKeys{
		seen:     make(map[int64]string),
		reported: make(map[string]struct{}),
	}
}

// Observe returns the id for name, recording a collision the first time a
// second distinct name lands on an already claimed id.
func (k *PatientKeys) Observe(name string) int64 {
	k.row++
	id := PatientID(name)

	first, ok := k.seen[id]
	if !ok {
		k.seen[id] = name
		return id
	}
	if first != name {
		if _, dup := k.reported[name]; !dup {
			k.reported[name] = struct{}{}
			k.collisions = append(k.collisions, Collision{ID: id, First: first, Other: name, Row: k.row})
		}
	}
	return id
}

// Collisions returns the collisions observed so far in source order.
func (k *PatientKeys) Collisions() []Collision {
	return k.collisions
}
