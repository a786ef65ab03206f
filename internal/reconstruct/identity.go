package reconstruct

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"custodyetl/pkg/contracts/domain"
)

// Natural-key timestamp formats. Identifiers are join keys across runs, so
// these are part of the on-disk contract and must not change.
const (
	idTimeLayout = "2006-01-02 15:04:05"
	idDateLayout = "2006-01-02"
)

// hashID derives a stable identifier from natural-key components: the sha256
// hex digest of the components joined by "_". Any empty component makes the
// whole identifier empty rather than the hash of a partial key.
func hashID(parts ...string) string {
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}

func idTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(idTimeLayout)
}

func idDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(idDateLayout)
}

// AssignDetentionIDs derives the detention identifier of every event from
// (person, facility, book-in timestamp).
func AssignDetentionIDs(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]
		e.DetentionID = hashID(e.PersonID, e.FacilityCode, idTime(e.BookInDateTime))
	}
}

// AssignStayIDs derives the stay identifier of every event from (person,
// stay start date). The date rather than the timestamp is hashed: no two
// stays for a person may begin on the same day.
func AssignStayIDs(events []domain.DetentionEvent) {
	for i := range events {
		e := &events[i]
		e.StayID = hashID(e.PersonID, idDate(e.StayBookInDate))
	}
}
