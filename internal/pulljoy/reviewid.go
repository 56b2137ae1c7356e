package pulljoy

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// newReviewID returns a fresh unguessable review id.
// ULIDs with crypto/rand entropy carry 80 random bits, well above the
// required minimum, and sort by creation time in comment threads.
func newReviewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
