package booking

import "crypto/rand"

// Alphabet for booking references: uppercase alphanumerics minus the
// easily-confused 0/O and 1/I.
const pnrAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const pnrLength = 6

// GeneratePNR returns a random six-character booking reference. Collisions
// are not checked against existing codes; at this scale the space is large
// enough, and the bookings table's unique constraint would catch one.
func GeneratePNR() string {
	buf := make([]byte, pnrLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken
		panic(err)
	}
	for i, b := range buf {
		buf[i] = pnrAlphabet[int(b)%len(pnrAlphabet)]
	}
	return string(buf)
}
