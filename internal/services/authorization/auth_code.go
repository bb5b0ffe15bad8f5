package authorization

import "fmt"

// authCodePrefix is prepended to every generated auth code
const authCodePrefix = "AUTH"

// authCodeWidth is the zero-padded width of the numeric part
const authCodeWidth = 6

// AuthCode derives the auth code for a transaction. Codes are deterministic
// in the transaction id, which makes them unique per call: ids are never
// reused. Format: AUTH followed by the zero-padded id.
func AuthCode(transactionID int64) string {
	return fmt.Sprintf("%s%0*d", authCodePrefix, authCodeWidth, transactionID)
}
