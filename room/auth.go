package room

import "golang.org/x/crypto/bcrypt"

// Authorize decides whether a join attempt is permitted. A room without a
// password admits everyone, the creator always gets in, everyone else has to
// supply the correct plaintext password.
//
// The bcrypt comparison is the only potentially slow step of a join and it
// happens strictly before any room state is touched.
func Authorize(creatorId, passwordHash, userId, password string) bool {
	if passwordHash == "" {
		return true
	}
	if userId == creatorId {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}
