package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password. A cost below bcrypt's minimum
// (for example a missing AUTH_BCRYPT_COST) falls back to the default cost
// rather than relying on the library's silent correction.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
