package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a configurable cost. The salt is generated per
// call and embedded in the output, so hashing the same password twice yields
// different strings that both verify.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches the stored hash. A mismatch is not an
// error condition; the comparison runs in constant time inside bcrypt.
func (h *Hasher) Verify(plain string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
