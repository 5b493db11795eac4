package user

// PasswordHasher is applied to every accepted row before it is written.
// Hashing policy is owned by whoever wires the worker.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PlaintextPasswords stores passwords exactly as they appear in the upload.
type PlaintextPasswords struct{}

func (PlaintextPasswords) Hash(password string) (string, error) {
	return password, nil
}
