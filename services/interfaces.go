package services

// PasswordHasher abstracts password hashing so services can be tested
// without paying bcrypt cost.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}
