package ports

// PasswordHasher abstrae el hash de contraseñas (bcrypt en producción).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare devuelve error si plain no corresponde a hash.
	Compare(hash, plain string) error
}
