package config

// Backend persists non-secret settings as strings under their dotted key.
// Typed values are parsed by the key table, so backends never interpret them.
type Backend interface {
	Lookup(key string) (value string, ok bool, err error)
	Store(key, value string) error
}

// SecretStore holds secret settings under an account name inside the
// plugvox service.
type SecretStore interface {
	Secret(account string) (string, error)
	StoreSecret(account, value string) error
}
