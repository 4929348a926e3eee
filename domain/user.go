package domain

// User is the identity attached to a connection after the handshake.
type User struct {
	ID       int
	Username string
}
