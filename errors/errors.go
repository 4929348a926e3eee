package errors

import "fmt"

var (
	// ErrNotConnected is returned when a send or handshake is attempted on
	// a session whose socket is not open.
	ErrNotConnected = fmt.Errorf("session is not connected")
	// ErrMalformedLine marks a wire line that could not be decoded. It is
	// fatal to the connection that produced it and to nothing else.
	ErrMalformedLine      = fmt.Errorf("malformed wire line")
	ErrHandshakeRejected  = fmt.Errorf("handshake rejected")
	ErrMembershipLookup   = fmt.Errorf("chat membership lookup failed")
	ErrLineBreakInContent = fmt.Errorf("message content contains a line terminator")

	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnknownChat        = fmt.Errorf("unknown chat")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
