package domain

type ChatID int

// Chat is a logical conversation with two or more members. Membership is
// resolved on demand for every broadcast and never cached by the relay.
type Chat struct {
	ID             ChatID
	Name           string
	ParticipantIDs []int
}
