package types

// User is the identity supplied by the authentication collaborator.
// The chat core never stores users itself; it only carries their
// id and display name around.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
