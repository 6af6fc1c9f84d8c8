package models

// User is an identity-provider account. It is kept in the session, not in the database.
type User struct {
	ID    string `json:"id"` // provider subject id
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) SignedIn() bool {
	return u != nil && u.ID != ""
}
