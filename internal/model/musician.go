package model

// Musician is the application profile wrapping exactly one Account.
//
// Account is always loaded alongside the musician (the repository joins it),
// because no musician can exist without its account.
//
// There is deliberately no "is current user" field here: that flag depends on
// who is asking and is computed per request into service.MusicianView.
type Musician struct {
	ID        int64
	AccountID int64
	Bio       string
	Account   Account
}
