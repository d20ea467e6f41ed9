package model

import "time"

// User is a registered member.
type User struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	ProfileImageURL string      `json:"profileImageUrl,omitempty"`
	Bio             string      `json:"bio,omitempty"`
	Location        string      `json:"location,omitempty"`
	Preferences     Preferences `json:"preferences"`
	IsVerified      bool        `json:"isVerified"`
	IsAdmin         bool        `json:"isAdmin"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	// PasswordHash is a bcrypt hash. It never leaves the process.
	PasswordHash string `json:"-"`
}

type Preferences struct {
	FavoriteModels []string      `json:"favoriteModels"`
	Notifications  Notifications `json:"notificationSettings"`
	// LocationRadius is in miles.
	LocationRadius int `json:"locationRadius"`
}

type Notifications struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

// DefaultPreferences are assigned to newly registered users.
func DefaultPreferences() Preferences {
	return Preferences{
		FavoriteModels: []string{},
		Notifications:  Notifications{Email: true, Push: true},
		LocationRadius: 50,
	}
}

// UserPatch carries a partial profile update. Nil fields are left alone.
type UserPatch struct {
	Email           *string      `json:"email,omitempty"`
	FirstName       *string      `json:"firstName,omitempty"`
	LastName        *string      `json:"lastName,omitempty"`
	ProfileImageURL *string      `json:"profileImageUrl,omitempty"`
	Bio             *string      `json:"bio,omitempty"`
	Location        *string      `json:"location,omitempty"`
	Preferences     *Preferences `json:"preferences,omitempty"`
}

// Apply returns a copy of u with the patch merged in.
func (u User) Apply(p UserPatch) User {
	out := u.Clone()
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.FirstName != nil {
		out.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		out.LastName = *p.LastName
	}
	if p.ProfileImageURL != nil {
		out.ProfileImageURL = *p.ProfileImageURL
	}
	if p.Bio != nil {
		out.Bio = *p.Bio
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Preferences != nil {
		out.Preferences = p.Preferences.clone()
	}
	return out
}

func (u User) Clone() User {
	out := u
	out.Preferences = u.Preferences.clone()
	return out
}

// Initials returns the upper-cased first letters of first and last name.
func (u User) Initials() string {
	return initials(u.FirstName, u.LastName)
}

func (p Preferences) clone() Preferences {
	out := p
	out.FavoriteModels = cloneStrings(p.FavoriteModels)
	return out
}
