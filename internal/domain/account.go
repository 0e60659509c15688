package domain

import "time"

// Review statuses used by the content backend.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
)

// Review is a product review stored in the content backend.
type Review struct {
	ID        string     `json:"id,omitempty"`
	Product   string     `json:"product"`
	User      string     `json:"user,omitempty"`
	Title     string     `json:"title,omitempty"`
	Rating    int        `json:"rating"`
	Review    string     `json:"review"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Address is a delivery address picked on the map and saved for a user.
type Address struct {
	ID           string  `json:"id,omitempty"`
	User         string  `json:"user,omitempty"`
	Label        string  `json:"label"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone,omitempty"`
	FlatHouse    string  `json:"flatHouse,omitempty"`
	Floor        string  `json:"floor,omitempty"`
	AreaLocality string  `json:"areaLocality,omitempty"`
	Landmark     string  `json:"landmark,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// UserProfile is the signed-in user's profile cached in the session under "user".
type UserProfile struct {
	UID      string `json:"uid"`
	Phone    string `json:"phone"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
	Address  string `json:"address,omitempty"`
}

// AuthSession is what the identity provider returns after a successful sign-in or refresh.
type AuthSession struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
	Profile      UserProfile
}

// Location is a geocoding result for the address picker.
type Location struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}
