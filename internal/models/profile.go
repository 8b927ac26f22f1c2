package models

// Profile holds the public profile fields of a GitHub user. A zero Profile
// is a valid "nothing known" value; remote failures produce one instead of
// an error.
type Profile struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Website     string `json:"website"`
	Location    string `json:"location"`
	Company     string `json:"company"`
	Twitter     string `json:"twitter"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at"`
}
