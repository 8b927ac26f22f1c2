package models

// ContributorCandidate is a raw entry from a repository contributor listing.
// It only lives long enough to be filtered; qualifying candidates are turned
// into Contributor records.
type ContributorCandidate struct {
	Username          string `json:"username"`
	ProfileURL        string `json:"profile_url"`
	RepoContributions int    `json:"repo_contributions"`
}

// Contributor is the persisted unit: a qualified contributor enriched with
// profile and contact data. Username is the sole deduplication key; records
// are never mutated after creation.
type Contributor struct {
	RepoURL             string `json:"repo_url"`
	RepoName            string `json:"repo_name"`
	Username            string `json:"username"`
	RepoContributions   int    `json:"repo_contributions"`
	YearlyContributions int    `json:"yearly_contributions"`
	ProfileURL          string `json:"profile_url"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	CommitEmail         string `json:"commit_email"`
	Website             string `json:"website"`
	Location            string `json:"location"`
	Company             string `json:"company"`
	Twitter             string `json:"twitter"`
	Bio                 string `json:"bio"`
	PublicRepos         int    `json:"public_repos"`
	Followers           int    `json:"followers"`
	Following           int    `json:"following"`
	AccountCreated      string `json:"account_created"`
}

// NewContributor assembles a persisted record from a qualifying candidate,
// its yearly activity, its profile and the discovered commit email.
func NewContributor(repoURL, repoName string, candidate *ContributorCandidate, yearlyContributions int, profile *Profile, commitEmail string) *Contributor {
	return &Contributor{
		RepoURL:             repoURL,
		RepoName:            repoName,
		Username:            candidate.Username,
		RepoContributions:   candidate.RepoContributions,
		YearlyContributions: yearlyContributions,
		ProfileURL:          candidate.ProfileURL,
		Name:                profile.Name,
		Email:               profile.Email,
		CommitEmail:         commitEmail,
		Website:             profile.Website,
		Location:            profile.Location,
		Company:             profile.Company,
		Twitter:             profile.Twitter,
		Bio:                 profile.Bio,
		PublicRepos:         profile.PublicRepos,
		Followers:           profile.Followers,
		Following:           profile.Following,
		AccountCreated:      profile.CreatedAt,
	}
}

// HasContactInfo reports whether the record carries at least one way to reach
// the contributor.
func (c *Contributor) HasContactInfo() bool {
	return c.Email != "" || c.CommitEmail != "" || c.Website != ""
}
