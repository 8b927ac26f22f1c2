package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasContactInfo(t *testing.T) {
	tests := []struct {
		name        string
		contributor Contributor
		expected    bool
	}{
		{"no contact fields", Contributor{Username: "alice"}, false},
		{"profile email only", Contributor{Email: "alice@fastmail.fm"}, true},
		{"commit email only", Contributor{CommitEmail: "alice@fastmail.fm"}, true},
		{"website only", Contributor{Website: "https://alice.dev"}, true},
		{"all fields", Contributor{Email: "a@b.co", CommitEmail: "a@b.co", Website: "https://alice.dev"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.contributor.HasContactInfo())
		})
	}
}

func TestNewContributor(t *testing.T) {
	candidate := &ContributorCandidate{
		Username:          "alice",
		ProfileURL:        "https://github.com/alice",
		RepoContributions: 150,
	}
	profile := &Profile{
		Name:      "Alice Example",
		Email:     "alice@fastmail.fm",
		Website:   "https://alice.dev",
		CreatedAt: "2015-03-01T00:00:00Z",
	}

	c := NewContributor("https://github.com/acme/widget", "acme/widget", candidate, 812, profile, "alice@commits.dev")

	assert.Equal(t, "acme/widget", c.RepoName)
	assert.Equal(t, "alice", c.Username)
	assert.Equal(t, 150, c.RepoContributions)
	assert.Equal(t, 812, c.YearlyContributions)
	assert.Equal(t, "Alice Example", c.Name)
	assert.Equal(t, "alice@commits.dev", c.CommitEmail)
	assert.Equal(t, "2015-03-01T00:00:00Z", c.AccountCreated)
}
