package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL parses a GitHub repository URL into owner and name components.
// Only URLs of the exact form https://github.com/<owner>/<repo> are accepted.
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("invalid GitHub repository URL: %s", repoURL)
	}
	if u.Host != "github.com" {
		return "", "", fmt.Errorf("invalid GitHub repository URL: %s", repoURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository URL: %s", repoURL)
	}

	return parts[0], parts[1], nil
}

// IsValidRepoURL reports whether the URL points at a GitHub repository
func IsValidRepoURL(repoURL string) bool {
	_, _, err := ParseRepoURL(repoURL)
	return err == nil
}

// CleanBlogURL rewrites a schemeless profile website to an absolute https URL
func CleanBlogURL(blogURL string) string {
	if blogURL != "" && !strings.HasPrefix(blogURL, "http") {
		return "https://" + blogURL
	}
	return blogURL
}
