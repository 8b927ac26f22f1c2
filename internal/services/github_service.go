package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"contribscout/internal/models"
	"contribscout/internal/utils"
	"contribscout/pkg/config"
)

const (
	contributorsPerPage = 100
	eventsPerPage       = 100
	maxEventPages       = 3
	commitsPerRepo      = 10
	activityWindowDays  = 365
)

// GitHubService wraps the GitHub REST and GraphQL APIs behind the remote
// reads the crawler needs. All methods are sequential and rate-limited; quota
// exhaustion triggers a long cool-down followed by a retry of the same
// request, which is the only retry policy in the system.
type GitHubService struct {
	client       *github.Client
	httpClient   *http.Client
	graphqlURL   string
	token        string
	fakePatterns []string
	requestDelay time.Duration
	cooldown     time.Duration
	logger       *logrus.Logger
}

// NewGitHubService creates a GitHub service, authenticated when a token is
// configured and anonymous otherwise.
func NewGitHubService(cfg *config.Config, log *logrus.Logger) *GitHubService {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.GitHub.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if cfg.GitHub.BaseURL != "" && cfg.GitHub.BaseURL != "https://api.github.com" {
		if base, err := url.Parse(strings.TrimSuffix(cfg.GitHub.BaseURL, "/") + "/"); err == nil {
			client.BaseURL = base
		} else {
			log.Warnf("Invalid GITHUB_BASE_URL %q, using the default", cfg.GitHub.BaseURL)
		}
	}

	return &GitHubService{
		client:       client,
		httpClient:   httpClient,
		graphqlURL:   cfg.GitHub.GraphQLURL,
		token:        cfg.GitHub.Token,
		fakePatterns: cfg.Email.FakePatterns,
		requestDelay: cfg.Delays.Request,
		cooldown:     cfg.Delays.QuotaCooldown,
		logger:       log,
	}
}

// ListContributors pages through a repository's contributor listing and
// aggregates every page. It fails soft: on error it logs and returns whatever
// was accumulated so far, possibly nothing.
func (s *GitHubService) ListContributors(ctx context.Context, owner, repo string) []*models.ContributorCandidate {
	var candidates []*models.ContributorCandidate
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: contributorsPerPage},
	}

	for {
		var contributors []*github.Contributor
		var resp *github.Response
		err := s.withQuotaRetry(ctx, "contributor listing", func() error {
			var err error
			contributors, resp, err = s.client.Repositories.ListContributors(ctx, owner, repo, opts)
			return err
		})
		if err != nil {
			s.logger.Errorf("Error fetching contributors for %s/%s: %v", owner, repo, err)
			break
		}

		for _, c := range contributors {
			candidates = append(candidates, &models.ContributorCandidate{
				Username:          c.GetLogin(),
				ProfileURL:        c.GetHTMLURL(),
				RepoContributions: c.GetContributions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		s.pause()
	}

	return candidates
}

// YearlyContributions returns a user's total contributions over the trailing
// 365-day window. With a token it asks the GraphQL contributions collection;
// on any query failure, or without a token, it falls back to the public event
// feed estimate.
func (s *GitHubService) YearlyContributions(ctx context.Context, username string) int {
	if s.token == "" {
		s.logger.Warnf("No GitHub token provided. Using event feed fallback for %s", username)
		return s.estimateFromEvents(ctx, username)
	}

	total, err := s.contributionsFromGraphQL(ctx, username)
	if err != nil {
		s.logger.Errorf("GraphQL contributions query failed for %s: %v", username, err)
		return s.estimateFromEvents(ctx, username)
	}
	return total
}

const contributionsQuery = `
query($username: String!, $from: DateTime!, $to: DateTime!) {
	user(login: $username) {
		contributionsCollection(from: $from, to: $to) {
			contributionCalendar {
				totalContributions
			}
		}
	}
}`

type contributionsResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					TotalContributions int `json:"totalContributions"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *GitHubService) contributionsFromGraphQL(ctx context.Context, username string) (int, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -activityWindowDays)

	payload, err := json.Marshal(map[string]interface{}{
		"query": contributionsQuery,
		"variables": map[string]interface{}{
			"username": username,
			"from":     from.Format(time.RFC3339),
			"to":       to.Format(time.RFC3339),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GraphQL API returned status %d", resp.StatusCode)
	}

	var decoded contributionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(decoded.Errors) > 0 {
		return 0, fmt.Errorf("GraphQL errors: %s", decoded.Errors[0].Message)
	}

	if decoded.Data.User == nil {
		s.logger.Warnf("No user data found for %s", username)
		return 0, nil
	}

	return decoded.Data.User.ContributionsCollection.ContributionCalendar.TotalContributions, nil
}

// estimateFromEvents approximates yearly commit activity from the public
// event feed: up to 3 pages of events, summing push-event commit counts
// inside the window. The feed is newest-first, so the first out-of-window
// event ends the scan. The result is a lower bound, not an exact count.
func (s *GitHubService) estimateFromEvents(ctx context.Context, username string) int {
	total := 0
	cutoff := time.Now().UTC().AddDate(0, 0, -activityWindowDays)
	opts := &github.ListOptions{PerPage: eventsPerPage}

	for page := 1; page <= maxEventPages; page++ {
		opts.Page = page

		var events []*github.Event
		err := s.withQuotaRetry(ctx, "event feed scan", func() error {
			var err error
			events, _, err = s.client.Activity.ListEventsPerformedByUser(ctx, username, false, opts)
			return err
		})
		if err != nil {
			s.logger.Debugf("Error fetching events for %s: %v", username, err)
			break
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			if event.GetType() != "PushEvent" {
				continue
			}
			if event.GetCreatedAt().Time.Before(cutoff) {
				return total
			}
			payload, err := event.ParsePayload()
			if err != nil {
				continue
			}
			if push, ok := payload.(*github.PushEvent); ok {
				total += len(push.Commits)
			}
		}

		s.pause()
	}

	return total
}

// UserProfile fetches and normalizes a user's public profile. Failures yield
// an empty profile, not an error.
func (s *GitHubService) UserProfile(ctx context.Context, username string) *models.Profile {
	var user *github.User
	err := s.withQuotaRetry(ctx, "profile fetch", func() error {
		var err error
		user, _, err = s.client.Users.Get(ctx, username)
		return err
	})
	if err != nil {
		s.logger.Errorf("Error fetching profile for %s: %v", username, err)
		return &models.Profile{}
	}

	created := ""
	if !user.GetCreatedAt().Time.IsZero() {
		created = user.GetCreatedAt().Time.Format(time.RFC3339)
	}

	return &models.Profile{
		Name:        user.GetName(),
		Email:       user.GetEmail(),
		Website:     utils.CleanBlogURL(user.GetBlog()),
		Location:    user.GetLocation(),
		Company:     user.GetCompany(),
		Twitter:     user.GetTwitterUsername(),
		Bio:         user.GetBio(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		CreatedAt:   created,
	}
}

// CommitEmail fetches up to 10 commits authored by the user in the given
// repository and inspects them oldest-first: earliest commits are the most
// likely to carry a personal rather than a corporate or noreply address. It
// returns the first address that passes the validity filter, or "".
func (s *GitHubService) CommitEmail(ctx context.Context, username, repoFullName string) string {
	owner, repo, ok := strings.Cut(repoFullName, "/")
	if !ok {
		return ""
	}

	var commits []*github.RepositoryCommit
	err := s.withQuotaRetry(ctx, "commit listing", func() error {
		var err error
		commits, _, err = s.client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
			Author:      username,
			ListOptions: github.ListOptions{PerPage: commitsPerRepo},
		})
		return err
	})
	if err != nil || len(commits) == 0 {
		return ""
	}

	for i := len(commits) - 1; i >= 0; i-- {
		var detail *github.RepositoryCommit
		sha := commits[i].GetSHA()
		err := s.withQuotaRetry(ctx, "commit detail fetch", func() error {
			var err error
			detail, _, err = s.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
			return err
		})
		if err != nil {
			continue
		}

		email := detail.GetCommit().GetAuthor().GetEmail()
		if utils.IsValidEmail(email, s.fakePatterns) {
			return email
		}
		s.pause()
	}

	return ""
}

// OwnedRepositories lists the full names of a user's repositories with the
// given sort order, capped at limit.
func (s *GitHubService) OwnedRepositories(ctx context.Context, username, sort, direction, repoType string, limit int) ([]string, error) {
	var repos []*github.Repository
	err := s.withQuotaRetry(ctx, "repository listing", func() error {
		var err error
		repos, _, err = s.client.Repositories.List(ctx, username, &github.RepositoryListOptions{
			Sort:        sort,
			Direction:   direction,
			Type:        repoType,
			ListOptions: github.ListOptions{PerPage: limit},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", username, err)
	}

	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.GetFullName())
	}
	return names, nil
}

// Readme returns a repository's decoded README content
func (s *GitHubService) Readme(ctx context.Context, owner, repo string) (string, error) {
	var content *github.RepositoryContent
	err := s.withQuotaRetry(ctx, "README fetch", func() error {
		var err error
		content, _, err = s.client.Repositories.GetReadme(ctx, owner, repo, nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch README for %s/%s: %w", owner, repo, err)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode README for %s/%s: %w", owner, repo, err)
	}
	return text, nil
}

// StarCount returns a repository's stargazer count, with ok=false when the
// repository cannot be fetched.
func (s *GitHubService) StarCount(ctx context.Context, owner, repo string) (int, bool) {
	var repository *github.Repository
	err := s.withQuotaRetry(ctx, "star count fetch", func() error {
		var err error
		repository, _, err = s.client.Repositories.Get(ctx, owner, repo)
		return err
	})
	if err != nil {
		s.logger.Warnf("Error fetching star count for %s/%s: %v", owner, repo, err)
		return 0, false
	}
	return repository.GetStargazersCount(), true
}

// withQuotaRetry runs fn, retrying indefinitely after a long cool-down as
// long as the failure is quota exhaustion. Any other error is returned to the
// caller unchanged.
func (s *GitHubService) withQuotaRetry(ctx context.Context, op string, fn func() error) error {
	for {
		err := fn()
		if err == nil || !isQuotaExceeded(err) {
			return err
		}

		s.logger.Warnf("Rate limit exceeded during %s. Waiting %s before retrying", op, s.cooldown)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cooldown):
		}
	}
}

// isQuotaExceeded distinguishes forge-imposed quota exhaustion from generic
// request failures.
func isQuotaExceeded(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusForbidden {
		return strings.Contains(ghErr.Message, "API rate limit exceeded")
	}
	return false
}

func (s *GitHubService) pause() {
	time.Sleep(s.requestDelay)
}
