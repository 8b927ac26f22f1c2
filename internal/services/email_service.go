package services

import (
	"context"

	"github.com/sirupsen/logrus"
)

const (
	oldestRepoFetch = 30
	oldestRepoScan  = 10
	recentRepoFetch = 15
	recentRepoScan  = 5
)

type commitEmailClient interface {
	OwnedRepositories(ctx context.Context, username, sort, direction, repoType string, limit int) ([]string, error)
	CommitEmail(ctx context.Context, username, repoFullName string) string
}

type pinnedRepoLister interface {
	PinnedRepositories(ctx context.Context, username string) ([]string, error)
}

// EmailDiscoveryService produces the single best-guess real email for a user
// given only a username, by trying an ordered list of strategies until one
// yields a non-empty result.
type EmailDiscoveryService struct {
	github commitEmailClient
	pinned pinnedRepoLister
	logger *logrus.Logger
}

// NewEmailDiscoveryService creates an email discovery service
func NewEmailDiscoveryService(github commitEmailClient, pinned pinnedRepoLister, log *logrus.Logger) *EmailDiscoveryService {
	return &EmailDiscoveryService{
		github: github,
		pinned: pinned,
		logger: log,
	}
}

type emailStrategy struct {
	name string
	run  func(ctx context.Context, username string) string
}

func (s *EmailDiscoveryService) strategies() []emailStrategy {
	return []emailStrategy{
		{name: "oldest own repositories", run: s.fromOldestOwnRepos},
		{name: "recently updated own repositories", run: s.fromRecentOwnRepos},
		{name: "pinned repositories", run: s.fromPinnedRepos},
	}
}

// Discover runs the strategy chain for a username. An empty result means no
// email could be found; it is not an error.
func (s *EmailDiscoveryService) Discover(ctx context.Context, username string) string {
	for _, strategy := range s.strategies() {
		if email := strategy.run(ctx, username); email != "" {
			s.logger.Infof("Found commit email for %s via %s: %s", username, strategy.name, email)
			return email
		}
	}

	s.logger.Warnf("Couldn't find commit email for %s", username)
	return ""
}

// fromOldestOwnRepos scans the user's own repositories oldest-created first.
// Older repositories predate most corporate email policies, so they are the
// best place to look.
func (s *EmailDiscoveryService) fromOldestOwnRepos(ctx context.Context, username string) string {
	repos, err := s.github.OwnedRepositories(ctx, username, "created", "asc", "all", oldestRepoFetch)
	if err != nil {
		s.logger.Warnf("Could not fetch repositories for %s: %v", username, err)
		return ""
	}

	return s.scanRepos(ctx, username, repos, oldestRepoScan)
}

// fromRecentOwnRepos scans up to 5 of the user's most recently updated
// repositories.
func (s *EmailDiscoveryService) fromRecentOwnRepos(ctx context.Context, username string) string {
	repos, err := s.github.OwnedRepositories(ctx, username, "updated", "desc", "owner", recentRepoFetch)
	if err != nil {
		s.logger.Warnf("Could not fetch recent repositories for %s: %v", username, err)
		return ""
	}

	return s.scanRepos(ctx, username, repos, recentRepoScan)
}

// fromPinnedRepos scans the repositories featured on the user's profile page
func (s *EmailDiscoveryService) fromPinnedRepos(ctx context.Context, username string) string {
	repos, err := s.pinned.PinnedRepositories(ctx, username)
	if err != nil {
		s.logger.Warnf("Could not fetch pinned repositories for %s: %v", username, err)
		return ""
	}

	return s.scanRepos(ctx, username, repos, len(repos))
}

func (s *EmailDiscoveryService) scanRepos(ctx context.Context, username string, repos []string, limit int) string {
	total := min(limit, len(repos))
	for i, repo := range repos[:total] {
		s.logger.Debugf("Checking repo %d/%d for %s: %s", i+1, total, username, repo)
		if email := s.github.CommitEmail(ctx, username, repo); email != "" {
			return email
		}
	}
	return ""
}
