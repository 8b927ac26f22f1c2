package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"contribscout/internal/models"
	"contribscout/internal/utils"
	"contribscout/pkg/config"
)

type contributorAPI interface {
	ListContributors(ctx context.Context, owner, repo string) []*models.ContributorCandidate
	YearlyContributions(ctx context.Context, username string) int
	UserProfile(ctx context.Context, username string) *models.Profile
	StarCount(ctx context.Context, owner, repo string) (int, bool)
}

type emailDiscoverer interface {
	Discover(ctx context.Context, username string) string
}

// CrawlerService runs the qualification pipeline: per repository, candidates
// move through listed -> filtered by repo contributions -> filtered by yearly
// contributions -> enriched. Failing a stage removes a candidate permanently
// for the run.
type CrawlerService struct {
	github   contributorAPI
	emails   emailDiscoverer
	criteria config.CriteriaConfig
	delays   config.DelayConfig
	logger   *logrus.Logger
}

// NewCrawlerService creates a crawler service
func NewCrawlerService(github contributorAPI, emails emailDiscoverer, cfg *config.Config, log *logrus.Logger) *CrawlerService {
	return &CrawlerService{
		github:   github,
		emails:   emails,
		criteria: cfg.Criteria,
		delays:   cfg.Delays,
		logger:   log,
	}
}

// ProcessRepositories runs the pipeline over every repository URL in order
// and returns the combined qualified contributors. The star gate, when
// configured, skips whole repositories before any contributor is examined;
// repositories whose star count cannot be determined are skipped too.
func (s *CrawlerService) ProcessRepositories(ctx context.Context, repoURLs []string) []*models.Contributor {
	var all []*models.Contributor

	for i, repoURL := range repoURLs {
		s.logger.Infof("Processing repository %d/%d: %s", i+1, len(repoURLs), repoURL)

		if s.criteria.MinStars > 0 {
			owner, repo, err := utils.ParseRepoURL(repoURL)
			if err != nil {
				s.logger.Errorf("Invalid repo URL: %s", repoURL)
				continue
			}
			stars, ok := s.github.StarCount(ctx, owner, repo)
			if !ok {
				continue
			}
			if stars < s.criteria.MinStars {
				s.logger.Infof("Skipping %s due to insufficient stars (< %d)", repoURL, s.criteria.MinStars)
				continue
			}
		}

		all = append(all, s.processRepository(ctx, repoURL)...)
		s.logger.Infof("Progress: %d/%d repositories processed", i+1, len(repoURLs))

		time.Sleep(s.delays.Repository)
	}

	return all
}

func (s *CrawlerService) processRepository(ctx context.Context, repoURL string) []*models.Contributor {
	owner, repo, err := utils.ParseRepoURL(repoURL)
	if err != nil {
		s.logger.Errorf("Invalid repo URL: %s", repoURL)
		return nil
	}
	repoName := owner + "/" + repo

	s.logger.Infof("Processing repository: %s", repoName)

	candidates := s.github.ListContributors(ctx, owner, repo)
	s.logger.Infof("Found %d total contributors", len(candidates))

	var shortlisted []*models.ContributorCandidate
	for _, candidate := range candidates {
		if candidate.RepoContributions >= s.criteria.MinRepoContributions {
			shortlisted = append(shortlisted, candidate)
		}
	}
	s.logger.Infof("Contributors with >=%d contributions: %d", s.criteria.MinRepoContributions, len(shortlisted))

	var qualified []*models.Contributor
	for _, candidate := range shortlisted {
		yearly := s.github.YearlyContributions(ctx, candidate.Username)
		s.logger.Infof("Checking %s: %d repo contributions, %d yearly contributions",
			candidate.Username, candidate.RepoContributions, yearly)

		if yearly >= s.criteria.MinYearlyContributions {
			profile := s.github.UserProfile(ctx, candidate.Username)
			commitEmail := s.emails.Discover(ctx, candidate.Username)
			qualified = append(qualified, models.NewContributor(repoURL, repoName, candidate, yearly, profile, commitEmail))
		}

		time.Sleep(s.delays.Contributor)
	}

	s.logger.Infof("Found %d qualified contributors for %s", len(qualified), repoName)
	return qualified
}
