package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"contribscout/pkg/config"
)

const maxPinnedRepos = 6

// PinnedRepoService scrapes the repositories a user has chosen to feature on
// their profile page. GitHub exposes no API for this, so it is a best-effort
// capability: selector drift or an empty profile legitimately yields an empty
// list.
type PinnedRepoService struct {
	httpClient *http.Client
	baseURL    string
	cooldown   time.Duration
	logger     *logrus.Logger
}

// NewPinnedRepoService creates a pinned repository scraper
func NewPinnedRepoService(cfg *config.Config, log *logrus.Logger) *PinnedRepoService {
	return &PinnedRepoService{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://github.com",
		cooldown:   cfg.Delays.QuotaCooldown,
		logger:     log,
	}
}

// PinnedRepositories returns the full names of the user's pinned
// repositories, at most six, in profile order.
func (s *PinnedRepoService) PinnedRepositories(ctx context.Context, username string) ([]string, error) {
	doc, err := s.fetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	var repos []string
	seen := make(map[string]bool)
	collect := func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		fullName, ok := repoFromProfileLink(href)
		if !ok || seen[fullName] || len(repos) >= maxPinnedRepos {
			return
		}
		seen[fullName] = true
		repos = append(repos, fullName)
	}

	doc.Find("div.pinned-item-list-item a.text-bold").Each(collect)
	if len(repos) == 0 {
		doc.Find(".js-pinned-items-reorder-container .Box-row a").Each(collect)
	}

	return repos, nil
}

func (s *PinnedRepoService) fetchProfile(ctx context.Context, username string) (*goquery.Document, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, username)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; contribscout)")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch profile for %s: %w", username, err)
		}

		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			s.logger.Warnf("Rate limit exceeded while scraping profile of %s. Waiting %s before retrying", username, s.cooldown)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cooldown):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("profile page for %s returned status %d", username, resp.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse profile page for %s: %w", username, err)
		}
		return doc, nil
	}
}

// repoFromProfileLink turns an in-page repository href into an owner/repo
// full name, rejecting links into repository subpaths.
func repoFromProfileLink(href string) (string, bool) {
	if !strings.HasPrefix(href, "/") {
		return "", false
	}
	for _, skip := range []string{"/tree/", "/blob/", "/issues", "/pulls", "/wiki", "/settings"} {
		if strings.Contains(href, skip) {
			return "", false
		}
	}

	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + parts[1], true
}
