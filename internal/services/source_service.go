package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"contribscout/internal/models"
	"contribscout/internal/utils"
)

type readmeFetcher interface {
	Readme(ctx context.Context, owner, repo string) (string, error)
}

// SourceService extracts the list of repository URLs to crawl, either from a
// published Google Sheet or from the README of a seed repository.
type SourceService struct {
	httpClient *http.Client
	github     readmeFetcher
	logger     *logrus.Logger
}

// NewSourceService creates a source service
func NewSourceService(github readmeFetcher, log *logrus.Logger) *SourceService {
	return &SourceService{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		github:     github,
		logger:     log,
	}
}

// ReposFromSheet reads repository URLs from the first column of a Google
// Sheet over a 1-based inclusive row range. Invalid rows are logged and
// skipped.
func (s *SourceService) ReposFromSheet(ctx context.Context, sheetURL string, startRow, endRow int) ([]string, error) {
	if startRow < 1 {
		return nil, &models.ValidationError{Field: "start_row", Message: "start row must be at least 1"}
	}
	if endRow < startRow {
		return nil, &models.ValidationError{Field: "end_row", Message: "end row must not precede start row"}
	}

	csvURL := sheetCSVURL(sheetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet CSV: %w", err)
	}
	s.logger.Infof("Successfully loaded sheet with %d rows", len(rows))

	startIdx := max(0, startRow-1)
	endIdx := min(len(rows), endRow)

	var urls []string
	for idx := startIdx; idx < endIdx; idx++ {
		if len(rows[idx]) == 0 {
			continue
		}
		url := strings.TrimSpace(rows[idx][0])
		if utils.IsValidRepoURL(url) {
			urls = append(urls, url)
			s.logger.Debugf("Row %d: %s", idx+1, url)
		} else {
			s.logger.Warnf("Row %d: invalid or empty URL - %s", idx+1, url)
		}
	}

	s.logger.Infof("Extracted %d valid repository URLs", len(urls))
	return urls, nil
}

var sheetGidPattern = regexp.MustCompile(`/edit[?#]gid=`)

// sheetCSVURL converts a Google Sheets edit URL to its CSV export URL
func sheetCSVURL(sheetURL string) string {
	if strings.Contains(sheetURL, "/edit") {
		if strings.Contains(sheetURL, "?gid=") || strings.Contains(sheetURL, "#gid=") {
			return sheetGidPattern.ReplaceAllString(sheetURL, "/export?format=csv&gid=")
		}
		return strings.Replace(sheetURL, "/edit", "/export?format=csv", 1)
	}
	return sheetURL + "/export?format=csv"
}

// ReposFromReadme fetches the README of a seed repository and returns every
// repository it links to, excluding links back to the seed itself.
func (s *SourceService) ReposFromReadme(ctx context.Context, seedRepoURL string) ([]string, error) {
	owner, repo, err := utils.ParseRepoURL(seedRepoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed repository URL: %w", err)
	}

	readme, err := s.github.Readme(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve README content for %s: %w", seedRepoURL, err)
	}

	return repoURLsFromReadme(readme, owner, repo), nil
}

var readmeRepoLinkPattern = regexp.MustCompile(`https?://github\.com/[\w.-]+/[\w.-]+`)

func repoURLsFromReadme(readme, owner, repo string) []string {
	current := strings.ToLower(owner + "/" + repo)
	seen := make(map[string]bool)

	var external []string
	for _, link := range readmeRepoLinkPattern.FindAllString(readme, -1) {
		linkOwner, linkRepo, err := utils.ParseRepoURL(link)
		if err != nil {
			continue
		}
		fullName := strings.ToLower(linkOwner + "/" + linkRepo)
		if fullName == current || seen[fullName] {
			continue
		}
		seen[fullName] = true
		external = append(external, link)
	}

	return external
}
