package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contribscout/internal/models"
	"contribscout/internal/repositories"
	"contribscout/internal/services"
	"contribscout/pkg/config"
	"contribscout/pkg/logger"
)

var rootFlags struct {
	sheetURL               string
	startRow               int
	endRow                 int
	seedRepo               string
	minStars               int
	minRepoContributions   int
	minYearlyContributions int
	output                 string
	scanDir                string
}

var rootCmd = &cobra.Command{
	Use:   "contribscout",
	Short: "Discover and enrich qualifying contributors across GitHub repositories",
	Long: `contribscout crawls a list of GitHub repositories, qualifies their
contributors against repository and yearly activity thresholds, enriches each
qualifying contributor with profile and commit-email data, and merges the
results into an Excel workbook without reintroducing previously seen users.

The repository list comes from either a published Google Sheet (first column,
row-range selectable) or the README of a seed repository:

  contribscout --sheet-url=https://docs.google.com/spreadsheets/d/<id>/edit --start-row=1 --end-row=100
  contribscout --seed-repo=https://github.com/fffaraz/awesome-cpp --min-stars=1000

The GitHub token is read from the GITHUB_TOKEN environment variable (or a
.env file). Without a token the yearly activity check falls back to the
public event feed, which undercounts.`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&rootFlags.sheetURL, "sheet-url", "", "Google Sheet URL listing repository URLs in its first column")
	f.IntVar(&rootFlags.startRow, "start-row", 1, "First sheet row to read (1-based, inclusive)")
	f.IntVar(&rootFlags.endRow, "end-row", 100, "Last sheet row to read (inclusive)")
	f.StringVar(&rootFlags.seedRepo, "seed-repo", "", "Repository whose README is scanned for repository links")
	f.IntVar(&rootFlags.minStars, "min-stars", -1, "Skip repositories below this star count (-1: use configured default)")
	f.IntVar(&rootFlags.minRepoContributions, "min-repo-contributions", -1, "Repository contribution threshold (-1: use configured default)")
	f.IntVar(&rootFlags.minYearlyContributions, "min-yearly-contributions", -1, "Yearly contribution threshold (-1: use configured default)")
	f.StringVar(&rootFlags.output, "output", "", "Target workbook path (default: configured OUTPUT_FILE)")
	f.StringVar(&rootFlags.scanDir, "scan-dir", "", "Directory of existing workbooks to check for duplicates")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if rootFlags.sheetURL == "" && rootFlags.seedRepo == "" {
		return fmt.Errorf("either --sheet-url or --seed-repo is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cfg)

	log, _, err := logger.New(cfg.Output.LogsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	log.Info("Configuration:")
	log.Infof("- Row range: %d to %d", rootFlags.startRow, rootFlags.endRow)
	log.Infof("- Min repo contributions: %d", cfg.Criteria.MinRepoContributions)
	log.Infof("- Min yearly contributions: %d", cfg.Criteria.MinYearlyContributions)
	tokenState := "Not provided (event feed fallback will be used)"
	if cfg.GitHub.Token != "" {
		tokenState = "Provided"
	}
	log.Infof("- GitHub token: %s", tokenState)

	ctx := context.Background()

	githubService := services.NewGitHubService(cfg, log)
	pinnedService := services.NewPinnedRepoService(cfg, log)
	emailService := services.NewEmailDiscoveryService(githubService, pinnedService, log)
	crawlerService := services.NewCrawlerService(githubService, emailService, cfg, log)
	sourceService := services.NewSourceService(githubService, log)
	store := repositories.NewWorkbookRepository(cfg.Output.Filename, cfg.Output.ScanDir, log)

	banner(log, "EXTRACTING REPOSITORY URLS")
	repoURLs, err := extractRepoURLs(ctx, sourceService, log)
	if err != nil {
		return err
	}
	log.Infof("Extracted %d repository URLs", len(repoURLs))
	if len(repoURLs) == 0 {
		return fmt.Errorf("no valid repository URLs found")
	}
	log.Infof("URLs: %s", strings.Join(repoURLs, ", "))

	banner(log, "PROCESSING REPOSITORIES")
	contributors := crawlerService.ProcessRepositories(ctx, repoURLs)

	banner(log, "SAVING RESULTS")
	result, err := store.Save(contributors)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	summarize(log, repoURLs, contributors, result)
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if rootFlags.minStars >= 0 {
		cfg.Criteria.MinStars = rootFlags.minStars
	}
	if rootFlags.minRepoContributions >= 0 {
		cfg.Criteria.MinRepoContributions = rootFlags.minRepoContributions
	}
	if rootFlags.minYearlyContributions >= 0 {
		cfg.Criteria.MinYearlyContributions = rootFlags.minYearlyContributions
	}
	if rootFlags.output != "" {
		cfg.Output.Filename = rootFlags.output
	}
	if rootFlags.scanDir != "" {
		cfg.Output.ScanDir = rootFlags.scanDir
	}
}

func extractRepoURLs(ctx context.Context, source *services.SourceService, log *logrus.Logger) ([]string, error) {
	if rootFlags.seedRepo != "" {
		log.Infof("Using seed repository: %s", rootFlags.seedRepo)
		return source.ReposFromReadme(ctx, rootFlags.seedRepo)
	}
	log.Infof("Using Google Sheet URL: %s", rootFlags.sheetURL)
	return source.ReposFromSheet(ctx, rootFlags.sheetURL, rootFlags.startRow, rootFlags.endRow)
}

func summarize(log *logrus.Logger, repoURLs []string, contributors []*models.Contributor, result *models.MergeResult) {
	if len(contributors) == 0 {
		log.Warn("No qualified contributors found")
		return
	}

	unique := make(map[string]bool)
	counts := make(map[string]int)
	for _, c := range contributors {
		unique[c.Username] = true
		counts[c.RepoName]++
	}

	log.Info("SUMMARY:")
	log.Infof("- Repositories processed: %d", len(repoURLs))
	log.Infof("- Total qualified contributors: %d", len(contributors))
	log.Infof("- Unique contributors: %d", len(unique))
	if result != nil {
		log.Infof("- Run ID: %s", result.RunID)
		log.Infof("- New contributors persisted: %d", result.NewContributors)
		log.Infof("- Duplicates rejected: %d", result.ExternalDuplicates)
	}

	repoNames := make([]string, 0, len(counts))
	for name := range counts {
		repoNames = append(repoNames, name)
	}
	sort.Slice(repoNames, func(i, j int) bool {
		if counts[repoNames[i]] != counts[repoNames[j]] {
			return counts[repoNames[i]] > counts[repoNames[j]]
		}
		return repoNames[i] < repoNames[j]
	})

	log.Info("Contributors by repository:")
	for _, name := range repoNames {
		log.Infof("  %s: %d contributors", name, counts[name])
	}
}

func banner(log *logrus.Logger, title string) {
	line := strings.Repeat("=", 60)
	log.Info(line)
	log.Info(title)
	log.Info(line)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
