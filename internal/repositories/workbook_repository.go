package repositories

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"contribscout/internal/models"
)

const (
	sheetAllContributors = "All Contributors"
	sheetRepoSummary     = "Repository Summary"
	sheetContactInfo     = "Contact Information"
	sheetProgressLog     = "Progress Log"
	sheetDuplicates      = "Duplicates Filtered"
)

// ContributorStore is an append-only keyed store of contributor records. A
// username already in the store is never reintroduced by a merge.
type ContributorStore interface {
	Load() []*models.Contributor
	Merge(batch []*models.Contributor) *models.MergeResult
	Flush() error
}

// WorkbookRepository persists contributor records to a multi-sheet Excel
// workbook, deduplicating new batches against the target file and optionally
// against every other workbook in a directory. The multi-sheet layout is
// purely a serialization concern; the merge operates on plain records.
type WorkbookRepository struct {
	filename string
	scanDir  string
	logger   *logrus.Logger

	base     []*models.Contributor
	combined []*models.Contributor
	result   *models.MergeResult
}

// NewWorkbookRepository creates a workbook repository targeting filename.
// When scanDir is non-empty, every other workbook in it contributes to the
// duplicate exclusion set.
func NewWorkbookRepository(filename, scanDir string, log *logrus.Logger) *WorkbookRepository {
	return &WorkbookRepository{
		filename: filename,
		scanDir:  scanDir,
		logger:   log,
	}
}

// Save merges a batch into the store and persists it. The returned
// MergeResult describes what was added and what was rejected. Computed data
// is never discarded: a workbook write failure falls back to a CSV export.
func (r *WorkbookRepository) Save(batch []*models.Contributor) (*models.MergeResult, error) {
	if len(batch) == 0 {
		r.logger.Warn("No contributors to save")
		return nil, nil
	}

	r.Load()
	result := r.Merge(batch)
	if err := r.Flush(); err != nil {
		return result, err
	}
	return result, nil
}

// Load reads the current rows of the target workbook. A missing or unreadable
// target yields an empty base: the store starts fresh rather than failing.
func (r *WorkbookRepository) Load() []*models.Contributor {
	if _, err := os.Stat(r.filename); err != nil {
		r.logger.Infof("Creating new file %s", r.filename)
		r.base = nil
		return nil
	}

	rows, err := readContributorRows(r.filename)
	if err != nil {
		r.logger.Errorf("Error reading existing file %s: %v. Creating new file instead", r.filename, err)
		r.base = nil
		return nil
	}

	r.logger.Infof("Found %d existing contributors in %s", len(rows), r.filename)
	r.base = rows
	return rows
}

// Merge deduplicates the batch internally by username, removes every record
// whose username is already known (target file or sibling workbooks), and
// appends the survivors to the loaded base. Existing rows always supersede
// new rows of the same username.
func (r *WorkbookRepository) Merge(batch []*models.Contributor) *models.MergeResult {
	result := models.NewMergeResult()

	deduped, removedInternal := dedupeByUsername(batch)
	if removedInternal > 0 {
		r.logger.Infof("Removed %d duplicate usernames from new data", removedInternal)
	}
	result.InternalDuplicates = removedInternal

	external, filesScanned := r.usernamesInDirectory()
	result.FilesScanned = filesScanned
	result.DirectoryScanned = r.scanDir

	inTarget := make(map[string]bool, len(r.base))
	for _, row := range r.base {
		inTarget[row.Username] = true
	}

	var kept []*models.Contributor
	for _, row := range deduped {
		foundIn := ""
		switch {
		case inTarget[row.Username]:
			foundIn = "target file"
		case external[row.Username]:
			foundIn = "sibling workbook"
		}
		if foundIn != "" {
			result.Rejected = append(result.Rejected, &models.RejectedDuplicate{
				Username:   row.Username,
				FoundIn:    foundIn,
				DetectedAt: result.Timestamp,
			})
			continue
		}
		kept = append(kept, row)
	}
	result.ExternalDuplicates = len(result.Rejected)
	if result.ExternalDuplicates > 0 {
		r.logger.Infof("Removed %d contributors that already exist in other files", result.ExternalDuplicates)
	}

	combined := make([]*models.Contributor, 0, len(r.base)+len(kept))
	combined = append(combined, r.base...)
	combined = append(combined, kept...)

	// Safety pass; the exclusion logic above should already guarantee this
	combined, finalRemoved := dedupeByUsername(combined)
	if finalRemoved > 0 {
		r.logger.Infof("Final cleanup: removed %d duplicate entries", finalRemoved)
	}

	result.NewContributors = len(kept)
	result.TotalContributors = len(combined)

	repos := make(map[string]bool)
	for _, row := range combined {
		repos[row.RepoName] = true
		if row.HasContactInfo() {
			result.WithContactInfo++
		}
	}
	result.TotalRepositories = len(repos)

	r.combined = combined
	r.result = result

	r.logger.Infof("Total contributors after all processing: %d", result.TotalContributors)
	r.logger.Infof("New unique contributors to be added: %d", result.NewContributors)
	return result
}

// Flush persists the merged set. A workbook failure falls back to a plain
// CSV export so the run's computed data is never lost.
func (r *WorkbookRepository) Flush() error {
	if r.result == nil {
		return fmt.Errorf("nothing merged to flush")
	}

	if err := r.writeWorkbook(); err != nil {
		r.logger.Errorf("Error saving workbook %s: %v", r.filename, err)
		return r.writeCSVFallback()
	}

	r.logger.Infof("Results saved to %s", r.filename)
	return nil
}

func dedupeByUsername(rows []*models.Contributor) ([]*models.Contributor, int) {
	seen := make(map[string]bool, len(rows))
	out := make([]*models.Contributor, 0, len(rows))
	for _, row := range rows {
		if seen[row.Username] {
			continue
		}
		seen[row.Username] = true
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}

// usernamesInDirectory collects every username present in other workbooks in
// the scan directory, excluding the target file itself.
func (r *WorkbookRepository) usernamesInDirectory() (map[string]bool, int) {
	known := make(map[string]bool)
	if r.scanDir == "" {
		r.logger.Info("No scan directory provided. Only checking current file for duplicates")
		return known, 0
	}

	entries, err := os.ReadDir(r.scanDir)
	if err != nil {
		r.logger.Warnf("Directory %s cannot be read: %v. Skipping external duplicate check", r.scanDir, err)
		return known, 0
	}

	target, _ := filepath.Abs(r.filename)
	processed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xls") {
			continue
		}
		full := filepath.Join(r.scanDir, name)
		if abs, err := filepath.Abs(full); err == nil && abs == target {
			continue
		}

		rows, err := readContributorRows(full)
		if err != nil {
			r.logger.Errorf("Error reading %s: %v", name, err)
			continue
		}
		for _, row := range rows {
			known[row.Username] = true
		}
		processed++
		r.logger.Infof("Loaded %d usernames from %s", len(rows), name)
	}

	r.logger.Infof("Total unique usernames found across %d files: %d", processed, len(known))
	return known, processed
}

func contributorColumns() []string {
	return []string{
		"repo_url", "repo_name", "username", "repo_contributions", "yearly_contributions",
		"profile_url", "name", "email", "commit_email", "website", "location", "company",
		"twitter", "bio", "public_repos", "followers", "following", "account_created",
	}
}

func contributorRow(c *models.Contributor) []interface{} {
	return []interface{}{
		c.RepoURL, c.RepoName, c.Username, c.RepoContributions, c.YearlyContributions,
		c.ProfileURL, c.Name, c.Email, c.CommitEmail, c.Website, c.Location, c.Company,
		c.Twitter, c.Bio, c.PublicRepos, c.Followers, c.Following, c.AccountCreated,
	}
}

func readContributorRows(path string) ([]*models.Contributor, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetAllContributors)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	out := make([]*models.Contributor, 0, len(rows)-1)
	for _, row := range rows[1:] {
		c := &models.Contributor{
			RepoURL:             cell(row, 0),
			RepoName:            cell(row, 1),
			Username:            cell(row, 2),
			RepoContributions:   cellInt(row, 3),
			YearlyContributions: cellInt(row, 4),
			ProfileURL:          cell(row, 5),
			Name:                cell(row, 6),
			Email:               cell(row, 7),
			CommitEmail:         cell(row, 8),
			Website:             cell(row, 9),
			Location:            cell(row, 10),
			Company:             cell(row, 11),
			Twitter:             cell(row, 12),
			Bio:                 cell(row, 13),
			PublicRepos:         cellInt(row, 14),
			Followers:           cellInt(row, 15),
			Following:           cellInt(row, 16),
			AccountCreated:      cell(row, 17),
		}
		if c.Username == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// cell reads a cell by index; GetRows trims trailing empty cells
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cellInt(row []string, idx int) int {
	value, err := strconv.Atoi(cell(row, idx))
	if err != nil {
		return 0
	}
	return value
}

func (r *WorkbookRepository) writeWorkbook() error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetAllContributors); err != nil {
		return err
	}
	if err := writeRow(f, sheetAllContributors, 1, toInterfaces(contributorColumns())); err != nil {
		return err
	}
	for i, c := range r.combined {
		if err := writeRow(f, sheetAllContributors, i+2, contributorRow(c)); err != nil {
			return err
		}
	}

	if err := r.writeSummarySheet(f); err != nil {
		return err
	}
	if err := r.writeContactSheet(f); err != nil {
		return err
	}
	if err := r.writeProgressSheet(f); err != nil {
		return err
	}
	if err := r.writeDuplicatesSheet(f); err != nil {
		return err
	}

	return f.SaveAs(r.filename)
}

func (r *WorkbookRepository) writeSummarySheet(f *excelize.File) error {
	if _, err := f.NewSheet(sheetRepoSummary); err != nil {
		return err
	}
	header := []interface{}{"Repository", "Contributors Count", "Avg Repo Contributions", "Avg Yearly Contributions"}
	if err := writeRow(f, sheetRepoSummary, 1, header); err != nil {
		return err
	}

	type aggregate struct {
		count  int
		repo   int
		yearly int
	}
	totals := make(map[string]*aggregate)
	var order []string
	for _, c := range r.combined {
		agg, ok := totals[c.RepoName]
		if !ok {
			agg = &aggregate{}
			totals[c.RepoName] = agg
			order = append(order, c.RepoName)
		}
		agg.count++
		agg.repo += c.RepoContributions
		agg.yearly += c.YearlyContributions
	}

	for i, repoName := range order {
		agg := totals[repoName]
		row := []interface{}{
			repoName,
			agg.count,
			round2(float64(agg.repo) / float64(agg.count)),
			round2(float64(agg.yearly) / float64(agg.count)),
		}
		if err := writeRow(f, sheetRepoSummary, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *WorkbookRepository) writeContactSheet(f *excelize.File) error {
	if _, err := f.NewSheet(sheetContactInfo); err != nil {
		return err
	}
	header := []interface{}{"repo_name", "username", "name", "email", "commit_email", "website", "location", "company", "twitter"}
	if err := writeRow(f, sheetContactInfo, 1, header); err != nil {
		return err
	}

	rowNum := 2
	for _, c := range r.combined {
		if !c.HasContactInfo() {
			continue
		}
		row := []interface{}{c.RepoName, c.Username, c.Name, c.Email, c.CommitEmail, c.Website, c.Location, c.Company, c.Twitter}
		if err := writeRow(f, sheetContactInfo, rowNum, row); err != nil {
			return err
		}
		rowNum++
	}
	return nil
}

func (r *WorkbookRepository) writeProgressSheet(f *excelize.File) error {
	if _, err := f.NewSheet(sheetProgressLog); err != nil {
		return err
	}
	header := []interface{}{
		"Run ID", "Last Updated", "Total Contributors", "Total Repositories",
		"New Contributors Added", "Contributors with Contact Info",
		"Duplicates Removed (Internal)", "Duplicates Removed (External)",
		"Excel Files Checked", "Directory Scanned",
	}
	if err := writeRow(f, sheetProgressLog, 1, header); err != nil {
		return err
	}

	scanned := r.result.DirectoryScanned
	if scanned == "" {
		scanned = "None"
	}
	row := []interface{}{
		r.result.RunID,
		r.result.Timestamp.Format("2006-01-02 15:04:05"),
		r.result.TotalContributors,
		r.result.TotalRepositories,
		r.result.NewContributors,
		r.result.WithContactInfo,
		r.result.InternalDuplicates,
		r.result.ExternalDuplicates,
		r.result.FilesScanned,
		scanned,
	}
	return writeRow(f, sheetProgressLog, 2, row)
}

func (r *WorkbookRepository) writeDuplicatesSheet(f *excelize.File) error {
	if len(r.result.Rejected) == 0 {
		return nil
	}

	if _, err := f.NewSheet(sheetDuplicates); err != nil {
		return err
	}
	header := []interface{}{"Duplicate Username", "Found In", "Date Detected"}
	if err := writeRow(f, sheetDuplicates, 1, header); err != nil {
		return err
	}

	for i, rejected := range r.result.Rejected {
		row := []interface{}{
			rejected.Username,
			rejected.FoundIn,
			rejected.DetectedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writeRow(f, sheetDuplicates, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *WorkbookRepository) writeCSVFallback() error {
	csvName := strings.TrimSuffix(r.filename, filepath.Ext(r.filename)) + "_backup.csv"

	file, err := os.Create(csvName)
	if err != nil {
		return fmt.Errorf("failed to create fallback CSV: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(contributorColumns()); err != nil {
		return fmt.Errorf("failed to write fallback CSV: %w", err)
	}
	for _, c := range r.combined {
		record := []string{
			c.RepoURL, c.RepoName, c.Username,
			strconv.Itoa(c.RepoContributions), strconv.Itoa(c.YearlyContributions),
			c.ProfileURL, c.Name, c.Email, c.CommitEmail, c.Website, c.Location,
			c.Company, c.Twitter, c.Bio,
			strconv.Itoa(c.PublicRepos), strconv.Itoa(c.Followers), strconv.Itoa(c.Following),
			c.AccountCreated,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write fallback CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write fallback CSV: %w", err)
	}

	r.logger.Infof("Saved backup as CSV: %s", csvName)
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cellName, &values)
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
