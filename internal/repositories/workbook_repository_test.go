package repositories

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"contribscout/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func record(username string, opts ...func(*models.Contributor)) *models.Contributor {
	c := &models.Contributor{
		RepoURL:             "https://github.com/acme/widget",
		RepoName:            "acme/widget",
		Username:            username,
		RepoContributions:   150,
		YearlyContributions: 500,
		ProfileURL:          "https://github.com/" + username,
		Name:                "Name of " + username,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func withEmail(email string) func(*models.Contributor) {
	return func(c *models.Contributor) { c.Email = email }
}

func withRepo(url, name string) func(*models.Contributor) {
	return func(c *models.Contributor) {
		c.RepoURL = url
		c.RepoName = name
	}
}

func TestWorkbookRepositorySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")

	repo := NewWorkbookRepository(filename, "", testLogger())
	result, err := repo.Save([]*models.Contributor{
		record("alice", withEmail("alice@fastmail.fm")),
		record("bob"),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.NewContributors)
	assert.Equal(t, 2, result.TotalContributors)
	assert.Equal(t, 1, result.TotalRepositories)
	assert.Equal(t, 1, result.WithContactInfo)
	assert.Empty(t, result.Rejected)

	loaded := NewWorkbookRepository(filename, "", testLogger()).Load()
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Username)
	assert.Equal(t, "alice@fastmail.fm", loaded[0].Email)
	assert.Equal(t, 150, loaded[0].RepoContributions)
	assert.Equal(t, 500, loaded[0].YearlyContributions)
	assert.Equal(t, "bob", loaded[1].Username)
}

func TestWorkbookRepositorySaveEmptyBatch(t *testing.T) {
	repo := NewWorkbookRepository(filepath.Join(t.TempDir(), "results.xlsx"), "", testLogger())
	result, err := repo.Save(nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestWorkbookRepositoryMergeKeepsExistingRows(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")

	first := NewWorkbookRepository(filename, "", testLogger())
	_, err := first.Save([]*models.Contributor{
		record("alice"),
		record("bob", withEmail("bob@fastmail.fm")),
	})
	require.NoError(t, err)

	// bob arrives again with different data; the original row wins
	second := NewWorkbookRepository(filename, "", testLogger())
	result, err := second.Save([]*models.Contributor{
		record("bob", withEmail("changed@fastmail.fm")),
		record("carol"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewContributors)
	assert.Equal(t, 3, result.TotalContributors)
	assert.Equal(t, 1, result.ExternalDuplicates)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "bob", result.Rejected[0].Username)
	assert.Equal(t, "target file", result.Rejected[0].FoundIn)

	loaded := NewWorkbookRepository(filename, "", testLogger()).Load()
	require.Len(t, loaded, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"},
		[]string{loaded[0].Username, loaded[1].Username, loaded[2].Username})
	assert.Equal(t, "bob@fastmail.fm", loaded[1].Email)
}

func TestWorkbookRepositorySaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")
	batch := []*models.Contributor{record("alice"), record("bob")}

	_, err := NewWorkbookRepository(filename, "", testLogger()).Save(batch)
	require.NoError(t, err)

	result, err := NewWorkbookRepository(filename, "", testLogger()).Save(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewContributors)
	assert.Equal(t, 2, result.TotalContributors)
	assert.Equal(t, 2, result.ExternalDuplicates)
}

func TestWorkbookRepositoryInternalDedupe(t *testing.T) {
	repo := NewWorkbookRepository(filepath.Join(t.TempDir(), "results.xlsx"), "", testLogger())
	result, err := repo.Save([]*models.Contributor{
		record("alice", withEmail("first@fastmail.fm")),
		record("alice", withEmail("second@fastmail.fm")),
		record("bob"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InternalDuplicates)
	assert.Equal(t, 2, result.NewContributors)

	loaded := repo.Load()
	require.Len(t, loaded, 2)
	assert.Equal(t, "first@fastmail.fm", loaded[0].Email, "first occurrence wins")
}

func TestWorkbookRepositoryDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "results.xlsx")
	sibling := filepath.Join(dir, "earlier_run.xlsx")

	_, err := NewWorkbookRepository(sibling, "", testLogger()).Save([]*models.Contributor{record("dana")})
	require.NoError(t, err)
	_, err = NewWorkbookRepository(target, "", testLogger()).Save([]*models.Contributor{record("alice")})
	require.NoError(t, err)

	repo := NewWorkbookRepository(target, dir, testLogger())
	result, err := repo.Save([]*models.Contributor{
		record("dana"),
		record("erin"),
	})
	require.NoError(t, err)

	// The target file is in the scan directory but never counted as a sibling
	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, dir, result.DirectoryScanned)
	assert.Equal(t, 1, result.NewContributors)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "dana", result.Rejected[0].Username)
	assert.Equal(t, "sibling workbook", result.Rejected[0].FoundIn)

	loaded := repo.Load()
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Username)
	assert.Equal(t, "erin", loaded[1].Username)
}

func TestWorkbookRepositorySheets(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")

	_, err := NewWorkbookRepository(filename, "", testLogger()).Save([]*models.Contributor{record("alice")})
	require.NoError(t, err)

	repo := NewWorkbookRepository(filename, "", testLogger())
	result, err := repo.Save([]*models.Contributor{
		record("alice"),
		record("bob", withEmail("bob@fastmail.fm"), withRepo("https://github.com/acme/gadget", "acme/gadget")),
	})
	require.NoError(t, err)
	require.Len(t, result.Rejected, 1)

	f, err := excelize.OpenFile(filename)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{
		sheetAllContributors, sheetRepoSummary, sheetContactInfo, sheetProgressLog, sheetDuplicates,
	}, f.GetSheetList())

	summary, err := f.GetRows(sheetRepoSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "acme/widget", summary[1][0])
	assert.Equal(t, "acme/gadget", summary[2][0])
	assert.Equal(t, "150", summary[1][2])

	contacts, err := f.GetRows(sheetContactInfo)
	require.NoError(t, err)
	require.Len(t, contacts, 2, "header plus the one row with contact info")
	assert.Equal(t, "bob", contacts[1][1])

	progress, err := f.GetRows(sheetProgressLog)
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, result.RunID, progress[1][0])
	assert.Equal(t, "2", progress[1][2])
	assert.Equal(t, "None", progress[1][9])

	duplicates, err := f.GetRows(sheetDuplicates)
	require.NoError(t, err)
	require.Len(t, duplicates, 2)
	assert.Equal(t, "alice", duplicates[1][0])
	assert.Equal(t, "target file", duplicates[1][1])
}

func TestWorkbookRepositoryNoDuplicatesSheetWhenClean(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "results.xlsx")
	_, err := NewWorkbookRepository(filename, "", testLogger()).Save([]*models.Contributor{record("alice")})
	require.NoError(t, err)

	f, err := excelize.OpenFile(filename)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), sheetDuplicates)
}

func TestWorkbookRepositoryFlushWithoutMerge(t *testing.T) {
	repo := NewWorkbookRepository(filepath.Join(t.TempDir(), "results.xlsx"), "", testLogger())
	assert.Error(t, repo.Flush())
}

func TestWorkbookRepositoryCSVFallback(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")

	// A directory at the target path makes the workbook write fail
	require.NoError(t, os.Mkdir(filename, 0o755))

	repo := NewWorkbookRepository(filename, "", testLogger())
	result, err := repo.Save([]*models.Contributor{
		record("alice", withEmail("alice@fastmail.fm")),
		record("bob"),
	})
	require.NoError(t, err, "a failed workbook write degrades to CSV, not an error")
	assert.Equal(t, 2, result.NewContributors)

	backup, err := os.Open(filepath.Join(dir, "results_backup.csv"))
	require.NoError(t, err)
	defer backup.Close()

	rows, err := csv.NewReader(backup).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus both computed rows")
	assert.Equal(t, contributorColumns(), rows[0])
	assert.Equal(t, "alice", rows[1][2])
	assert.Equal(t, "alice@fastmail.fm", rows[1][7])
	assert.Equal(t, "bob", rows[2][2])
}

func TestWorkbookRepositoryLoadCorruptTarget(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "results.xlsx")
	require.NoError(t, os.WriteFile(filename, []byte("not a workbook"), 0o644))

	repo := NewWorkbookRepository(filename, "", testLogger())
	assert.Empty(t, repo.Load(), "an unreadable target starts the store fresh")

	result, err := repo.Save([]*models.Contributor{record("alice")})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewContributors)
	assert.Equal(t, 1, result.TotalContributors)
}
