package models

import (
	"time"

	"github.com/google/uuid"
)

// MergeResult records what a single store merge did, for the progress sheet
// and the run summary.
type MergeResult struct {
	RunID              string               `json:"run_id"`
	Timestamp          time.Time            `json:"timestamp"`
	TotalContributors  int                  `json:"total_contributors"`
	TotalRepositories  int                  `json:"total_repositories"`
	NewContributors    int                  `json:"new_contributors"`
	WithContactInfo    int                  `json:"with_contact_info"`
	InternalDuplicates int                  `json:"internal_duplicates"`
	ExternalDuplicates int                  `json:"external_duplicates"`
	FilesScanned       int                  `json:"files_scanned"`
	DirectoryScanned   string               `json:"directory_scanned"`
	Rejected           []*RejectedDuplicate `json:"rejected"`
}

// NewMergeResult creates a MergeResult stamped with a fresh run ID
func NewMergeResult() *MergeResult {
	return &MergeResult{
		RunID:     uuid.New().String(),
		Timestamp: time.Now(),
	}
}

// RejectedDuplicate is a username dropped from a new batch because it was
// already present in the target file or a sibling workbook.
type RejectedDuplicate struct {
	Username   string    `json:"username"`
	FoundIn    string    `json:"found_in"`
	DetectedAt time.Time `json:"detected_at"`
}
