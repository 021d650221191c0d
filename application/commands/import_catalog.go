package commands

import (
	"errors"
	"fmt"
)

// ImportRecord is one row of a catalog import batch. Parents are referenced
// by slug and must appear earlier in the batch or already exist in the
// catalog. A row without a parent slug becomes a root: batch import is the
// path that names its top-level categories explicitly.
type ImportRecord struct {
	Name       string `json:"name" validate:"required,min=1,max=120"`
	Slug       string `json:"slug,omitempty" validate:"omitempty,max=140"`
	ParentSlug string `json:"parent_slug,omitempty" validate:"omitempty,max=140"`
	Category   string `json:"category,omitempty" validate:"omitempty,max=255"`
}

// ImportCatalogCommand loads a batch of ingredients in one transaction.
// Every row is validated against a staged view of the tree before anything
// is written; one bad row rejects the whole batch.
type ImportCatalogCommand struct {
	BatchID string         `json:"batch_id,omitempty"`
	Records []ImportRecord `json:"records" validate:"required,min=1,dive"`
	ActorID string         `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd ImportCatalogCommand) Validate() error {
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	if len(cmd.Records) == 0 {
		return errors.New("import batch is empty")
	}
	if len(cmd.Records) > MaxImportRecords {
		return fmt.Errorf("import batch exceeds %d records", MaxImportRecords)
	}
	for i, rec := range cmd.Records {
		if rec.Name == "" {
			return fmt.Errorf("record %d: name is required", i)
		}
	}
	return nil
}

const MaxImportRecords = 1000

// ImportCatalogResult reports what a committed batch created
type ImportCatalogResult struct {
	BatchID  string `json:"batch_id"`
	Created  int    `json:"created"`
	Checksum string `json:"checksum"`
}
