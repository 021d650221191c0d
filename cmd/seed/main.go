// Package main implements the catalog seeder. It reads a JSON or YAML file
// of ingredient rows and imports them as one batch through the same command
// path the API uses, so every hierarchy rule applies to seeded data too.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pantry-backend/application/commands"
	"pantry-backend/infrastructure/config"
	"pantry-backend/infrastructure/di"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk batch shape
type seedFile struct {
	BatchID string       `json:"batch_id" yaml:"batch_id"`
	Records []seedRecord `json:"records" yaml:"records"`
}

// seedRecord mirrors an import row. Parents are referenced by slug and must
// appear earlier in the file or already exist in the catalog.
type seedRecord struct {
	Name       string `json:"name" yaml:"name"`
	Slug       string `json:"slug" yaml:"slug"`
	ParentSlug string `json:"parent_slug" yaml:"parent_slug"`
	Category   string `json:"category" yaml:"category"`
}

func main() {
	var (
		file  = flag.String("file", "", "path to the seed file (.json, .yaml or .yml)")
		actor = flag.String("actor", "seed-cli", "actor recorded on the import events")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: seed -file catalog.yaml [-actor name]")
	}

	batch, err := loadSeedFile(*file)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}
	if len(batch.Records) == 0 {
		log.Fatalf("Seed file %s contains no records", *file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	records := make([]commands.ImportRecord, 0, len(batch.Records))
	for _, rec := range batch.Records {
		records = append(records, commands.ImportRecord{
			Name:       rec.Name,
			Slug:       rec.Slug,
			ParentSlug: rec.ParentSlug,
			Category:   rec.Category,
		})
	}

	result, err := container.CommandBus.Send(ctx, commands.ImportCatalogCommand{
		BatchID: batch.BatchID,
		Records: records,
		ActorID: *actor,
	})
	if err != nil {
		container.Logger.Fatal("Import failed", zap.Error(err))
	}

	imported, ok := result.(*commands.ImportCatalogResult)
	if !ok {
		container.Logger.Fatal("Unexpected import result type")
	}

	container.Logger.Info("Catalog seeded",
		zap.String("batchID", imported.BatchID),
		zap.Int("created", imported.Created),
		zap.String("checksum", imported.Checksum),
		zap.String("driver", cfg.CatalogDriver),
	)
}

// loadSeedFile parses the batch, picking the codec from the file extension
func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch seedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", filepath.Ext(path))
	}

	return &batch, nil
}
