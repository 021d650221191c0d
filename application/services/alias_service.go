package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/utils"

	"go.uber.org/zap"
)

// Match provenance for resolved labels.
const (
	MatchedViaSlug  = "slug"
	MatchedViaName  = "name"
	MatchedViaAlias = "alias"
	MatchedViaFuzzy = "fuzzy"
)

// LabelMatch is one candidate ingredient for a free-text label.
type LabelMatch struct {
	Ingredient *entities.Ingredient
	MatchedVia string
	AliasID    string // set when the hit came through an alias
	Score      float64
}

// AliasService resolves free-text labels (receipt lines, recipe text,
// user input) to catalog ingredients. It is used directly by the resolve
// endpoint and the label-resolution worker without the overhead of the
// query bus: resolution is hot-path, read-only, and side-effect free.
type AliasService struct {
	ingredients ports.IngredientRepository
	aliases     ports.AliasRepository
	logger      *zap.Logger
}

// NewAliasService creates a new alias service
func NewAliasService(
	ingredients ports.IngredientRepository,
	aliases ports.AliasRepository,
	logger *zap.Logger,
) *AliasService {
	return &AliasService{
		ingredients: ingredients,
		aliases:     aliases,
		logger:      logger,
	}
}

// ResolveLabel maps a label to candidate ingredients, best first. Exact hits
// (slug, display name, alias) score 1.0 and come before fuzzy word-overlap
// matches; maxMatches caps the result.
func (s *AliasService) ResolveLabel(ctx context.Context, label string, maxMatches int) ([]LabelMatch, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	if maxMatches <= 0 {
		maxMatches = 5
	}

	matches := []LabelMatch{}
	seen := map[string]bool{}

	appendMatch := func(m LabelMatch) {
		key := m.Ingredient.ID().String()
		if seen[key] {
			return
		}
		seen[key] = true
		matches = append(matches, m)
	}

	// Exact slug hit: the label already is a canonical identifier.
	if node, err := s.ingredients.GetBySlug(ctx, utils.Slugify(label)); err == nil && node != nil {
		appendMatch(LabelMatch{Ingredient: node, MatchedVia: MatchedViaSlug, Score: 1.0})
	} else if err != nil && !pkgerrors.IsIngredientNotFound(err) {
		return nil, fmt.Errorf("failed slug lookup: %w", err)
	}

	// Exact alias hits: the crosswalk table is the whole point of aliases.
	aliasHits, err := s.aliases.FindByName(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("failed alias lookup: %w", err)
	}
	for _, alias := range aliasHits {
		node, err := s.ingredients.GetByID(ctx, alias.IngredientID())
		if err != nil {
			if pkgerrors.IsIngredientNotFound(err) {
				s.logger.Warn("Alias references a missing ingredient",
					zap.String("aliasID", alias.ID()),
					zap.String("ingredientID", alias.IngredientID().String()),
				)
				continue
			}
			return nil, fmt.Errorf("failed to load aliased ingredient: %w", err)
		}
		appendMatch(LabelMatch{Ingredient: node, MatchedVia: MatchedViaAlias, AliasID: alias.ID(), Score: 1.0})
	}

	// Name and fuzzy passes scan the catalog; the tree is bounded, so a full
	// load is cheaper than maintaining a search index.
	all, err := s.ingredients.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	labelWords := extractWords(label)

	type fuzzyCandidate struct {
		node  *entities.Ingredient
		score float64
	}
	fuzzy := []fuzzyCandidate{}

	for _, node := range all {
		if seen[node.ID().String()] {
			continue
		}
		if strings.EqualFold(node.Name().Display(), label) {
			appendMatch(LabelMatch{Ingredient: node, MatchedVia: MatchedViaName, Score: 1.0})
			continue
		}
		score := overlapScore(labelWords, extractWords(node.Name().Display()))
		if score >= fuzzyThreshold {
			fuzzy = append(fuzzy, fuzzyCandidate{node: node, score: score})
		}
	}

	// Highest overlap first; ties break on display name so results are stable.
	sort.Slice(fuzzy, func(i, j int) bool {
		if fuzzy[i].score != fuzzy[j].score {
			return fuzzy[i].score > fuzzy[j].score
		}
		return fuzzy[i].node.Name().Display() < fuzzy[j].node.Name().Display()
	})
	for _, candidate := range fuzzy {
		if len(matches) >= maxMatches {
			break
		}
		appendMatch(LabelMatch{Ingredient: candidate.node, MatchedVia: MatchedViaFuzzy, Score: candidate.score})
	}

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	s.logger.Debug("Resolved label",
		zap.String("label", label),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// fuzzyThreshold is the minimum word-overlap share for a fuzzy candidate.
// Ingredient names are short, so half the label's words must appear.
const fuzzyThreshold = 0.5

// overlapScore is the share of label words present in the candidate's words.
func overlapScore(labelWords, candidateWords map[string]bool) float64 {
	if len(labelWords) == 0 {
		return 0
	}
	matches := 0
	for word := range labelWords {
		if candidateWords[word] {
			matches++
		}
	}
	return float64(matches) / float64(len(labelWords))
}

// extractWords tokenizes text into lowercase words for fast lookup
func extractWords(text string) map[string]bool {
	words := make(map[string]bool)

	text = strings.ToLower(text)
	tokens := strings.Fields(text)

	for _, token := range tokens {
		cleaned := strings.Trim(token, ".,!?;:\"'()[]{}#@$%^&*+=<>/\\|`~")
		if len(cleaned) > 0 {
			words[cleaned] = true
		}
	}

	return words
}
