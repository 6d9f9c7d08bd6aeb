package utils

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"groclist/models"
)

const DefaultSuggestionLimit = 5

// SuggestionEngine tracks which item names a user tends to put on a list
// together and ranks candidate items for a list from that history.
type SuggestionEngine struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewSuggestionEngine(db *gorm.DB, logger *logrus.Entry) *SuggestionEngine {
	return &SuggestionEngine{
		DB:     db,
		Logger: logger,
	}
}

// RecordCoOccurrence bumps the correlation between a newly added item and
// every other active (incomplete) item currently on the list. Each pair is
// one canonical row incremented with a single upsert, so concurrent adds
// cannot desynchronize the two directions.
func (se *SuggestionEngine) RecordCoOccurrence(userID, listID uint, newItemName string) error {
	newItemName = strings.TrimSpace(newItemName)
	if newItemName == "" {
		return nil
	}

	var names []string
	err := se.DB.Model(&models.GroceryItem{}).
		Where("list_id = ? AND completed = ? AND name <> ?", listID, false, newItemName).
		Distinct().
		Pluck("name", &names).Error
	if err != nil {
		return err
	}

	now := time.Now()
	for _, name := range names {
		a, b := models.CanonicalPair(name, newItemName)
		edge := models.ItemCorrelation{
			UserID:      userID,
			ItemA:       a,
			ItemB:       b,
			Frequency:   1,
			LastUpdated: now,
		}
		err := se.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_a"}, {Name: "item_b"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"frequency":    gorm.Expr("frequency + 1"),
				"last_updated": now,
			}),
		}).Create(&edge).Error
		if err != nil {
			return err
		}
	}

	if len(names) > 0 {
		se.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"list_id": listID,
			"item":    newItemName,
			"pairs":   len(names),
		}).Debug("Recorded item co-occurrence")
	}
	return nil
}

// Suggest returns up to limit item names ranked by how often they have
// appeared together with the list's active items, excluding names already
// active on the list. A list with no active items yields no suggestions and
// performs no correlation reads. Ties break lexically so the ranking is
// deterministic.
func (se *SuggestionEngine) Suggest(userID, listID uint, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	var names []string
	err := se.DB.Model(&models.GroceryItem{}).
		Where("list_id = ? AND completed = ?", listID, false).
		Distinct().
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []string{}, nil
	}

	active := make(map[string]bool, len(names))
	for _, name := range names {
		active[name] = true
	}

	var edges []models.ItemCorrelation
	err = se.DB.
		Where("user_id = ? AND (item_a IN ? OR item_b IN ?)", userID, names, names).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	// Project each undirected edge onto its non-active endpoint, if any
	totals := make(map[string]int)
	for _, edge := range edges {
		if active[edge.ItemA] && !active[edge.ItemB] {
			totals[edge.ItemB] += edge.Frequency
		} else if active[edge.ItemB] && !active[edge.ItemA] {
			totals[edge.ItemA] += edge.Frequency
		}
	}

	return rankTotals(totals, limit), nil
}

// rankTotals orders candidates by descending frequency, breaking ties
// lexically, and truncates to limit.
func rankTotals(totals map[string]int, limit int) []string {
	ranked := make([]string, 0, len(totals))
	for name := range totals {
		ranked = append(ranked, name)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if totals[ranked[i]] != totals[ranked[j]] {
			return totals[ranked[i]] > totals[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
