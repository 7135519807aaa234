// Package advisor emits rule-based optimisation advice from classified
// standings. Rules key off the resource category recorded on the quota
// definition, never off display names.
package advisor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"freetier-alerts/internal/classify"
	"freetier-alerts/internal/storage"
)

// Priority orders recommendations for presentation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation is one piece of advisory output.
type Recommendation struct {
	Resource    string
	Category    storage.ResourceCategory
	Priority    Priority
	Title       string
	Description string
	Action      string
}

// usageFloor is the percentage above which category rules fire.
var usageFloor = decimal.NewFromInt(80)

type rule struct {
	priority    Priority
	title       string
	description string
	action      string
}

var categoryRules = map[storage.ResourceCategory]rule{
	storage.CategoryCompute: {
		priority:    PriorityHigh,
		title:       "Reduce instance running time",
		description: "Stop instances when not needed to stay within the monthly hour allowance",
		action:      "Schedule automatic stop/start outside working hours",
	},
	storage.CategoryStorage: {
		priority:    PriorityMedium,
		title:       "Apply a lifecycle or cleanup policy",
		description: "Review stored objects and expire data that is no longer needed",
		action:      "Delete unnecessary files or transition them to a cheaper storage class",
	},
	storage.CategoryServerless: {
		priority:    PriorityMedium,
		title:       "Trim function memory and duration",
		description: "Invocation cost scales with configured memory and execution time",
		action:      "Profile functions and reduce memory allocation or execution time",
	},
	storage.CategoryDatabase: {
		priority:    PriorityMedium,
		title:       "Reduce database instance hours",
		description: "Stop development databases outside working hours and prune storage",
		action:      "Snapshot and stop idle instances; drop unused tables",
	},
}

// generalRecommendations always apply; appending them keeps the output
// non-empty even for an empty status list.
var generalRecommendations = []Recommendation{
	{
		Resource:    "General",
		Category:    storage.CategoryGeneral,
		Priority:    PriorityHigh,
		Title:       "Create a zero-spend budget alert",
		Description: "A zero-spend budget notifies before any charge is incurred",
		Action:      "Create a budget with a near-zero threshold and email alerts",
	},
	{
		Resource:    "General",
		Category:    storage.CategoryGeneral,
		Priority:    PriorityHigh,
		Title:       "Enable cost anomaly detection",
		Description: "Anomaly detection flags unusual spending patterns at no cost",
		Action:      "Enable the provider's anomaly detection service",
	},
}

// Recommend maps high-usage standings to category advice and appends the
// standing general recommendations. Pure function of its input.
func Recommend(statuses []classify.PeriodStatus) []Recommendation {
	recommendations := make([]Recommendation, 0, len(statuses)+len(generalRecommendations))

	for _, status := range statuses {
		if status.UsagePercentage == nil || status.UsagePercentage.LessThan(usageFloor) {
			continue
		}
		r, ok := categoryRules[status.Category]
		if !ok {
			continue
		}
		recommendations = append(recommendations, Recommendation{
			Resource:    fmt.Sprintf("%s (%s)", status.Resource, status.SubMetric),
			Category:    status.Category,
			Priority:    r.priority,
			Title:       r.title,
			Description: r.description,
			Action:      r.action,
		})
	}

	return append(recommendations, generalRecommendations...)
}
