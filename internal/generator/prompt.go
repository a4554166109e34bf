package generator

import (
	"fmt"
	"strings"

	"DopamineBreaker/internal/model"
)

const promptHeader = `Generate 13 dopamine-detox missions.

Rules:
- 5 bronze (%d-%d minutes), 5 silver (%d-%d minutes), 3 gold (%d-%d minutes)
- title: short, at most 15 words
- description: one motivational sentence
- duration: integer minutes inside the tier range
- category: one of %s
`

const promptFooter = `
Output JSON only, in exactly this shape:
{
  "bronze": [{"title": "...", "description": "...", "duration": 3, "category": "physical"}],
  "silver": [{"title": "...", "description": "...", "duration": 10, "category": "mental"}],
  "gold":   [{"title": "...", "description": "...", "duration": 20, "category": "health"}]
}`

// BuildPrompt 生成请求文本；previous 不为空时列出前一天的任务作为反例
func BuildPrompt(previous *model.CatalogEntry) string {
	bronze, silver, gold := model.TierSpecs[0], model.TierSpecs[1], model.TierSpecs[2]

	categories := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		categories = append(categories, string(c))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, promptHeader,
		bronze.MinDuration, bronze.MaxDuration,
		silver.MinDuration, silver.MaxDuration,
		gold.MinDuration, gold.MaxDuration,
		strings.Join(categories, ", "),
	)

	if previous != nil && len(previous.Slots) > 0 {
		sb.WriteString("\nMissions from the previous day (do not repeat or closely resemble these):\n")
		for _, m := range previous.Missions() {
			fmt.Fprintf(&sb, "- %s: %s\n", m.Title, m.Description)
		}
	}

	sb.WriteString(promptFooter)
	return sb.String()
}
