package generator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/errors"
)

const maxTitleRunes = 100

// Item 生成结果中的单个任务；duration 用指针区分缺失和 0
type Item struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Duration    *int   `json:"duration" yaml:"duration"`
	Category    string `json:"category" yaml:"category"`
}

// Batch 按档位分组的 13 个任务
type Batch struct {
	Bronze []Item `json:"bronze" yaml:"bronze"`
	Silver []Item `json:"silver" yaml:"silver"`
	Gold   []Item `json:"gold" yaml:"gold"`
}

func (b *Batch) tier(t model.Tier) []Item {
	switch t {
	case model.TierBronze:
		return b.Bronze
	case model.TierSilver:
		return b.Silver
	case model.TierGold:
		return b.Gold
	}
	return nil
}

// 分类不在词表内时按档位替换
var defaultCategory = map[model.Tier]model.Category{
	model.TierBronze: model.CategoryHealth,
	model.TierSilver: model.CategoryMental,
	model.TierGold:   model.CategoryPhysical,
}

// Validate 检查 5/5/3 数量、时长区间和必填字段，错误均包装 ErrGeneration
func (b *Batch) Validate() error {
	for _, spec := range model.TierSpecs {
		items := b.tier(spec.Tier)
		if len(items) != spec.Count {
			return fmt.Errorf("%w: %s has %d missions, want %d", errors.ErrGeneration, spec.Tier, len(items), spec.Count)
		}

		for i, item := range items {
			if strings.TrimSpace(item.Title) == "" {
				return fmt.Errorf("%w: %s[%d] title is empty", errors.ErrGeneration, spec.Tier, i)
			}
			if strings.TrimSpace(item.Description) == "" {
				return fmt.Errorf("%w: %s[%d] description is empty", errors.ErrGeneration, spec.Tier, i)
			}
			if item.Duration == nil {
				return fmt.Errorf("%w: %s[%d] duration is missing", errors.ErrGeneration, spec.Tier, i)
			}
			if !spec.Contains(*item.Duration) {
				return fmt.Errorf("%w: %s[%d] duration %d outside [%d,%d]",
					errors.ErrGeneration, spec.Tier, i, *item.Duration, spec.MinDuration, spec.MaxDuration)
			}
		}
	}
	return nil
}

// Slots 把校验过的 Batch 转成 13 个 slot，position 按返回顺序分配
func (b *Batch) Slots() []model.CatalogSlot {
	slots := make([]model.CatalogSlot, 0, model.SlotsPerDay)
	for _, spec := range model.TierSpecs {
		for i, item := range b.tier(spec.Tier) {
			category, ok := model.ParseCategory(strings.ToLower(strings.TrimSpace(item.Category)))
			if !ok {
				category = defaultCategory[spec.Tier]
			}

			slots = append(slots, model.CatalogSlot{
				Position:    spec.FirstPosition + i,
				Tier:        spec.Tier,
				TierIndex:   i + 1,
				Title:       truncateRunes(strings.TrimSpace(item.Title), maxTitleRunes),
				Description: strings.TrimSpace(item.Description),
				Duration:    *item.Duration,
				Category:    category,
			})
		}
	}
	return slots
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
