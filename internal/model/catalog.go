package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Tier 任务档位
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Category 任务分类
type Category string

const (
	CategoryPhysical Category = "physical"
	CategoryMental   Category = "mental"
	CategoryHealth   Category = "health"
	CategorySocial   Category = "social"
	CategoryCreative Category = "creative"
)

// Categories 生成时允许的分类
var Categories = []Category{CategoryPhysical, CategoryMental, CategoryHealth, CategorySocial, CategoryCreative}

// SlotsPerDay 每天固定 13 个任务：5 bronze + 5 silver + 3 gold
const SlotsPerDay = 13

// TierSpec 描述一个档位的数量、时长区间（闭区间，分钟）以及起始位置
type TierSpec struct {
	Tier          Tier
	Count         int
	MinDuration   int
	MaxDuration   int
	FirstPosition int
}

// TierSpecs 按位置顺序排列
var TierSpecs = []TierSpec{
	{Tier: TierBronze, Count: 5, MinDuration: 3, MaxDuration: 10, FirstPosition: 1},
	{Tier: TierSilver, Count: 5, MinDuration: 10, MaxDuration: 20, FirstPosition: 6},
	{Tier: TierGold, Count: 3, MinDuration: 20, MaxDuration: 40, FirstPosition: 11},
}

// ParseTier 校验档位字符串
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierBronze, TierSilver, TierGold:
		return Tier(s), true
	}
	return "", false
}

// Spec 返回档位配置
func (t Tier) Spec() (TierSpec, bool) {
	for _, spec := range TierSpecs {
		if spec.Tier == t {
			return spec, true
		}
	}
	return TierSpec{}, false
}

// Contains 判断时长是否落在档位区间内
func (s TierSpec) Contains(duration int) bool {
	return duration >= s.MinDuration && duration <= s.MaxDuration
}

// ParseCategory 校验分类字符串
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// CatalogEntry 某一天的 13 个任务，date 唯一，创建后不再修改
type CatalogEntry struct {
	BaseModel
	Date  string         `gorm:"type:varchar(10);uniqueIndex:idx_catalog_entries_date;not null" json:"date"`
	Meta  datatypes.JSON `json:"meta,omitempty"`
	Slots []CatalogSlot  `gorm:"foreignKey:EntryID" json:"slots"`
}

// TableName 指定表名
func (CatalogEntry) TableName() string {
	return "catalog_entries"
}

// CatalogSlot 单个任务，position 为 1..13 的稳定编号
type CatalogSlot struct {
	ID          int64    `gorm:"primaryKey;autoIncrement" json:"-"`
	EntryID     int64    `gorm:"not null;uniqueIndex:idx_catalog_slots_entry_position" json:"-"`
	Position    int      `gorm:"not null;uniqueIndex:idx_catalog_slots_entry_position" json:"id"`
	Tier        Tier     `gorm:"type:varchar(10);not null" json:"tier"`
	TierIndex   int      `gorm:"not null" json:"tier_index"`
	Title       string   `gorm:"type:varchar(100);not null" json:"title"`
	Description string   `gorm:"type:text;not null" json:"description"`
	Duration    int      `gorm:"not null" json:"duration"`
	Category    Category `gorm:"type:varchar(20);not null" json:"category"`
}

// TableName 指定表名
func (CatalogSlot) TableName() string {
	return "catalog_slots"
}

// CatalogMeta 生成来源信息，存放在 catalog_entries.meta
type CatalogMeta struct {
	Source         string `json:"source"` // gemini, fallback
	Model          string `json:"model,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	PreviousDate   string `json:"previous_date,omitempty"`
	RunID          string `json:"run_id,omitempty"`
}

const (
	SourceGemini   = "gemini"
	SourceFallback = "fallback"
)

// SetMeta 序列化生成信息
func (e *CatalogEntry) SetMeta(meta CatalogMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	e.Meta = datatypes.JSON(raw)
	return nil
}

// Metadata 读取生成信息，旧数据没有 meta 时返回零值
func (e *CatalogEntry) Metadata() (CatalogMeta, error) {
	var meta CatalogMeta
	if len(e.Meta) == 0 {
		return meta, nil
	}
	err := json.Unmarshal(e.Meta, &meta)
	return meta, err
}

// MissionItem 返回给客户端的任务描述
type MissionItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Tier        Tier   `json:"tier"`
	Category    string `json:"category"`
}

// Missions 按 position 升序返回 13 个任务
func (e *CatalogEntry) Missions() []MissionItem {
	slots := make([]CatalogSlot, len(e.Slots))
	copy(slots, e.Slots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Position < slots[j].Position })

	items := make([]MissionItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, MissionItem{
			ID:          s.Position,
			Title:       s.Title,
			Description: s.Description,
			Duration:    s.Duration,
			Tier:        s.Tier,
			Category:    string(s.Category),
		})
	}
	return items
}

// Complete 判断 13 个位置是否都存在且档位匹配
func (e *CatalogEntry) Complete() bool {
	if len(e.Slots) != SlotsPerDay {
		return false
	}
	seen := make(map[int]bool, SlotsPerDay)
	for _, s := range e.Slots {
		tier, idx, ok := TierAt(s.Position)
		if !ok || seen[s.Position] || tier != s.Tier || idx != s.TierIndex {
			return false
		}
		seen[s.Position] = true
	}
	return true
}

// Validate 入库前的最终校验：位置完整，且每个任务的时长落在档位区间内、标题和描述非空
func (e *CatalogEntry) Validate() error {
	if !e.Complete() {
		return fmt.Errorf("catalog %s: slots do not cover positions 1..%d with matching tiers", e.Date, SlotsPerDay)
	}
	for _, s := range e.Slots {
		spec, _ := s.Tier.Spec()
		if !spec.Contains(s.Duration) {
			return fmt.Errorf("catalog %s: %s_%d duration %d outside [%d,%d]",
				e.Date, s.Tier, s.TierIndex, s.Duration, spec.MinDuration, spec.MaxDuration)
		}
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("catalog %s: %s_%d title or description is empty", e.Date, s.Tier, s.TierIndex)
		}
		if _, ok := ParseCategory(string(s.Category)); !ok {
			return fmt.Errorf("catalog %s: %s_%d category %q is unknown", e.Date, s.Tier, s.TierIndex, s.Category)
		}
	}
	return nil
}

// TierAt 根据 position 反推档位和档位内序号（从 1 开始）
func TierAt(position int) (Tier, int, bool) {
	for _, spec := range TierSpecs {
		if position >= spec.FirstPosition && position < spec.FirstPosition+spec.Count {
			return spec.Tier, position - spec.FirstPosition + 1, true
		}
	}
	return "", 0, false
}
