package store

// TagCategory is the coarse classification of a tag.
type TagCategory string

const (
	TagCategorySkill        TagCategory = "skill"
	TagCategoryNeed         TagCategory = "need"
	TagCategoryMethod       TagCategory = "method"
	TagCategoryUnclassified TagCategory = "unclassified"
)

// IsValid reports whether c is one of the known categories.
func (c TagCategory) IsValid() bool {
	switch c {
	case TagCategorySkill, TagCategoryNeed, TagCategoryMethod, TagCategoryUnclassified:
		return true
	default:
		return false
	}
}

// Tag is a canonical vocabulary entry.
type Tag struct {
	ID       int32
	Name     string // unique, case-sensitive
	Category TagCategory
	Level    int32  // 1 for roots, parent level + 1 otherwise
	ParentID *int32 // weak reference, may dangle

	// AI classification, overwritten on every reclassification.
	AICategory   string
	AIConfidence float32 // 0-1

	// UsageCount equals the number of live associations. Only the ledger writes it.
	UsageCount int32

	CreatedTs int64
	UpdatedTs int64
}

// FindTag specifies the conditions for finding tags.
type FindTag struct {
	ID       *int32
	IDs      []int32
	Name     *string
	Names    []string
	ParentID *int32

	// NameContains matches names case-insensitively.
	NameContains *string

	// OrderByUsage sorts by usage count desc then name asc.
	// Default ordering is created_ts desc then name asc.
	OrderByUsage bool
	// OrderByName sorts by name asc.
	OrderByName bool

	Limit *int
}

// UpsertTag describes a find-or-create or a reclassification.
// Category, Level and ParentID are only used when the row is created.
type UpsertTag struct {
	Name     string
	Category TagCategory
	Level    int32
	ParentID *int32

	AICategory   string
	AIConfidence float32
}
