package store

// CatalogItem is a course or product listed in the catalog.
type CatalogItem struct {
	ID          int32
	UID         string
	Title       string
	Description string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindCatalogItem specifies the conditions for finding catalog items.
type FindCatalogItem struct {
	ID  *int32
	IDs []int32
	UID *string

	// Query matches title, description or any catalog tag name, case-insensitively.
	Query *string
	// TagID keeps only items bearing this tag.
	TagID *int32

	// Ordered by created_ts desc, id desc.
	Limit *int
}

type DeleteCatalogItem struct {
	ID int32
}
