package store

// Member is a community member. Tag sets live in tag associations.
type Member struct {
	ID   int32
	UID  string
	Name string
	Bio  string

	// Free-text profile fields, advisory only.
	Specialties string
	Needs       string

	CreatedTs int64
	UpdatedTs int64
}

// FindMember specifies the conditions for finding members.
type FindMember struct {
	ID  *int32
	IDs []int32
	UID *string

	// Query matches name, bio or any skill/need tag name, case-insensitively.
	Query *string
	// TagIDs keeps members bearing any of the tags in any member role.
	TagIDs []int32
	// TagNames keeps members bearing any tag with one of these exact names.
	TagNames []string

	// Ordered by updated_ts desc, id desc.
	Limit *int
}

type UpdateMember struct {
	ID          int32
	UpdatedTs   *int64
	Name        *string
	Bio         *string
	Specialties *string
	Needs       *string
}

type DeleteMember struct {
	ID int32
}
