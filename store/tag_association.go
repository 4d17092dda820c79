package store

// TagRole is the role a tag plays for its owner.
type TagRole string

const (
	TagRoleSkill   TagRole = "skill"
	TagRoleNeed    TagRole = "need"
	TagRoleCatalog TagRole = "catalog"
)

// MemberTagRoles are the roles owned by members.
var MemberTagRoles = []TagRole{TagRoleSkill, TagRoleNeed}

// IsValid reports whether r is one of the known roles.
func (r TagRole) IsValid() bool {
	return r == TagRoleSkill || r == TagRoleNeed || r == TagRoleCatalog
}

// OwnerKind returns the kind of owner the role references.
func (r TagRole) OwnerKind() OwnerKind {
	if r == TagRoleCatalog {
		return OwnerKindCatalogItem
	}
	return OwnerKindMember
}

// OwnerKind names the table an association's owner id points into.
type OwnerKind string

const (
	OwnerKindMember      OwnerKind = "member"
	OwnerKindCatalogItem OwnerKind = "catalog_item"
)

// TagAssociation links a tag to a member or catalog item.
// (TagID, OwnerID, Role) is unique.
type TagAssociation struct {
	TagID     int32
	OwnerID   int32
	Role      TagRole
	CreatedTs int64

	// Tag is populated by ListTagAssociations.
	Tag *Tag
}

// FindTagAssociation specifies the conditions for finding associations.
type FindTagAssociation struct {
	TagID    *int32
	OwnerID  *int32
	OwnerIDs []int32
	Roles    []TagRole
}

// ReplaceTagSet replaces every association of an owner in one role.
type ReplaceTagSet struct {
	OwnerID int32
	Role    TagRole
	TagIDs  []int32
}

// TagSetDiff is the outcome of a ReplaceTagSet.
type TagSetDiff struct {
	Attached []int32
	Detached []int32
}

// DetachAllTags removes every association of an owner.
// Empty Roles means all roles of the owner's kind.
type DetachAllTags struct {
	OwnerID int32
	Kind    OwnerKind
	Roles   []TagRole
}
