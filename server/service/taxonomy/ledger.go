package taxonomy

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/internal/observability"
	"github.com/hrygo/circle/store"
)

// LedgerStore is the interface for store operations needed by the ledger.
type LedgerStore interface {
	AttachTag(ctx context.Context, create *store.TagAssociation) (bool, error)
	DetachTag(ctx context.Context, delete *store.TagAssociation) (bool, error)
	ReplaceTagSet(ctx context.Context, replace *store.ReplaceTagSet) (*store.TagSetDiff, error)
	DetachAllTags(ctx context.Context, delete *store.DetachAllTags) (int, error)
	ListTagAssociations(ctx context.Context, find *store.FindTagAssociation) ([]*store.TagAssociation, error)

	CreateMember(ctx context.Context, create *store.Member) (*store.Member, error)
	GetMember(ctx context.Context, find *store.FindMember) (*store.Member, error)
	DeleteMember(ctx context.Context, delete *store.DeleteMember) error

	CreateCatalogItem(ctx context.Context, create *store.CatalogItem) (*store.CatalogItem, error)
	DeleteCatalogItem(ctx context.Context, delete *store.DeleteCatalogItem) error
}

// Ledger operation names used in logs and metrics.
const (
	OpAttach            = "attach"
	OpDetach            = "detach"
	OpReplaceSet        = "replace_set"
	OpDetachAll         = "detach_all"
	OpDeleteMember      = "delete_member"
	OpDeleteCatalogItem = "delete_catalog_item"
)

type ledger struct {
	store    LedgerStore
	registry Registry
}

// NewLedger creates a new association ledger. The registry resolves tag names
// for ReplaceByNames and CreateCatalogItem.
func NewLedger(store LedgerStore, registry Registry) Ledger {
	return &ledger{
		store:    store,
		registry: registry,
	}
}

func validateRole(role store.TagRole) error {
	if !role.IsValid() {
		return apperrors.InvalidArgumentf("unknown tag role %q", role)
	}
	return nil
}

// record counts the mutation and translates its error. Usage count
// underflow is logged at error level and counted as an invariant violation.
func record(ctx context.Context, operation string, changed bool, err error, attrs ...any) error {
	if err == nil {
		result := observability.ResultNoop
		if changed {
			result = observability.ResultOK
		}
		observability.RecordLedgerMutation(operation, result)
		return nil
	}

	observability.RecordLedgerMutation(operation, observability.ResultError)
	if errors.Is(err, store.ErrUsageCountUnderflow) {
		observability.RecordInvariantViolation(operation)
		observability.LoggerFromContext(ctx).Error("tag usage count invariant violated, transaction rolled back",
			append([]any{"operation", operation, "error", err}, attrs...)...)
	}
	return apperrors.FromStore(err, operation+" failed")
}

func (l *ledger) Attach(ctx context.Context, tagID, ownerID int32, role store.TagRole) (bool, error) {
	if err := validateRole(role); err != nil {
		return false, err
	}
	attached, err := l.store.AttachTag(ctx, &store.TagAssociation{TagID: tagID, OwnerID: ownerID, Role: role})
	if err := record(ctx, OpAttach, attached, err, "tag_id", tagID, "owner_id", ownerID, "role", role); err != nil {
		return false, err
	}
	return attached, nil
}

func (l *ledger) Detach(ctx context.Context, tagID, ownerID int32, role store.TagRole) (bool, error) {
	if err := validateRole(role); err != nil {
		return false, err
	}
	detached, err := l.store.DetachTag(ctx, &store.TagAssociation{TagID: tagID, OwnerID: ownerID, Role: role})
	if err := record(ctx, OpDetach, detached, err, "tag_id", tagID, "owner_id", ownerID, "role", role); err != nil {
		return false, err
	}
	return detached, nil
}

func (l *ledger) ReplaceSet(ctx context.Context, ownerID int32, role store.TagRole, tagIDs []int32) (*store.TagSetDiff, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	diff, err := l.store.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: ownerID, Role: role, TagIDs: tagIDs})
	changed := diff != nil && (len(diff.Attached) > 0 || len(diff.Detached) > 0)
	if err := record(ctx, OpReplaceSet, changed, err, "owner_id", ownerID, "role", role); err != nil {
		return nil, err
	}
	return diff, nil
}

func (l *ledger) ReplaceByNames(ctx context.Context, ownerID int32, role store.TagRole, names []string) (*store.TagSetDiff, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	tagIDs, err := l.submitAll(ctx, names, role)
	if err != nil {
		return nil, err
	}
	return l.ReplaceSet(ctx, ownerID, role, tagIDs)
}

// submitAll submits each distinct non-empty name with the role and returns the tag ids.
func (l *ledger) submitAll(ctx context.Context, names []string, role store.TagRole) ([]int32, error) {
	seen := make(map[string]bool, len(names))
	tagIDs := make([]int32, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result, err := l.registry.Submit(ctx, name, role)
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, result.Tag.ID)
	}
	return tagIDs, nil
}

func (l *ledger) DetachAll(ctx context.Context, ownerID int32, kind store.OwnerKind, roles []store.TagRole) (int, error) {
	for _, role := range roles {
		if err := validateRole(role); err != nil {
			return 0, err
		}
		if role.OwnerKind() != kind {
			return 0, apperrors.InvalidArgumentf("role %q does not belong to %s owners", role, kind)
		}
	}
	n, err := l.store.DetachAllTags(ctx, &store.DetachAllTags{OwnerID: ownerID, Kind: kind, Roles: roles})
	if err := record(ctx, OpDetachAll, n > 0, err, "owner_id", ownerID, "kind", kind); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *ledger) ListTags(ctx context.Context, ownerID int32, role store.TagRole) ([]*store.Tag, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	list, err := l.store.ListTagAssociations(ctx, &store.FindTagAssociation{
		OwnerID: &ownerID,
		Roles:   []store.TagRole{role},
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list owner tags")
	}
	result := make([]*store.Tag, 0, len(list))
	for _, association := range list {
		result = append(result, association.Tag)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (l *ledger) CreateMember(ctx context.Context, req *CreateMemberRequest) (*store.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.InvalidArgument("member name must not be empty")
	}
	member, err := l.store.CreateMember(ctx, &store.Member{
		UID:         shortuuid.New(),
		Name:        name,
		Bio:         req.Bio,
		Specialties: req.Specialties,
		Needs:       req.Needs,
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to create member")
	}
	return member, nil
}

func (l *ledger) GetMember(ctx context.Context, id int32) (*store.Member, error) {
	member, err := l.store.GetMember(ctx, &store.FindMember{ID: &id})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to get member")
	}
	if member == nil {
		return nil, apperrors.NotFound("member not found").WithContext("member_id", id)
	}
	return member, nil
}

func (l *ledger) DeleteMember(ctx context.Context, id int32) error {
	err := l.store.DeleteMember(ctx, &store.DeleteMember{ID: id})
	return record(ctx, OpDeleteMember, true, err, "member_id", id)
}

// CreateCatalogItem creates the item and attaches its tags. Tags are
// submitted first so an invalid name leaves no item behind.
func (l *ledger) CreateCatalogItem(ctx context.Context, req *CreateCatalogItemRequest) (*store.CatalogItem, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.InvalidArgument("catalog item title must not be empty")
	}
	tagIDs, err := l.submitAll(ctx, req.TagNames, store.TagRoleCatalog)
	if err != nil {
		return nil, err
	}

	item, err := l.store.CreateCatalogItem(ctx, &store.CatalogItem{
		UID:         shortuuid.New(),
		Title:       title,
		Description: req.Description,
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to create catalog item")
	}
	if len(tagIDs) > 0 {
		if _, err := l.ReplaceSet(ctx, item.ID, store.TagRoleCatalog, tagIDs); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (l *ledger) DeleteCatalogItem(ctx context.Context, id int32) error {
	err := l.store.DeleteCatalogItem(ctx, &store.DeleteCatalogItem{ID: id})
	return record(ctx, OpDeleteCatalogItem, true, err, "catalog_item_id", id)
}
