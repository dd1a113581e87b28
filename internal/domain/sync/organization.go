package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrganizationNotFound   = errors.New("sync: organization not found")
	ErrOrganizationInvalidUID = errors.New("sync: organization UID is required")
	ErrOrganizationNotLinked  = errors.New("sync: organization has no linked shop")
)

// Organization is one independent tenant of the connector: a Connec
// company group linked to a single Shopify shop. The OAuth provider and
// uid double as the provider/realm halves of canonical id triples.
type Organization struct {
	ID   uuid.UUID
	UID  string
	Name string
	// Tenant is the Connec tenant the organization belongs to.
	Tenant string
	// OAuthProvider is the external platform identifier, "shopify".
	OAuthProvider string
	// OAuthUID is the linked shop identifier, used as the realm half
	// of canonical id triples.
	OAuthUID string
	// OAuthToken is the platform access token.
	OAuthToken string
	// ShopDomain is the myshopify domain of the linked store.
	ShopDomain string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOrganization creates an organization for the given uid and tenant.
func NewOrganization(uid, tenant string) (*Organization, error) {
	if uid == "" {
		return nil, ErrOrganizationInvalidUID
	}
	now := time.Now()
	return &Organization{
		ID:        uuid.New(),
		UID:       uid,
		Tenant:    tenant,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Linked reports whether the organization has completed OAuth linking
// and can reach its shop.
func (o *Organization) Linked() bool {
	return o.OAuthUID != "" && o.OAuthToken != ""
}

// LinkShop stores the OAuth grant obtained for a shop.
func (o *Organization) LinkShop(provider, oauthUID, token, shopDomain string) {
	o.OAuthProvider = provider
	o.OAuthUID = oauthUID
	o.OAuthToken = token
	o.ShopDomain = shopDomain
	o.UpdatedAt = time.Now()
}

// UnlinkShop clears the OAuth grant.
func (o *Organization) UnlinkShop() {
	o.OAuthUID = ""
	o.OAuthToken = ""
	o.UpdatedAt = time.Now()
}

// IDRefs builds the canonical id triple list for an id owned by this
// organization's shop.
func (o *Organization) IDRefs(id any) []Record {
	return IDRefList(id, o.OAuthProvider, o.OAuthUID)
}

// OrganizationRepository is the persistence contract for organizations.
type OrganizationRepository interface {
	FindByUID(ctx context.Context, uid string) (*Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	// FindLinked lists the organizations with a linked shop, the set a
	// scheduled pass covers.
	FindLinked(ctx context.Context) ([]*Organization, error)
	Save(ctx context.Context, org *Organization) error
}
