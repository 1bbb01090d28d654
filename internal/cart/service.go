package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/internal/catalog"
	"github.com/touchtrial/touchtrial-backend/internal/coupons"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

const applyCouponScope = "cart_coupon"

// AddItemRequest captures the payload for adding one phone to the cart.
type AddItemRequest struct {
	PhoneID uuid.UUID `json:"phone_id" validate:"required"`
	Variant string    `json:"variant,omitempty"`
	Color   string    `json:"color,omitempty"`
}

// ApplyCouponRequest carries the coupon code entered at checkout.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=32"`
}

// CartDTO is the cart snapshot plus derived pricing returned to clients.
type CartDTO struct {
	Items      []Item       `json:"items"`
	CouponCode string       `json:"coupon_code,omitempty"`
	Fees       FeeBreakdown `json:"fees"`
}

// Service exposes cart mutations and pricing for the storefront.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (CartDTO, error)
	RemoveItem(ctx context.Context, userID, phoneID uuid.UUID) (CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (CartDTO, bool, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	IsInCart(ctx context.Context, userID, phoneID uuid.UUID) (bool, error)
}

type phoneCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.PhoneDTO, error)
}

type couponValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, code string) (coupons.Validation, error)
}

type inFlightGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	InFlightKey(scope, id string) string
}

type service struct {
	store       Store
	catalog     phoneCatalog
	coupons     couponValidator
	guard       inFlightGuard
	inFlightTTL time.Duration
	now         func() time.Time
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Store           Store
	Catalog         phoneCatalog
	CouponValidator couponValidator
	Guard           inFlightGuard
	InFlightTTL     time.Duration
	Now             func() time.Time
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if params.CouponValidator == nil {
		return nil, fmt.Errorf("coupon validator is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("in-flight guard is required")
	}
	ttl := params.InFlightTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:       params.Store,
		catalog:     params.Catalog,
		coupons:     params.CouponValidator,
		guard:       params.Guard,
		inFlightTTL: ttl,
		now:         now,
	}, nil
}

// Get returns the current cart with its derived fees.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	state, err := s.load(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	return toDTO(state), nil
}

// AddItem validates the listing and merges it into the cart. Adding a phone
// that is already present updates only the fields the request provides.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (CartDTO, error) {
	if req.PhoneID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "phone id is required")
	}

	state, err := s.load(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}

	phone, err := s.catalog.Get(ctx, req.PhoneID)
	if err != nil {
		return CartDTO{}, err
	}

	if req.Variant != "" && !contains(phone.Variants, req.Variant) {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown variant for this phone")
	}
	if req.Color != "" && !contains(phone.Colors, req.Color) {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown color for this phone")
	}

	if existing := indexOf(state.Items, req.PhoneID); existing >= 0 {
		if req.Variant != "" {
			state.Items[existing].Variant = req.Variant
		}
		if req.Color != "" {
			state.Items[existing].Color = req.Color
		}
		if err := s.store.Save(ctx, userID, state); err != nil {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
		return toDTO(state), nil
	}

	variant := req.Variant
	if variant == "" {
		variant = phone.DefaultVariant()
	}
	color := req.Color
	if color == "" {
		color = phone.DefaultColor()
	}

	state.Items = append(state.Items, Item{
		PhoneID:   phone.ID,
		PhoneName: phone.Name,
		Brand:     phone.Brand,
		Variant:   variant,
		Color:     color,
		AddedAt:   s.now().UTC(),
	})

	if err := s.store.Save(ctx, userID, state); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return toDTO(state), nil
}

// RemoveItem drops the phone from the cart. Removing an absent phone is a no-op.
func (s *service) RemoveItem(ctx context.Context, userID, phoneID uuid.UUID) (CartDTO, error) {
	state, err := s.load(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}

	filtered := make([]Item, 0, len(state.Items))
	for _, item := range state.Items {
		if item.PhoneID != phoneID {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == len(state.Items) {
		return toDTO(state), nil
	}
	state.Items = filtered

	if err := s.store.Save(ctx, userID, state); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return toDTO(state), nil
}

// Clear wipes the cart including any applied coupon.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ApplyCoupon validates the code and attaches the discount to the cart.
// The boolean reports whether the coupon was accepted; rejection leaves
// existing cart state untouched. A second concurrent apply for the same user
// is refused outright.
func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (CartDTO, bool, error) {
	guardKey := s.guard.InFlightKey(applyCouponScope, userID.String())
	acquired, err := s.guard.SetNX(ctx, guardKey, "1", s.inFlightTTL)
	if err != nil {
		return CartDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire coupon guard")
	}
	if !acquired {
		return CartDTO{}, false, pkgerrors.New(pkgerrors.CodeConflict, "coupon application already in progress")
	}
	defer func() {
		_ = s.guard.Del(ctx, guardKey)
	}()

	state, err := s.load(ctx, userID)
	if err != nil {
		return CartDTO{}, false, err
	}

	result, err := s.coupons.Validate(ctx, userID, code)
	if err != nil || !result.Valid {
		return toDTO(state), false, nil
	}

	state.CouponCode = result.Code
	state.CouponDiscount = result.DiscountAmount
	if err := s.store.Save(ctx, userID, state); err != nil {
		return CartDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return toDTO(state), true, nil
}

// RemoveCoupon detaches any applied coupon, restoring undiscounted pricing.
func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	state, err := s.load(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	if state.CouponCode == "" && state.CouponDiscount == 0 {
		return toDTO(state), nil
	}
	state.CouponCode = ""
	state.CouponDiscount = 0
	if err := s.store.Save(ctx, userID, state); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return toDTO(state), nil
}

// IsInCart reports whether the phone is currently selected.
func (s *service) IsInCart(ctx context.Context, userID, phoneID uuid.UUID) (bool, error) {
	state, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return state.Contains(phoneID), nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (State, error) {
	if userID == uuid.Nil {
		return State{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	state, err := s.store.Load(ctx, userID)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return state, nil
}

func toDTO(state State) CartDTO {
	items := state.Items
	if items == nil {
		items = []Item{}
	}
	return CartDTO{
		Items:      items,
		CouponCode: state.CouponCode,
		Fees:       ComputeFees(len(state.Items), state.CouponDiscount),
	}
}

func indexOf(items []Item, phoneID uuid.UUID) int {
	for i, item := range items {
		if item.PhoneID == phoneID {
			return i
		}
	}
	return -1
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
