package cart

// Trial experience fee schedule. Amounts are in the smallest currency unit.
const (
	// BasePhoneLimit is how many phones a trial covers before surcharges apply.
	BasePhoneLimit = 5
	// ExtraPhoneUnitCharge applies to each phone beyond the base limit.
	ExtraPhoneUnitCharge = 69
	// DepositFee is the refundable deposit charged on any non-empty cart.
	DepositFee = 399
	// ConvenienceFee covers delivery and pickup on any non-empty cart.
	ConvenienceFee = 100
)

// FeeBreakdown is the fully derived trial pricing for a cart.
type FeeBreakdown struct {
	ItemCount        int `json:"item_count"`
	DepositFee       int `json:"deposit_fee"`
	ConvenienceFee   int `json:"convenience_fee"`
	ExtraPhoneCharge int `json:"extra_phone_charge"`
	GrossFee         int `json:"gross_fee"`
	CouponDiscount   int `json:"coupon_discount"`
	TotalAmount      int `json:"total_amount"`
}

// ComputeFees derives the trial fees from the item count and coupon discount.
// An empty cart prices to zero even if stale coupon state is still present,
// and the total never goes negative.
func ComputeFees(itemCount, couponDiscount int) FeeBreakdown {
	breakdown := FeeBreakdown{ItemCount: itemCount}
	if itemCount <= 0 {
		return breakdown
	}

	extraPhones := itemCount - BasePhoneLimit
	if extraPhones < 0 {
		extraPhones = 0
	}

	breakdown.DepositFee = DepositFee
	breakdown.ConvenienceFee = ConvenienceFee
	breakdown.ExtraPhoneCharge = extraPhones * ExtraPhoneUnitCharge
	breakdown.GrossFee = breakdown.DepositFee + breakdown.ConvenienceFee + breakdown.ExtraPhoneCharge
	breakdown.CouponDiscount = couponDiscount

	total := breakdown.GrossFee - couponDiscount
	if total < 0 {
		total = 0
	}
	breakdown.TotalAmount = total
	return breakdown
}
