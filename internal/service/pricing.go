package service

import (
	"strings"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingItem 待计价的商品行
type PricingItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// PricingInput 计价输入
type PricingInput struct {
	UserID        uint
	Items         []PricingItem
	DeliveryType  string
	AddressID     *uint
	PickupPointID *uint
	UserCouponID  *uint
	PointsUsed    int
}

// PricingResult 计价结果，金额满足 final = max(0, total - discount + fee)
type PricingResult struct {
	Items           []models.OrderItem `json:"items"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	CouponDiscount  decimal.Decimal    `json:"coupon_discount"`
	PointsDiscount  decimal.Decimal    `json:"points_discount"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	FinalAmount     decimal.Decimal    `json:"final_amount"`
	PointsUsed      int                `json:"points_used"`
	ZoneID          *uint              `json:"zone_id,omitempty"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	UserCoupon      *models.UserCoupon `json:"-"`
}

// PricingResolver 计算订单金额的协作方
type PricingResolver interface {
	Resolve(tx *gorm.DB, input PricingInput) (*PricingResult, error)
}

// Discount 优惠钩子的计算结果
type Discount struct {
	Coupon     decimal.Decimal
	Points     decimal.Decimal
	UserCoupon *models.UserCoupon
}

// DiscountPolicy 可插拔的优惠计算钩子
type DiscountPolicy interface {
	Apply(tx *gorm.DB, input PricingInput, subtotal decimal.Decimal) (Discount, error)
}

// DefaultPricingResolver 商品快照 + 优惠钩子 + 配送区域运费
type DefaultPricingResolver struct {
	productRepo  repository.ProductRepository
	deliveryRepo repository.DeliveryRepository
	discount     DiscountPolicy
	maxItems     int
}

// NewPricingResolver 创建默认计价器
func NewPricingResolver(productRepo repository.ProductRepository, deliveryRepo repository.DeliveryRepository, discount DiscountPolicy, maxItems int) *DefaultPricingResolver {
	return &DefaultPricingResolver{
		productRepo:  productRepo,
		deliveryRepo: deliveryRepo,
		discount:     discount,
		maxItems:     maxItems,
	}
}

// Resolve 计算订单金额
func (r *DefaultPricingResolver) Resolve(tx *gorm.DB, input PricingInput) (*PricingResult, error) {
	if err := validateDeliveryInput(input); err != nil {
		return nil, err
	}
	lines, err := mergePricingItems(input.Items)
	if err != nil {
		return nil, err
	}
	if r.maxItems > 0 && len(lines) > r.maxItems {
		return nil, ErrTooManyOrderItems
	}

	productRepo := r.productRepo.WithTx(tx)
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := productRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productMap[product.ID] = product
	}

	result := &PricingResult{TotalAmount: decimal.Zero}
	for _, line := range lines {
		product, ok := productMap[line.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		if product.Status != constants.StatusEnabled {
			return nil, ErrProductUnavailable
		}
		if product.Stock < line.Quantity {
			return nil, &InsufficientStockError{ProductID: product.ID}
		}
		price := product.Price.Decimal.Round(2)
		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		result.Items = append(result.Items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Price:        models.NewMoneyFromDecimal(price),
			Quantity:     line.Quantity,
			Subtotal:     models.NewMoneyFromDecimal(subtotal),
		})
		result.TotalAmount = result.TotalAmount.Add(subtotal)
	}

	discount := Discount{Coupon: decimal.Zero, Points: decimal.Zero}
	if r.discount != nil {
		discount, err = r.discount.Apply(tx, input, result.TotalAmount)
		if err != nil {
			return nil, err
		}
	}
	result.CouponDiscount = discount.Coupon.Round(2)
	result.PointsDiscount = discount.Points.Round(2)
	result.DiscountAmount = result.CouponDiscount.Add(result.PointsDiscount)
	result.UserCoupon = discount.UserCoupon
	if discount.Points.GreaterThan(decimal.Zero) {
		result.PointsUsed = input.PointsUsed
	}

	if err := r.resolveDelivery(tx, input, result); err != nil {
		return nil, err
	}
	result.FinalAmount = computeFinalAmount(result.TotalAmount, result.DiscountAmount, result.DeliveryFee)
	return result, nil
}

func (r *DefaultPricingResolver) resolveDelivery(tx *gorm.DB, input PricingInput, result *PricingResult) error {
	repo := r.deliveryRepo.WithTx(tx)
	result.DeliveryFee = decimal.Zero
	switch input.DeliveryType {
	case constants.DeliveryTypeDelivery:
		address, err := repo.GetAddress(*input.AddressID, input.UserID)
		if err != nil {
			return err
		}
		if address == nil {
			return ErrDeliveryAddressRequired
		}
		result.DeliveryAddress = address.FullAddress()
		result.ZoneID = address.ZoneID
		if address.ZoneID == nil {
			return nil
		}
		zone, err := repo.GetZone(*address.ZoneID)
		if err != nil {
			return err
		}
		result.DeliveryFee = DeliveryFee(zone, result.TotalAmount)
	case constants.DeliveryTypePickup:
		point, err := repo.GetPickupPoint(*input.PickupPointID)
		if err != nil {
			return err
		}
		if point == nil {
			return ErrPickupPointRequired
		}
		result.ZoneID = point.ZoneID
	}
	return nil
}

// QuoteDeliveryFee 按区域预估配送费
func (r *DefaultPricingResolver) QuoteDeliveryFee(zoneID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if zoneID == 0 || amount.IsNegative() {
		return decimal.Zero, ErrDeliveryZoneUnavailable
	}
	zone, err := r.deliveryRepo.GetZone(zoneID)
	if err != nil {
		return decimal.Zero, err
	}
	if zone == nil {
		return decimal.Zero, ErrDeliveryZoneUnavailable
	}
	return DeliveryFee(zone, amount), nil
}

// DeliveryFee 满额免配送费，否则收取区域基础配送费
func DeliveryFee(zone *models.DeliveryZone, orderAmount decimal.Decimal) decimal.Decimal {
	if zone == nil {
		return decimal.Zero
	}
	if zone.FreeThreshold != nil && zone.FreeThreshold.Decimal.GreaterThan(decimal.Zero) &&
		orderAmount.GreaterThanOrEqual(zone.FreeThreshold.Decimal) {
		return decimal.Zero
	}
	return zone.BaseFee.Decimal.Round(2)
}

// computeFinalAmount final = total - discount + fee，最低为 0
func computeFinalAmount(total, discount, fee decimal.Decimal) decimal.Decimal {
	final := total.Sub(discount).Add(fee).Round(2)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

func validateDeliveryInput(input PricingInput) error {
	switch strings.TrimSpace(input.DeliveryType) {
	case constants.DeliveryTypeDelivery:
		if input.AddressID == nil || *input.AddressID == 0 {
			return ErrDeliveryAddressRequired
		}
	case constants.DeliveryTypePickup:
		if input.PickupPointID == nil || *input.PickupPointID == 0 {
			return ErrPickupPointRequired
		}
	default:
		return ErrDeliveryTypeInvalid
	}
	if input.PointsUsed < 0 {
		return ErrInvalidPoints
	}
	return nil
}

// mergePricingItems 合并重复商品的下单项
func mergePricingItems(items []PricingItem) ([]PricingItem, error) {
	if len(items) == 0 {
		return nil, ErrInvalidOrderItem
	}
	merged := make([]PricingItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrInvalidOrderItem
		}
		if idx, ok := index[item.ProductID]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// CouponPointsDiscount 默认优惠策略：优惠券 + 积分抵扣
type CouponPointsDiscount struct {
	coupons       CouponLedger
	userRepo      repository.UserRepository
	pointsPerYuan int
}

// NewCouponPointsDiscount 创建默认优惠策略
func NewCouponPointsDiscount(coupons CouponLedger, userRepo repository.UserRepository, pointsPerYuan int) *CouponPointsDiscount {
	if pointsPerYuan <= 0 {
		pointsPerYuan = 100
	}
	return &CouponPointsDiscount{coupons: coupons, userRepo: userRepo, pointsPerYuan: pointsPerYuan}
}

// Apply 先算优惠券，再以剩余金额为上限计算积分抵扣
func (p *CouponPointsDiscount) Apply(tx *gorm.DB, input PricingInput, subtotal decimal.Decimal) (Discount, error) {
	result := Discount{Coupon: decimal.Zero, Points: decimal.Zero}
	if input.UserCouponID != nil && *input.UserCouponID != 0 {
		if p.coupons == nil {
			return result, ErrCouponUnavailable
		}
		userCoupon, amount, err := p.coupons.CheckAvailable(tx, input.UserID, *input.UserCouponID, subtotal)
		if err != nil {
			return result, err
		}
		result.Coupon = amount
		result.UserCoupon = userCoupon
	}
	if input.PointsUsed > 0 {
		user, err := p.userRepo.WithTx(tx).GetByID(input.UserID)
		if err != nil {
			return result, err
		}
		if user == nil {
			return result, ErrUserNotFound
		}
		if user.TotalPoints < input.PointsUsed {
			return result, ErrPointsInsufficient
		}
		value := decimal.NewFromInt(int64(input.PointsUsed)).
			Div(decimal.NewFromInt(int64(p.pointsPerYuan))).
			Round(2)
		remaining := subtotal.Sub(result.Coupon)
		if value.GreaterThan(remaining) {
			return result, ErrInvalidPoints
		}
		result.Points = value
	}
	return result, nil
}
