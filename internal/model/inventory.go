package model

import "time"

// BeanStatus is derived from the remaining weight on every write.
type BeanStatus string

const (
	BeanStatusInStock   BeanStatus = "in_stock"
	BeanStatusNearEmpty BeanStatus = "near_empty"
	BeanStatusFinished  BeanStatus = "finished"
)

// NearEmptyThreshold is the remaining weight, in grams, at or below which a
// bean counts as nearly used up.
const NearEmptyThreshold = 20.0

// DefaultInventoryRoast is used when a bean is stocked without a roast level.
const DefaultInventoryRoast = "浅烘"

// InventoryBean is a bag of beans on the user's shelf.
type InventoryBean struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"          validate:"required"`
	Brand         string     `json:"brand"`
	RoastLevel    string     `json:"roastLevel"`
	Origin        string     `json:"origin"`
	TotalWeight   float64    `json:"totalWeight"   validate:"gte=0"`
	CurrentWeight float64    `json:"currentWeight" validate:"gte=0"`
	Status        BeanStatus `json:"status"`
	RoastDate     string     `json:"roastDate"`
	OpenDate      string     `json:"openDate"`
	Notes         string     `json:"notes"`
	CreateTime    time.Time  `json:"createTime"`
	UpdateTime    time.Time  `json:"updateTime"`
}

// BeanInput is the upsert payload. A nil CurrentWeight means a full bag.
type BeanInput struct {
	ID            string
	Name          string
	Brand         string
	RoastLevel    string
	Origin        string
	TotalWeight   float64
	CurrentWeight *float64
	Status        BeanStatus
	RoastDate     string
	OpenDate      string
	Notes         string
}

// DeriveStatus computes a bean's status. An explicit finished always wins;
// otherwise the remaining weight decides.
func DeriveStatus(currentWeight float64, explicit BeanStatus) BeanStatus {
	if explicit == BeanStatusFinished || currentWeight <= 0 {
		return BeanStatusFinished
	}
	if currentWeight <= NearEmptyThreshold {
		return BeanStatusNearEmpty
	}
	return BeanStatusInStock
}

// NormalizeBean shapes an upsert payload into a stored bean. The current
// weight defaults to the total, is clamped to the total when one is known,
// and never drops below zero.
func NormalizeBean(in BeanInput, now time.Time) InventoryBean {
	total := in.TotalWeight
	if total < 0 {
		total = 0
	}
	current := total
	if in.CurrentWeight != nil {
		current = *in.CurrentWeight
	}
	if total > 0 && current > total {
		current = total
	}
	if current < 0 {
		current = 0
	}

	b := InventoryBean{
		ID:            in.ID,
		Name:          in.Name,
		Brand:         in.Brand,
		RoastLevel:    in.RoastLevel,
		Origin:        in.Origin,
		TotalWeight:   total,
		CurrentWeight: current,
		Status:        DeriveStatus(current, in.Status),
		RoastDate:     in.RoastDate,
		OpenDate:      in.OpenDate,
		Notes:         in.Notes,
		CreateTime:    now,
		UpdateTime:    now,
	}
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.RoastLevel == "" {
		b.RoastLevel = DefaultInventoryRoast
	}
	return b
}

// InventoryStats summarises a shelf. InStock includes NearEmpty.
type InventoryStats struct {
	Total     int `json:"total"`
	InStock   int `json:"inStock"`
	Finished  int `json:"finished"`
	NearEmpty int `json:"nearEmpty"`
}
