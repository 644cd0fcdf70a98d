// Package model defines the data structures used throughout the application.
//
// BrewRecord has gone through several stored shapes. The current one keeps
// remarks, a five-dimension flavor score block, and nullable numeric brew
// parameters. Older builds wrote notes instead of remarks, bitterness instead
// of aroma, and scored pour-overs on body instead of balance. All of that is
// reconciled here, in CreateRecord and NormalizeRecord, so no caller ever
// has to ask which version a record came from.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/brewlog/internal/apperror"
)

// RecordType distinguishes the two brew variants.
type RecordType string

const (
	RecordTypePourOver RecordType = "pourOver"
	RecordTypeEspresso RecordType = "espresso"
)

// ParseRecordType maps a stored or user-supplied type. Anything that is not
// espresso is a pour-over, matching how records were always read back.
func ParseRecordType(s string) RecordType {
	if RecordType(strings.TrimSpace(s)) == RecordTypeEspresso {
		return RecordTypeEspresso
	}
	return RecordTypePourOver
}

// RoastLevels lists the standard roast levels from lightest to darkest.
// Records may also carry a custom label.
var RoastLevels = []string{"浅烘", "中浅烘", "中烘", "中深烘", "深烘"}

// RoastRank returns the position of level in RoastLevels, or -1 for a
// custom label.
func RoastRank(level string) int {
	for i, l := range RoastLevels {
		if l == level {
			return i
		}
	}
	return -1
}

// DefaultFlavorTags are offered as quick picks when tagging a brew.
var DefaultFlavorTags = []string{"花香", "柑橘", "果酸", "坚果", "巧克力", "焦糖"}

const (
	MinRating = 0
	MaxRating = 5
)

type Equipment struct {
	Brewer  string `json:"brewer"`
	Grinder string `json:"grinder"`
}

// BrewParams are the pour-over parameters. Weights are grams, temperature
// is °C and time is seconds. A nil value means "not recorded".
type BrewParams struct {
	CoffeeWeight *float64 `json:"coffeeWeight"`
	WaterWeight  *float64 `json:"waterWeight"`
	Temperature  *float64 `json:"temperature"`
	Time         *float64 `json:"time"`
	GrindSize    string   `json:"grindSize"`
}

// ExtractParams are the espresso parameters.
type ExtractParams struct {
	CoffeeWeight *float64 `json:"coffeeWeight"`
	OutputWeight *float64 `json:"outputWeight"`
	Temperature  *float64 `json:"temperature"`
	Time         *float64 `json:"time"`
	GrindSize    string   `json:"grindSize"`
}

// FlavorScores holds the canonical scoring dimensions. Pour-overs are not
// scored on body, so Body is always 0 for them.
type FlavorScores struct {
	Aroma     float64 `json:"aroma"`
	Acidity   float64 `json:"acidity"`
	Sweetness float64 `json:"sweetness"`
	Balance   float64 `json:"balance"`
	Body      float64 `json:"body"`
}

// BrewRecord is one logged brew. Remarks is canonical; Notes mirrors it so
// readers of either name see the same text.
type BrewRecord struct {
	ID            string         `json:"id"`
	Type          RecordType     `json:"type"`
	Name          string         `json:"name"       validate:"required"`
	Brand         string         `json:"brand"      validate:"required"`
	RoastLevel    string         `json:"roastLevel" validate:"required"`
	Origin        string         `json:"origin"`
	Altitude      string         `json:"altitude"`
	ProcessMethod string         `json:"processMethod"`
	RoastDate     string         `json:"roastDate"`
	PricePer100g  *float64       `json:"pricePer100g"`
	Remarks       string         `json:"remarks"`
	Notes         string         `json:"notes"`
	Rating        *float64       `json:"rating"     validate:"required,gte=0,lte=5"`
	Flavors       []string       `json:"flavors"`
	CoverImage    string         `json:"coverImage"`
	Equipment     Equipment      `json:"equipment"`
	BrewParams    *BrewParams    `json:"brewParams,omitempty"`
	ExtractParams *ExtractParams `json:"extractParams,omitempty"`
	FlavorScores  FlavorScores   `json:"flavorScores"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewID returns a fresh globally unique identifier.
func NewID() string {
	return xid.New().String()
}

// CreateRecord builds a fully shaped record of type t from p. Every field is
// defaulted and the type-specific parameter block always exists. It never
// fails; required fields are checked separately before a save.
func CreateRecord(t RecordType, p Payload) BrewRecord {
	if p == nil {
		p = Payload{}
	}
	now := time.Now()

	r := BrewRecord{
		ID:            p.String("id"),
		Type:          t,
		Name:          p.String("name"),
		Brand:         p.String("brand"),
		RoastLevel:    p.String("roastLevel"),
		Origin:        p.String("origin"),
		Altitude:      p.String("altitude"),
		ProcessMethod: p.String("processMethod"),
		RoastDate:     p.String("roastDate"),
		PricePer100g:  normalizePrice(p.Number("pricePer100g")),
		Remarks:       p.FirstString("remarks", "notes"),
		Rating:        NormalizeRating(p["rating"]),
		Flavors:       dedupeFlavors(p.Strings("flavors")),
		CoverImage:    p.String("coverImage"),
		FlavorScores:  NormalizeFlavorScores(p.Object("flavorScores"), t),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if r.ID == "" {
		r.ID = NewID()
	}
	r.Notes = r.Remarks

	eq := p.Object("equipment")
	r.Equipment = Equipment{Brewer: eq.String("brewer"), Grinder: eq.String("grinder")}

	if created, ok := p.Time("createdAt"); ok {
		r.CreatedAt = created
	}
	if updated, ok := p.Time("updatedAt"); ok {
		r.UpdatedAt = updated
	}

	switch t {
	case RecordTypeEspresso:
		ep := p.Object("extractParams")
		r.ExtractParams = &ExtractParams{
			CoffeeWeight: ep.Number("coffeeWeight"),
			OutputWeight: ep.Number("outputWeight"),
			Temperature:  ep.Number("temperature"),
			Time:         ep.Number("time"),
			GrindSize:    ep.String("grindSize"),
		}
	default:
		bp := p.Object("brewParams")
		r.BrewParams = &BrewParams{
			CoffeeWeight: bp.Number("coffeeWeight"),
			WaterWeight:  bp.Number("waterWeight"),
			Temperature:  bp.Number("temperature"),
			Time:         bp.Number("time"),
			GrindSize:    bp.String("grindSize"),
		}
	}

	return r
}

// NormalizeRecord is the read-time adapter for any stored shape. It picks
// the variant from the payload's own type field.
func NormalizeRecord(p Payload) BrewRecord {
	if p == nil {
		return CreateRecord(RecordTypePourOver, nil)
	}
	return CreateRecord(ParseRecordType(p.String("type")), p)
}

// NormalizeFlavorScores maps raw scores onto the canonical dimensions.
//
//	aroma   = aroma, else legacy bitterness
//	balance = balance, else legacy body (pour-over only)
//	body    = body for espresso, always 0 for pour-over
//
// Missing or non-numeric inputs read as 0.
func NormalizeFlavorScores(raw Payload, t RecordType) FlavorScores {
	if raw == nil {
		raw = Payload{}
	}
	first := func(keys ...string) float64 {
		for _, k := range keys {
			if v := raw.Number(k); v != nil {
				return *v
			}
		}
		return 0
	}

	scores := FlavorScores{
		Aroma:     first("aroma", "bitterness"),
		Acidity:   first("acidity"),
		Sweetness: first("sweetness"),
	}
	if t == RecordTypeEspresso {
		scores.Balance = first("balance")
		scores.Body = first("body")
	} else {
		scores.Balance = first("balance", "body")
	}
	return scores
}

// NormalizeRating clamps a rating into [0,5] at one decimal. Absent or
// non-numeric input stays absent.
func NormalizeRating(v any) *float64 {
	f := ParseNumber(v)
	if f == nil {
		return nil
	}
	r := round1(math.Min(MaxRating, math.Max(MinRating, *f)))
	return &r
}

func normalizePrice(f *float64) *float64 {
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

func dedupeFlavors(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// AddFlavor appends a tag. Exact duplicates are rejected; "Floral" and
// "floral" are distinct tags.
func (r *BrewRecord) AddFlavor(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return apperror.ValidationFailed("flavors", "flavor tag must not be empty")
	}
	for _, existing := range r.Flavors {
		if existing == tag {
			return apperror.Conflict("flavor", tag)
		}
	}
	r.Flavors = append(r.Flavors, tag)
	return nil
}

// RemoveFlavor drops tag if present.
func (r *BrewRecord) RemoveFlavor(tag string) {
	out := r.Flavors[:0]
	for _, existing := range r.Flavors {
		if existing != tag {
			out = append(out, existing)
		}
	}
	r.Flavors = out
}

// SetRemarks keeps both the current and the legacy field in step.
func (r *BrewRecord) SetRemarks(s string) {
	r.Remarks = s
	r.Notes = s
}

// Ratio is the brew ratio for the record's variant: water/coffee for a
// pour-over, output/coffee for espresso. Empty unless both weights are > 0.
func (r BrewRecord) Ratio() string {
	switch r.Type {
	case RecordTypeEspresso:
		if r.ExtractParams == nil {
			return ""
		}
		return Ratio(r.ExtractParams.CoffeeWeight, r.ExtractParams.OutputWeight)
	default:
		if r.BrewParams == nil {
			return ""
		}
		return Ratio(r.BrewParams.CoffeeWeight, r.BrewParams.WaterWeight)
	}
}

// Ratio formats liquid/coffee to one decimal. Both operands must be
// present and strictly positive.
func Ratio(coffee, liquid *float64) string {
	if coffee == nil || liquid == nil || *coffee <= 0 || *liquid <= 0 {
		return ""
	}
	return strconv.FormatFloat(*liquid / *coffee, 'f', 1, 64)
}

// FormatRatio renders a ratio as "1:16.7", or "" when there is none.
func FormatRatio(ratio string) string {
	if ratio == "" {
		return ""
	}
	return "1:" + ratio
}

// FormatRating renders a rating as "4.5". Unrated records show "0.0".
func FormatRating(rating *float64) string {
	if rating == nil || *rating <= 0 {
		return "0.0"
	}
	return strconv.FormatFloat(*rating, 'f', 1, 64)
}

// FormatDate renders a timestamp as yy-mm-dd, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("06-01-02")
}

// RatingValue is the rating or 0 when unrated.
func (r BrewRecord) RatingValue() float64 {
	return valueOr(r.Rating, 0)
}
