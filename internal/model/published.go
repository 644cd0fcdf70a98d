package model

import (
	"encoding/json"
	"strings"
	"time"
)

// FeedType is the display vocabulary the shared feed uses for record types.
type FeedType string

const (
	FeedTypePourOver FeedType = "Pour Over"
	FeedTypeEspresso FeedType = "Espresso"
)

// FeedType translates an internal record type into the feed vocabulary.
func (t RecordType) FeedType() FeedType {
	if t == RecordTypePourOver {
		return FeedTypePourOver
	}
	return FeedTypeEspresso
}

// ParseFeedType accepts either vocabulary. An empty value is a pour-over;
// any other unrecognised label is kept as given.
func ParseFeedType(s string) FeedType {
	switch strings.TrimSpace(s) {
	case "", string(RecordTypePourOver), string(FeedTypePourOver):
		return FeedTypePourOver
	case string(RecordTypeEspresso), string(FeedTypeEspresso):
		return FeedTypeEspresso
	}
	return FeedType(strings.TrimSpace(s))
}

// PublishedRecord is the denormalized projection of a BrewRecord stored in
// the shared feed. (BeanID, UserID) is its natural key; ID is the stable
// document identity that survives republishing.
//
// The nested parameter blocks are kept as raw JSON objects so the feed
// carries whatever shape the publishing client sent.
type PublishedRecord struct {
	ID            string          `json:"_id"`
	BeanID        string          `json:"beanId"`
	UserID        string          `json:"userId"`
	UserName      string          `json:"userName"`
	UserAvatar    string          `json:"userAvatar"`
	BeanName      string          `json:"beanName"`
	Brand         string          `json:"brand"`
	Type          FeedType        `json:"type"`
	RoastLevel    string          `json:"roastLevel"`
	Origin        string          `json:"origin"`
	Altitude      string          `json:"altitude"`
	ProcessMethod string          `json:"processMethod"`
	RoastDate     string          `json:"roastDate"`
	PricePer100g  *float64        `json:"pricePer100g"`
	FlavorNotes   []string        `json:"flavorNotes"`
	Rating        float64         `json:"rating"`
	Remarks       string          `json:"remarks"`
	BrewParams    json.RawMessage `json:"brewParams"`
	ExtractParams json.RawMessage `json:"extractParams"`
	FlavorScores  json.RawMessage `json:"flavorScores"`
	Equipment     json.RawMessage `json:"equipment"`
	CreateTime    time.Time       `json:"createTime"`
	PublishTime   time.Time       `json:"publishTime"`
}

// PublishInput is the beanData payload of the publishRecord procedure.
// Field names follow the feed schema; ID is accepted as a fallback for BeanID.
type PublishInput struct {
	BeanID        string          `json:"beanId,omitempty"`
	ID            string          `json:"id,omitempty"`
	UserName      string          `json:"userName"`
	UserAvatar    string          `json:"userAvatar"`
	BeanName      string          `json:"beanName"`
	Brand         string          `json:"brand"`
	Type          string          `json:"type"`
	RoastLevel    string          `json:"roastLevel"`
	Origin        string          `json:"origin"`
	Altitude      string          `json:"altitude"`
	ProcessMethod string          `json:"processMethod"`
	RoastDate     string          `json:"roastDate"`
	PricePer100g  *float64        `json:"pricePer100g"`
	FlavorNotes   []string        `json:"flavorNotes"`
	Rating        *float64        `json:"rating"`
	Remarks       string          `json:"remarks,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	BrewParams    json.RawMessage `json:"brewParams,omitempty"`
	ExtractParams json.RawMessage `json:"extractParams,omitempty"`
	FlavorScores  json.RawMessage `json:"flavorScores,omitempty"`
	Equipment     json.RawMessage `json:"equipment,omitempty"`
	CreateTime    *time.Time      `json:"createTime,omitempty"`
}

// NewPublishInput maps a local record and the publishing identity onto the
// feed schema.
func NewPublishInput(r BrewRecord, id Identity) PublishInput {
	in := PublishInput{
		BeanID:        r.ID,
		UserName:      id.DisplayName,
		UserAvatar:    id.AvatarRef,
		BeanName:      r.Name,
		Brand:         r.Brand,
		Type:          string(r.Type),
		RoastLevel:    r.RoastLevel,
		Origin:        r.Origin,
		Altitude:      r.Altitude,
		ProcessMethod: r.ProcessMethod,
		RoastDate:     r.RoastDate,
		PricePer100g:  r.PricePer100g,
		FlavorNotes:   append([]string{}, r.Flavors...),
		Rating:        r.Rating,
		Remarks:       r.Remarks,
		FlavorScores:  mustJSON(r.FlavorScores),
		Equipment:     mustJSON(r.Equipment),
	}
	if r.BrewParams != nil {
		in.BrewParams = mustJSON(r.BrewParams)
	}
	if r.ExtractParams != nil {
		in.ExtractParams = mustJSON(r.ExtractParams)
	}
	if !r.CreatedAt.IsZero() {
		created := r.CreatedAt
		in.CreateTime = &created
	}
	return in
}

// EmptyObject is the stored form of an absent nested block.
var EmptyObject = json.RawMessage(`{}`)

// ObjectOrEmpty returns raw when it is a JSON object and {} otherwise.
func ObjectOrEmpty(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return EmptyObject
	}
	return json.RawMessage(trimmed)
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return EmptyObject
	}
	return data
}
