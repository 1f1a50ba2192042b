package dine

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// Restaurant is one catalog entry. Coordinates are kept as text because the
// catalog mixes string and numeric forms.
type Restaurant struct {
	ID        string `json:"id,omitempty"`
	Category  string `json:"category"`
	Company   string `json:"company"`
	Address   string `json:"address"`
	URL       string `json:"url"`
	MenuLink  string `json:"menulink"`
	FaceLink  string `json:"facelink"`
	GoogLink  string `json:"googlink"`
	WikiLink  string `json:"wikilink"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// YelpData is the business summary stored with a rating. Rating is nil when
// unknown.
type YelpData struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Price       string   `json:"price"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	URL         string   `json:"url,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

// Unrated is shown for restaurants with no rating entry.
func Unrated() YelpData {
	return YelpData{Price: "N/A"}
}

// Rating is one entry of the ratings dataset.
type Rating struct {
	RestaurantID   string          `json:"restaurant_id"`
	Company        string          `json:"company"`
	YelpBusinessID string          `json:"yelp_business_id"`
	YelpData       YelpData        `json:"yelp_data"`
	Reviews        json.RawMessage `json:"reviews,omitempty"`
}

// ParseRestaurants accepts either a bare array or the {"restaurants": [...]}
// envelope. Fields of the wrong type read as empty.
func ParseRestaurants(data []byte) ([]Restaurant, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid restaurant data: malformed json")
	}
	root := gjson.ParseBytes(data)
	if root.IsObject() {
		root = root.Get("restaurants")
	}
	if !root.IsArray() {
		return nil, errors.New("invalid restaurant data format")
	}
	out := []Restaurant{}
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, parseRestaurant(v))
		}
		return true
	})
	return out, nil
}

func parseRestaurant(v gjson.Result) Restaurant {
	return Restaurant{
		ID:        scalar(v.Get("id")),
		Category:  scalar(v.Get("category")),
		Company:   scalar(v.Get("company")),
		Address:   scalar(v.Get("address")),
		URL:       scalar(v.Get("url")),
		MenuLink:  scalar(v.Get("menulink")),
		FaceLink:  scalar(v.Get("facelink")),
		GoogLink:  scalar(v.Get("googlink")),
		WikiLink:  scalar(v.Get("wikilink")),
		Latitude:  scalar(v.Get("latitude")),
		Longitude: scalar(v.Get("longitude")),
	}
}

// ParseRatings reads the ratings dataset, a bare array.
func ParseRatings(data []byte) ([]Rating, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid ratings data: malformed json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("invalid ratings data format")
	}
	out := []Rating{}
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, parseRating(v))
		}
		return true
	})
	return out, nil
}

func parseRating(v gjson.Result) Rating {
	r := Rating{
		RestaurantID:   scalar(v.Get("restaurant_id")),
		Company:        scalar(v.Get("company")),
		YelpBusinessID: scalar(v.Get("yelp_business_id")),
		YelpData:       ParseYelpData(v.Get("yelp_data")),
	}
	if reviews := v.Get("reviews"); reviews.IsArray() {
		r.Reviews = json.RawMessage(reviews.Raw)
	}
	return r
}

// ParseYelpData reads a Yelp business object.
func ParseYelpData(v gjson.Result) YelpData {
	y := YelpData{
		ID:    scalar(v.Get("id")),
		Name:  scalar(v.Get("name")),
		Price: scalar(v.Get("price")),
		Phone: scalar(v.Get("phone")),
		URL:   scalar(v.Get("url")),
	}
	if rating := v.Get("rating"); rating.Type == gjson.Number {
		f := rating.Num
		y.Rating = &f
	}
	if count := v.Get("review_count"); count.Type == gjson.Number {
		y.ReviewCount = int(count.Int())
	}
	v.Get("photos").ForEach(func(_, p gjson.Result) bool {
		if p.Type == gjson.String {
			y.Photos = append(y.Photos, p.Str)
		}
		return true
	})
	return y
}

// scalar reads strings and numbers as text; anything else is empty.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	}
	return ""
}
