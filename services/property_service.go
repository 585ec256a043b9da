package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/models"
	"go.uber.org/zap"
)

const earthRadiusKm = 6371.0

// FlexibleValue keeps the raw JSON of a field that clients send either as a number or as a
// string, so the service can report which field was malformed.
type FlexibleValue struct {
	raw   string
	isSet bool
}

func (v *FlexibleValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = FlexibleValue{}
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	*v = FlexibleValue{raw: s, isSet: s != ""}
	return nil
}

// Flex builds a FlexibleValue from a raw string, as query parameters arrive.
func Flex(s string) FlexibleValue {
	s = strings.TrimSpace(s)
	return FlexibleValue{raw: s, isSet: s != ""}
}

func (v FlexibleValue) Set() bool { return v.isSet }

func (v FlexibleValue) Float() (float64, bool) {
	f, err := strconv.ParseFloat(v.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (v FlexibleValue) Int() (int, bool) {
	i, err := strconv.Atoi(v.raw)
	return i, err == nil
}

// GalleryList accepts an array, a JSON encoded array string, or a comma separated string.
type GalleryList []string

func (g *GalleryList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = cleanList(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperrors.Validation("gallery_images must be a list of URLs")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*g = cleanList(list)
			return nil
		}
	}
	*g = cleanList(strings.Split(s, ","))
	return nil
}

type PropertyInput struct {
	Title         string        `json:"title" validate:"required,max=255"`
	Location      string        `json:"location" validate:"required,max=255"`
	Price         FlexibleValue `json:"price"`
	Description   string        `json:"description"`
	Rooms         FlexibleValue `json:"rooms"`
	PropertyType  string        `json:"property_type" validate:"max=60"`
	MainImageURL  string        `json:"main_image_url" validate:"omitempty,url,max=512"`
	GalleryImages GalleryList   `json:"gallery_images"`
	Latitude      *float64      `json:"latitude"`
	Longitude     *float64      `json:"longitude"`

	// Older clients send these names.
	MainImage        string      `json:"mainImage"`
	GalleryImageURLs GalleryList `json:"gallery_image_urls"`
	GalleryCamel     GalleryList `json:"galleryImages"`
}

func (in PropertyInput) gallery() []string {
	for _, g := range []GalleryList{in.GalleryImages, in.GalleryCamel, in.GalleryImageURLs} {
		if g != nil {
			return g
		}
	}
	return []string{}
}

type PropertyFilter struct {
	MinPrice FlexibleValue
	MaxPrice FlexibleValue
	RoomsMin FlexibleValue
	RoomsMax FlexibleValue
	Cities   string
	Search   string
	OwnerID  *uint
	Lat      FlexibleValue
	Lng      FlexibleValue
	RadiusKm FlexibleValue
}

// PropertyView is a listing as shown to clients, with its owner's public details.
type PropertyView struct {
	models.Property
	OwnerName     string   `json:"owner_name"`
	OwnerImageURL *string  `json:"owner_image_url"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
}

type PropertyService struct {
	properties PropertyStore
	log        *zap.Logger
}

func NewPropertyService(properties PropertyStore, log *zap.Logger) *PropertyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PropertyService{properties: properties, log: log}
}

func (s *PropertyService) List(ctx context.Context, f PropertyFilter) ([]PropertyView, error) {
	q := PropertyQuery{OwnerID: f.OwnerID, Search: strings.TrimSpace(f.Search)}

	var err error
	if q.MinPrice, err = optionalFloat(f.MinPrice, "min_price"); err != nil {
		return nil, err
	}
	if q.MaxPrice, err = optionalFloat(f.MaxPrice, "max_price"); err != nil {
		return nil, err
	}
	if q.RoomsMin, err = optionalInt(f.RoomsMin, "rooms_min"); err != nil {
		return nil, err
	}
	if q.RoomsMax, err = optionalInt(f.RoomsMax, "rooms_max"); err != nil {
		return nil, err
	}
	q.Cities = cleanList(strings.Split(f.Cities, ","))

	var center *[2]float64
	var radius float64
	if f.Lat.Set() || f.Lng.Set() || f.RadiusKm.Set() {
		lat, okLat := f.Lat.Float()
		lng, okLng := f.Lng.Float()
		r, okR := f.RadiusKm.Float()
		if !okLat || !okLng || !okR || lat < -90 || lat > 90 || lng < -180 || lng > 180 || r <= 0 {
			return nil, apperrors.Validation("lat, lng and radius_km must be given together as valid numbers.")
		}
		center, radius = &[2]float64{lat, lng}, r
		q.Bounds = boundingBox(lat, lng, r)
	}

	props, err := s.properties.ListProperties(ctx, q)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}

	views := make([]PropertyView, 0, len(props))
	for _, p := range props {
		v := toView(p)
		if center != nil {
			if p.Latitude == nil || p.Longitude == nil {
				continue
			}
			d := HaversineKm(center[0], center[1], *p.Latitude, *p.Longitude)
			if d > radius {
				continue
			}
			v.DistanceKm = &d
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *PropertyService) Get(ctx context.Context, id uint) (*PropertyView, error) {
	p, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal("Property", err)
	}
	v := toView(*p)
	return &v, nil
}

func (s *PropertyService) Create(ctx context.Context, ownerID uint, in PropertyInput) (*PropertyView, error) {
	p := &models.Property{UserID: ownerID}
	if err := applyPropertyInput(p, in); err != nil {
		return nil, err
	}
	if err := s.properties.CreateProperty(ctx, p); err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	s.log.Info("property created", zap.Uint("property_id", p.ID), zap.Uint("owner_id", ownerID))
	return s.Get(ctx, p.ID)
}

func (s *PropertyService) Update(ctx context.Context, ownerID, id uint, in PropertyInput) (*PropertyView, error) {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := applyPropertyInput(p, in); err != nil {
		return nil, err
	}
	if err := s.properties.SaveProperty(ctx, p); err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	return s.Get(ctx, p.ID)
}

// Delete removes the listing; conversations scoped to it go with it.
func (s *PropertyService) Delete(ctx context.Context, ownerID, id uint) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.properties.DeleteProperty(ctx, id); err != nil {
		return notFoundOrInternal("Property", err)
	}
	s.log.Info("property deleted", zap.Uint("property_id", id), zap.Uint("owner_id", ownerID))
	return nil
}

func (s *PropertyService) owned(ctx context.Context, ownerID, id uint) (*models.Property, error) {
	p, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal("Property", err)
	}
	if p.UserID != ownerID {
		return nil, apperrors.AccessDenied("You can only change your own listings.")
	}
	return p, nil
}

func applyPropertyInput(p *models.Property, in PropertyInput) error {
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	if title == "" || location == "" || !in.Price.Set() {
		return apperrors.Validation("Missing required fields")
	}
	price, ok := in.Price.Float()
	if !ok || price < 0 {
		return apperrors.Validation("Invalid price")
	}
	rooms, err := optionalInt(in.Rooms, "rooms")
	if err != nil {
		return apperrors.Validation("Invalid rooms value")
	}
	if rooms != nil && *rooms < 0 {
		return apperrors.Validation("Invalid rooms value")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return apperrors.Validation("latitude and longitude must be given together")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180) {
		return apperrors.Validation("Invalid coordinates")
	}

	gallery := in.gallery()
	mainImage := optionalText(in.MainImageURL)
	if mainImage == nil {
		mainImage = optionalText(in.MainImage)
	}
	if mainImage == nil && len(gallery) > 0 {
		first := gallery[0]
		mainImage = &first
	}

	p.Title = title
	p.Location = location
	p.Price = price
	p.Description = optionalText(in.Description)
	p.Rooms = rooms
	p.PropertyType = optionalText(in.PropertyType)
	p.MainImageURL = mainImage
	p.GalleryImages = gallery
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	return nil
}

func toView(p models.Property) PropertyView {
	return PropertyView{
		Property:      p,
		OwnerName:     p.Owner.Name,
		OwnerImageURL: p.Owner.ProfileImageURL,
	}
}

// HaversineKm is the great-circle distance between two coordinates in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// boundingBox prefilters in the store; it always contains the radius circle.
func boundingBox(lat, lng, radiusKm float64) *GeoBounds {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	cos := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-6 {
		dLng = math.Min(180, dLat/cos)
	}
	return &GeoBounds{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: math.Max(-180, lng-dLng),
		MaxLng: math.Min(180, lng+dLng),
	}
}

func optionalFloat(v FlexibleValue, field string) (*float64, error) {
	if !v.Set() {
		return nil, nil
	}
	f, ok := v.Float()
	if !ok {
		return nil, apperrors.Validation("Invalid " + field)
	}
	return &f, nil
}

func optionalInt(v FlexibleValue, field string) (*int, error) {
	if !v.Set() {
		return nil, nil
	}
	i, ok := v.Int()
	if !ok {
		return nil, apperrors.Validation("Invalid " + field)
	}
	return &i, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
