package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/anjiri1684/smart_roommate/services/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeProperty(t *testing.T, body string) services.PropertyInput {
	t.Helper()
	var in services.PropertyInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func TestCreatePropertyAcceptsFlexibleFields(t *testing.T) {
	store := storetest.NewMemory()
	svc := services.NewPropertyService(store, zap.NewNop())
	owner := store.AddUser("Owner")
	ctx := context.Background()

	cases := map[string]struct {
		body    string
		price   float64
		gallery []string
	}{
		"numeric price, array gallery": {
			body:    `{"title": "Bedsitter", "location": "Nairobi", "price": 15000, "gallery_images": ["a.jpg", " b.jpg "]}`,
			price:   15000,
			gallery: []string{"a.jpg", "b.jpg"},
		},
		"string price, encoded gallery": {
			body:    `{"title": "Studio", "location": "Nairobi", "price": "12500.50", "gallery_images": "[\"c.jpg\"]"}`,
			price:   12500.50,
			gallery: []string{"c.jpg"},
		},
		"comma gallery": {
			body:    `{"title": "Shared", "location": "Nakuru", "price": "8000", "gallery_images": "d.jpg, e.jpg,"}`,
			price:   8000,
			gallery: []string{"d.jpg", "e.jpg"},
		},
	}
	for name, tc := range cases {
		view, err := svc.Create(ctx, owner.ID, decodeProperty(t, tc.body))
		require.NoError(t, err, name)
		assert.Equal(t, tc.price, view.Price, name)
		assert.Equal(t, tc.gallery, view.GalleryImages, name)
		require.NotNil(t, view.MainImageURL, name)
		assert.Equal(t, tc.gallery[0], *view.MainImageURL, name)
		assert.Equal(t, "Owner", view.OwnerName, name)
	}
}

func TestCreatePropertyValidation(t *testing.T) {
	store := storetest.NewMemory()
	svc := services.NewPropertyService(store, zap.NewNop())
	owner := store.AddUser("Owner")

	cases := map[string]string{
		"missing title":    `{"location": "Nairobi", "price": 1000}`,
		"missing price":    `{"title": "Room", "location": "Nairobi"}`,
		"bad price":        `{"title": "Room", "location": "Nairobi", "price": "cheap"}`,
		"negative price":   `{"title": "Room", "location": "Nairobi", "price": -1}`,
		"bad rooms":        `{"title": "Room", "location": "Nairobi", "price": 1, "rooms": "two"}`,
		"half coordinates": `{"title": "Room", "location": "Nairobi", "price": 1, "latitude": -1.29}`,
	}
	for name, body := range cases {
		_, err := svc.Create(context.Background(), owner.ID, decodeProperty(t, body))
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), name)
	}
}

func TestPropertyOwnershipIsEnforced(t *testing.T) {
	store := storetest.NewMemory()
	svc := services.NewPropertyService(store, zap.NewNop())
	owner := store.AddUser("Owner")
	stranger := store.AddUser("Stranger")
	ctx := context.Background()

	view, err := svc.Create(ctx, owner.ID, decodeProperty(t, `{"title": "Room", "location": "Nairobi", "price": 1000}`))
	require.NoError(t, err)

	update := decodeProperty(t, `{"title": "Mine now", "location": "Nairobi", "price": 1}`)
	_, err = svc.Update(ctx, stranger.ID, view.ID, update)
	assert.True(t, apperrors.Is(err, apperrors.CodeAccessDenied))
	assert.True(t, apperrors.Is(svc.Delete(ctx, stranger.ID, view.ID), apperrors.CodeAccessDenied))

	updated, err := svc.Update(ctx, owner.ID, view.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Mine now", updated.Title)

	require.NoError(t, svc.Delete(ctx, owner.ID, view.ID))
	_, err = svc.Get(ctx, view.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.Is(svc.Delete(ctx, owner.ID, view.ID), apperrors.CodeNotFound))
}

func TestListPropertiesFilters(t *testing.T) {
	store := storetest.NewMemory()
	svc := services.NewPropertyService(store, zap.NewNop())
	owner := store.AddUser("Owner")
	other := store.AddUser("Other")
	ctx := context.Background()

	// Kilimani is about 4km from the CBD, Thika about 40km.
	for _, p := range []struct {
		owner uint
		body  string
	}{
		{owner.ID, `{"title": "CBD loft", "location": "Nairobi CBD", "price": 30000, "rooms": 1, "latitude": -1.2864, "longitude": 36.8172}`},
		{owner.ID, `{"title": "Kilimani flat", "location": "Kilimani, Nairobi", "price": 45000, "rooms": 3, "latitude": -1.2921, "longitude": 36.7853}`},
		{other.ID, `{"title": "Thika house", "location": "Thika", "price": 12000, "rooms": 4, "latitude": -1.0333, "longitude": 37.0693}`},
		{other.ID, `{"title": "Mombasa room", "location": "Mombasa", "price": "9000"}`},
	} {
		_, err := svc.Create(ctx, p.owner, decodeProperty(t, p.body))
		require.NoError(t, err)
	}

	titles := func(f services.PropertyFilter) []string {
		t.Helper()
		views, err := svc.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.Title)
		}
		return out
	}

	assert.Len(t, titles(services.PropertyFilter{}), 4)
	assert.ElementsMatch(t, []string{"CBD loft", "Kilimani flat"},
		titles(services.PropertyFilter{MinPrice: services.Flex("20000")}))
	assert.ElementsMatch(t, []string{"Kilimani flat", "Thika house"},
		titles(services.PropertyFilter{RoomsMin: services.Flex("2"), RoomsMax: services.Flex("4")}))
	assert.ElementsMatch(t, []string{"Thika house", "Mombasa room"},
		titles(services.PropertyFilter{Cities: "thika, mombasa"}))
	assert.ElementsMatch(t, []string{"Kilimani flat"},
		titles(services.PropertyFilter{Search: "kilimani"}))
	assert.ElementsMatch(t, []string{"Thika house", "Mombasa room"},
		titles(services.PropertyFilter{OwnerID: &other.ID}))
	assert.ElementsMatch(t, []string{"CBD loft", "Kilimani flat"},
		titles(services.PropertyFilter{Lat: services.Flex("-1.2864"), Lng: services.Flex("36.8172"), RadiusKm: services.Flex("10")}))

	_, err := svc.List(ctx, services.PropertyFilter{MinPrice: services.Flex("lots")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.List(ctx, services.PropertyFilter{Lat: services.Flex("-1.28")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, services.HaversineKm(-1.28, 36.82, -1.28, 36.82), 1e-9)
	// one degree of latitude
	assert.InDelta(t, 111.19, services.HaversineKm(0, 0, 1, 0), 0.01)
}

func TestCreatePropertyAcceptsLegacyImageFields(t *testing.T) {
	store := storetest.NewMemory()
	svc := services.NewPropertyService(store, zap.NewNop())
	owner := store.AddUser("Owner")

	view, err := svc.Create(context.Background(), owner.ID, decodeProperty(t,
		`{"title": "Loft", "location": "Kisumu", "price": 5000, "galleryImages": ["f.jpg"], "mainImage": "cover.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"f.jpg"}, view.GalleryImages)
	require.NotNil(t, view.MainImageURL)
	assert.Equal(t, "cover.jpg", *view.MainImageURL)
}
