package sellerdir

import (
	"strconv"
	"strings"

	"github.com/marketship/backend/internal/domain/seller"
)

// variantEnvelope is the directory's variant lookup response. Weight and
// dimensions appear either as discrete numeric fields or as the legacy
// "10x20x5" dimension string; normalization stays in toMapping.
type variantEnvelope struct {
	Data struct {
		VariantID   string  `json:"variant_id"`
		ProductID   string  `json:"product_id"`
		SellerID    string  `json:"seller_id"`
		WeightGrams int     `json:"weight_grams"`
		Weight      int     `json:"weight"` // legacy, grams
		LengthCm    float64 `json:"length_cm"`
		WidthCm     float64 `json:"width_cm"`
		HeightCm    float64 `json:"height_cm"`
		Dimensions  string  `json:"dimensions"` // legacy "LxWxH" in cm
	} `json:"data"`
}

// toMapping normalizes the variant payload into a domain mapping.
func (e variantEnvelope) toMapping() *seller.VariantMapping {
	d := e.Data
	m := &seller.VariantMapping{
		VariantID:   d.VariantID,
		ProductID:   d.ProductID,
		SellerID:    d.SellerID,
		WeightGrams: d.WeightGrams,
		LengthCm:    d.LengthCm,
		WidthCm:     d.WidthCm,
		HeightCm:    d.HeightCm,
	}
	if m.WeightGrams == 0 {
		m.WeightGrams = d.Weight
	}
	if m.LengthCm == 0 && m.WidthCm == 0 && m.HeightCm == 0 && d.Dimensions != "" {
		m.LengthCm, m.WidthCm, m.HeightCm = parseDimensions(d.Dimensions)
	}
	return m
}

// parseDimensions splits a legacy "LxWxH" centimeter string. Unparseable
// parts come back as zero.
func parseDimensions(s string) (length, width, height float64) {
	parts := strings.Split(strings.ToLower(s), "x")
	dims := make([]float64, 0, 3)
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			n = 0
		}
		dims = append(dims, n)
	}
	for len(dims) < 3 {
		dims = append(dims, 0)
	}
	return dims[0], dims[1], dims[2]
}

// locationEnvelope is the seller primary-location response.
type locationEnvelope struct {
	Data struct {
		SellerID     string   `json:"seller_id"`
		PostalCode   string   `json:"postal_code"`
		City         string   `json:"city"`
		State        string   `json:"state"`
		Country      string   `json:"country"`
		Address      string   `json:"address"`
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		ContactName  string   `json:"contact_name"`
		ContactPhone string   `json:"contact_phone"`
		ContactEmail string   `json:"contact_email"`
	} `json:"data"`
}

// toOrigin normalizes the location payload into a domain origin tagged as
// a live lookup.
func (e locationEnvelope) toOrigin(sellerID string) *seller.SellerOrigin {
	d := e.Data
	origin := &seller.SellerOrigin{
		SellerID:     d.SellerID,
		PostalCode:   d.PostalCode,
		City:         d.City,
		State:        d.State,
		Country:      d.Country,
		Address:      d.Address,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		ContactName:  d.ContactName,
		ContactPhone: d.ContactPhone,
		ContactEmail: d.ContactEmail,
		Source:       seller.OriginSourceLive,
	}
	if origin.SellerID == "" {
		origin.SellerID = sellerID
	}
	return origin
}

// sellerEnvelope is the seller profile response.
type sellerEnvelope struct {
	Data struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"data"`
}

func (e sellerEnvelope) toSeller() *seller.Seller {
	return &seller.Seller{
		ID:    e.Data.ID,
		Name:  e.Data.Name,
		Phone: e.Data.Phone,
		Email: e.Data.Email,
	}
}
