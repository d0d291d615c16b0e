package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"stayhub/internal/domain"
)

const maxHotelImages = 10

// cnMobileRe matches mainland mobile numbers, the only contact format the
// mobile client collects.
var cnMobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

func validPhone(phone string) bool { return cnMobileRe.MatchString(phone) }

var one = decimal.NewFromInt(1)

// validDiscount accepts nil (no promotion) or a multiplier in (0,1).
func validDiscount(d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if !d.IsPositive() || !d.LessThan(one) {
		return domain.Invalid("discount", "discount must be between 0 and 1 exclusive")
	}
	return nil
}

func validImages(images []string) error {
	if len(images) > maxHotelImages {
		return domain.Invalid("images", fmt.Sprintf("at most %d images", maxHotelImages))
	}
	for _, img := range images {
		if !strings.HasPrefix(img, "/uploads/") {
			return domain.Invalid("images", "image URLs must be upload paths")
		}
	}
	return nil
}

func validStar(star int) error {
	if star < 1 || star > 5 {
		return domain.Invalid("star", "star rating must be 1-5")
	}
	return nil
}

func validateListing(name, address string, star int, price decimal.Decimal, discount *decimal.Decimal, images []string) error {
	if strings.TrimSpace(name) == "" {
		return domain.Invalid("name", "name is required")
	}
	if strings.TrimSpace(address) == "" {
		return domain.Invalid("address", "address is required")
	}
	if err := validStar(star); err != nil {
		return err
	}
	if !price.IsPositive() {
		return domain.Invalid("price", "price must be positive")
	}
	if err := validDiscount(discount); err != nil {
		return err
	}
	return validImages(images)
}

func validateUpdate(u domain.HotelUpdate) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return domain.Invalid("name", "name cannot be blank")
	}
	if u.Address != nil && strings.TrimSpace(*u.Address) == "" {
		return domain.Invalid("address", "address cannot be blank")
	}
	if u.Star != nil {
		if err := validStar(*u.Star); err != nil {
			return err
		}
	}
	if u.Price != nil && !u.Price.IsPositive() {
		return domain.Invalid("price", "price must be positive")
	}
	if err := validDiscount(u.Discount); err != nil {
		return err
	}
	if u.Images != nil {
		return validImages(u.Images)
	}
	return nil
}
