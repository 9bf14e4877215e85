package ingredients

import (
	"errors"
	"strings"
)

func (s *Service) validate(ing Ingredient) error {
	if strings.TrimSpace(ing.Name) == "" {
		return errors.New("ingredient name is required")
	}
	if strings.TrimSpace(ing.Unit) == "" {
		return errors.New("ingredient unit is required")
	}
	if ing.PricePerUnit < 0 {
		return errors.New("price per unit must not be negative")
	}
	if ing.MinStock < 0 {
		return errors.New("minimum stock must not be negative")
	}
	return nil
}
