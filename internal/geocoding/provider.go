package geocoding

import (
	"context"

	"github.com/UnknownOlympus/tract/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// Geocode returns models.ErrNotFound when the service has no match for the address;
// any other error describes a failed or unusable exchange with the service.
type Provider interface {
	Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error)
}
