package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/tract/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

const googleMapsService = "googlemaps"

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps a Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode resolves the address through the Google Maps client library.
// The library reports API statuses as "maps: <STATUS> - <message>" errors: ZERO_RESULTS
// and an empty result list are models.ErrNotFound, other statuses are a *models.ServiceError.
// Any other client error is a transport failure.
func (gp *GoogleProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	query := address.Query()
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", query)

	req := maps.GeocodingRequest{Address: query}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		status, message, ok := mapsStatus(err)
		switch {
		case ok && status == googleStatusZeroResults:
			gp.log.WarnContext(ctx, "No latitude and longitude for "+query)
			return nil, fmt.Errorf("geocode %q: %w", query, models.ErrNotFound)
		case ok:
			return nil, &models.ServiceError{Service: googleMapsService, Status: status, Message: message}
		}
		return nil, fmt.Errorf("failed to geocode address: %w", &models.TransportError{Service: googleMapsService, Err: err})
	}

	if len(geocodeResponse) == 0 {
		gp.log.WarnContext(ctx, "No latitude and longitude for "+query)
		return nil, fmt.Errorf("geocode %q: %w", query, models.ErrNotFound)
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

// mapsStatus extracts the API status from a maps client error of the form
// "maps: <STATUS> - <message>".
func mapsStatus(err error) (string, string, bool) {
	rest, found := strings.CutPrefix(err.Error(), "maps: ")
	if !found {
		return "", "", false
	}

	status, message, found := strings.Cut(rest, " - ")
	if !found || status == "" || strings.TrimLeft(status, "ABCDEFGHIJKLMNOPQRSTUVWXYZ_") != "" {
		return "", "", false
	}

	return status, strings.TrimSpace(message), true
}
