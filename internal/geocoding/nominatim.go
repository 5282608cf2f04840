package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/UnknownOlympus/tract/internal/models"
)

// NominatimBaseURL is the public OpenStreetMap Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// NominatimUserAgent identifies this service, as required by the Nominatim usage policy:
// https://operations.osmfoundation.org/policies/nominatim/
const NominatimUserAgent = "Tract-Lookup-Service/1.0 (https://github.com/UnknownOlympus/tract)"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
// Searches are restricted to the United States since census tracts only exist there.
type NominatimProvider struct {
	fetcher XMLFetcher   // fetcher must send NominatimUserAgent
	baseURL string       // Base URL for the Nominatim API
	log     *slog.Logger // Logger for logging operations
}

// nominatimResponse is the searchresults document returned with format=xml.
type nominatimResponse struct {
	Places []struct {
		Lat         string `xml:"lat,attr"`
		Lon         string `xml:"lon,attr"`
		DisplayName string `xml:"display_name,attr"`
	} `xml:"place"`
}

// NewNominatimProvider creates a Nominatim provider. An empty baseURL selects NominatimBaseURL.
func NewNominatimProvider(fetcher XMLFetcher, baseURL string, log *slog.Logger) *NominatimProvider {
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}

	return &NominatimProvider{
		fetcher: fetcher,
		baseURL: baseURL,
		log:     log,
	}
}

// Geocode converts an address to geographic coordinates using the Nominatim API.
// An empty result list is reported as models.ErrNotFound.
func (np *NominatimProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	query := address.Query()
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", query)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("q", query)
	params.Set("format", "xml")
	params.Set("limit", "1") // Only need the top result
	params.Set("countrycodes", "us")
	reqURL.RawQuery = params.Encode()

	var resp nominatimResponse
	if err = np.fetcher.Get(ctx, reqURL.String(), &resp); err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(resp.Places) == 0 {
		np.log.WarnContext(ctx, "No latitude and longitude for "+query)
		return nil, fmt.Errorf("geocode %q: %w", query, models.ErrNotFound)
	}

	place := resp.Places[0]
	lat, err := parseDegrees("latitude", place.Lat)
	if err != nil {
		return nil, err
	}
	lon, err := parseDegrees("longitude", place.Lon)
	if err != nil {
		return nil, err
	}

	np.log.DebugContext(ctx, "Nominatim found result", "display_name", place.DisplayName, "lat", lat, "lon", lon)

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
