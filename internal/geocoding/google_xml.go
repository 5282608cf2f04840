package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/tract/internal/models"
)

// GoogleXMLBaseURL is the Google Geocoding API endpoint that answers in XML.
const GoogleXMLBaseURL = "https://maps.googleapis.com/maps/api/geocode/xml"

// Google Geocoding API status values.
const (
	googleStatusOK          = "OK"
	googleStatusZeroResults = "ZERO_RESULTS"
)

// XMLFetcher fetches an XML document and decodes it into v.
type XMLFetcher interface {
	Get(ctx context.Context, reqURL string, v any) error
}

// GoogleXMLProvider geocodes addresses with the XML flavour of the Google Geocoding API.
type GoogleXMLProvider struct {
	fetcher XMLFetcher   // fetcher performs the GET and decodes the body
	baseURL string       // Base URL for the geocoding API
	apiKey  string       // API key with geocoding access
	log     *slog.Logger // Logger for logging operations
}

// googleXMLResponse is the subset of the GeocodeResponse document the lookup needs.
type googleXMLResponse struct {
	Status       string `xml:"status"`
	ErrorMessage string `xml:"error_message"`
	Results      []struct {
		FormattedAddress string `xml:"formatted_address"`
		Lat              string `xml:"geometry>location>lat"`
		Lng              string `xml:"geometry>location>lng"`
	} `xml:"result"`
}

// NewGoogleXMLProvider creates a provider that sends requests to baseURL.
// An empty baseURL selects GoogleXMLBaseURL.
func NewGoogleXMLProvider(fetcher XMLFetcher, baseURL, apiKey string, log *slog.Logger) *GoogleXMLProvider {
	if baseURL == "" {
		baseURL = GoogleXMLBaseURL
	}

	return &GoogleXMLProvider{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

// Geocode resolves the address to coordinates. A ZERO_RESULTS answer is reported as
// models.ErrNotFound together with a diagnostic naming the unresolved address.
func (gp *GoogleXMLProvider) Geocode(ctx context.Context, address models.Address) (*models.Coordinates, error) {
	query := address.Query()
	gp.log.DebugContext(ctx, "Geocoding using Google Maps XML API", "address", query)

	reqURL, err := url.Parse(gp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("address", query)
	params.Set("key", gp.apiKey)
	reqURL.RawQuery = params.Encode()

	var resp googleXMLResponse
	if err = gp.fetcher.Get(ctx, reqURL.String(), &resp); err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	switch strings.TrimSpace(resp.Status) {
	case googleStatusOK:
		// continue
	case googleStatusZeroResults:
		gp.log.WarnContext(ctx, "No latitude and longitude for "+query)
		return nil, fmt.Errorf("geocode %q: %w", query, models.ErrNotFound)
	case "":
		return nil, fmt.Errorf("%w: geocoding response has no status", models.ErrMalformedResponse)
	default:
		return nil, &models.ServiceError{Service: "google", Status: resp.Status, Message: resp.ErrorMessage}
	}

	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: geocoding status OK without results", models.ErrMalformedResponse)
	}

	result := resp.Results[0]
	lat, err := parseDegrees("latitude", result.Lat)
	if err != nil {
		return nil, err
	}
	lng, err := parseDegrees("longitude", result.Lng)
	if err != nil {
		return nil, err
	}

	gp.log.DebugContext(ctx, "Google found result",
		"address", query, "formatted", result.FormattedAddress, "lat", lat, "lng", lng)

	return &models.Coordinates{Latitude: lat, Longitude: lng}, nil
}

func parseDegrees(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", models.ErrMalformedResponse, field)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", models.ErrMalformedResponse, field, raw)
	}

	return value, nil
}
