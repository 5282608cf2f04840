package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/xmlapi"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents the Google Geocoding XML API.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeGoogleMaps represents the Google Geocoding API through the official client library.
	ProviderTypeGoogleMaps ProviderType = "googlemaps"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type    ProviderType     // Type of provider to create
	APIKey  string           // API key (required by the Google providers)
	BaseURL string           // Endpoint override; empty selects the provider default
	Timeout time.Duration    // Timeout for a single request
	Logger  *slog.Logger     // Logger for the provider
	Metrics *metrics.Metrics // Optional request metrics
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "google": Google Geocoding XML API (requires API key)
// - "googlemaps": Google Geocoding API via googlemaps.github.io/maps (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleXMLProvider(config)
	case ProviderTypeGoogleMaps:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newGoogleXMLProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	fetcher := xmlapi.New(string(ProviderTypeGoogle), config.Timeout, config.Logger, fetcherOptions(config)...)

	return NewGoogleXMLProvider(fetcher, config.BaseURL, config.APIKey, config.Logger), nil
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google Maps provider")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = xmlapi.DefaultTimeout
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if config.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(config.BaseURL))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	opts := append(fetcherOptions(config), xmlapi.WithUserAgent(NominatimUserAgent))
	fetcher := xmlapi.New(string(ProviderTypeNominatim), config.Timeout, config.Logger, opts...)

	return NewNominatimProvider(fetcher, config.BaseURL, config.Logger), nil
}

func fetcherOptions(config ProviderConfig) []xmlapi.Option {
	if config.Metrics == nil {
		return nil
	}

	return []xmlapi.Option{xmlapi.WithMetrics(config.Metrics)}
}
