package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/tract/internal/census"
	"github.com/UnknownOlympus/tract/internal/geocoding"
	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/models"
	"github.com/UnknownOlympus/tract/internal/repository"
)

// TractService resolves addresses to census tracts by chaining a geocoding
// provider and a census block resolver. It keeps no state between calls.
type TractService struct {
	log      *slog.Logger         // Logger for logging service activities
	provider geocoding.Provider   // Geocoding provider for address -> coordinates
	resolver census.Resolver      // Census block resolver for coordinates -> tract
	journal  repository.Interface // Optional lookup journal, nil disables recording
	metrics  *metrics.Metrics     // Metrics for tracking service performance
}

// NewTractService creates a new instance of TractService. The journal may be nil.
func NewTractService(
	log *slog.Logger,
	provider geocoding.Provider,
	resolver census.Resolver,
	journal repository.Interface,
	metrics *metrics.Metrics,
) *TractService {
	return &TractService{
		log:      log,
		provider: provider,
		resolver: resolver,
		journal:  journal,
		metrics:  metrics,
	}
}

// Resolve geocodes the address and resolves the census block containing it.
//
// When the geocoder reports models.ErrNotFound the block lookup is skipped and the
// error is returned as is, so callers can test for it with errors.Is.
func (ts *TractService) Resolve(ctx context.Context, address models.Address) (*models.Resolution, error) {
	ts.metrics.LookupsInFlight.Inc()
	defer ts.metrics.LookupsInFlight.Dec()

	lookup := models.Lookup{Address: address}
	resolution, err := ts.resolve(ctx, address, &lookup)

	lookup.Outcome = models.Outcome(err)
	if err != nil {
		lookup.Error = err.Error()
	}
	ts.metrics.Lookups.WithLabelValues(lookup.Outcome).Inc()
	// The row is written even when the caller has gone away.
	ts.record(context.WithoutCancel(ctx), lookup)

	switch {
	case err == nil:
		ts.log.InfoContext(ctx, "Address resolved",
			"address", address.Query(), "tract", resolution.Block.Tract.String(), "block", resolution.Block.FIPS)
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidAddress):
		ts.log.WarnContext(ctx, "Address not resolved", "address", address.Query(), "outcome", lookup.Outcome)
	default:
		ts.log.ErrorContext(ctx, "Failed to resolve address", "address", address.Query(), "error", err)
	}

	return resolution, err
}

func (ts *TractService) resolve(
	ctx context.Context,
	address models.Address,
	lookup *models.Lookup,
) (*models.Resolution, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}

	coords, err := ts.provider.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	lookup.Coordinates = coords

	block, err := ts.resolver.Resolve(ctx, *coords)
	if err != nil {
		return nil, fmt.Errorf("resolve tract for %s: %w", address.Query(), err)
	}
	lookup.BlockFIPS = block.FIPS
	lookup.Tract = &block.Tract

	return &models.Resolution{
		Address:     address,
		Coordinates: *coords,
		Block:       *block,
	}, nil
}

// record writes the lookup to the journal. Failures are logged and never change the lookup result.
func (ts *TractService) record(ctx context.Context, lookup models.Lookup) {
	if ts.journal == nil {
		return
	}

	if err := ts.journal.RecordLookup(ctx, lookup); err != nil {
		ts.log.ErrorContext(ctx, "Could not record lookup", "address", lookup.Address.Query(), "error", err)
	}
}
