package service_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/tract/internal/census"
	"github.com/UnknownOlympus/tract/internal/geocoding"
	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/models"
	"github.com/UnknownOlympus/tract/internal/service"
	"github.com/UnknownOlympus/tract/internal/xmlapi"
	"github.com/UnknownOlympus/tract/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	hydePark = models.Address{Street: "5801 S Ellis Ave", City: "Chicago", State: "IL"}
	campus   = models.Coordinates{Latitude: 41.7943, Longitude: -87.5907}
)

func campusBlock(t *testing.T) *models.Block {
	t.Helper()

	block, err := models.NewBlock("170314303001013")
	require.NoError(t, err)

	return block
}

func TestTractService_Resolve(t *testing.T) {
	logger := slog.Default()

	t.Run("success - address resolved to tract", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		journal := mocks.NewInterface(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())

		provider.On("Geocode", mock.Anything, hydePark).Return(&campus, nil).Once()
		resolver.On("Resolve", mock.Anything, campus).Return(campusBlock(t), nil).Once()
		journal.On("RecordLookup", mock.Anything, mock.MatchedBy(func(l models.Lookup) bool {
			return l.Outcome == models.OutcomeSuccess &&
				l.BlockFIPS == "170314303001013" &&
				l.Tract != nil && *l.Tract == 430300 &&
				l.Coordinates != nil && l.Error == ""
		})).Return(nil).Once()

		ts := service.NewTractService(logger, provider, resolver, journal, m)
		resolution, err := ts.Resolve(t.Context(), hydePark)

		require.NoError(t, err)
		require.NotNil(t, resolution)
		assert.Equal(t, models.Tract(430300), resolution.Block.Tract)
		assert.Equal(t, "430300", resolution.Block.Tract.String())
		assert.Equal(t, hydePark, resolution.Address)
		assert.Equal(t, campus, resolution.Coordinates)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Lookups.WithLabelValues(models.OutcomeSuccess)), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(m.LookupsInFlight), 0)
	})

	t.Run("not found - block lookup is skipped", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())
		nowhere := models.Address{Street: "1 Nowhere Rd", City: "Springfield", State: "ZZ"}

		provider.On("Geocode", mock.Anything, nowhere).
			Return(nil, fmt.Errorf("geocode %s: %w", nowhere.Query(), models.ErrNotFound)).Once()

		ts := service.NewTractService(logger, provider, resolver, nil, m)
		resolution, err := ts.Resolve(t.Context(), nowhere)

		require.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, resolution)
		resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Lookups.WithLabelValues(models.OutcomeNotFound)), 0)
	})

	t.Run("invalid address - geocoder is not called", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		journal := mocks.NewInterface(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())
		blank := models.Address{Street: "5801 S Ellis Ave", City: " ", State: "IL"}

		journal.On("RecordLookup", mock.Anything, mock.MatchedBy(func(l models.Lookup) bool {
			return l.Outcome == models.OutcomeInvalid && l.Coordinates == nil && l.Tract == nil
		})).Return(nil).Once()

		ts := service.NewTractService(logger, provider, resolver, journal, m)
		_, err := ts.Resolve(t.Context(), blank)

		require.ErrorIs(t, err, models.ErrInvalidAddress)
		provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Lookups.WithLabelValues(models.OutcomeInvalid)), 0)
	})

	t.Run("block resolver failure keeps its class", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		journal := mocks.NewInterface(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())

		provider.On("Geocode", mock.Anything, hydePark).Return(&campus, nil).Once()
		resolver.On("Resolve", mock.Anything, campus).
			Return(nil, &models.TransportError{Service: "census", StatusCode: http.StatusBadGateway}).Once()
		journal.On("RecordLookup", mock.Anything, mock.MatchedBy(func(l models.Lookup) bool {
			return l.Outcome == models.OutcomeTransport && l.Coordinates != nil && l.Tract == nil && l.Error != ""
		})).Return(nil).Once()

		ts := service.NewTractService(logger, provider, resolver, journal, m)
		resolution, err := ts.Resolve(t.Context(), hydePark)

		require.Error(t, err)
		assert.Nil(t, resolution)
		require.ErrorIs(t, err, models.ErrTransport)
		assert.NotErrorIs(t, err, models.ErrNotFound)
		assert.ErrorContains(t, err, "resolve tract for 5801 S Ellis Ave,Chicago,IL")
		assert.InDelta(t, 1, testutil.ToFloat64(m.Lookups.WithLabelValues(models.OutcomeTransport)), 0)
	})

	t.Run("journal is written after the caller cancels", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		journal := mocks.NewInterface(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		provider.On("Geocode", mock.Anything, hydePark).Return(&campus, nil).Once()
		resolver.On("Resolve", mock.Anything, campus).
			Run(func(mock.Arguments) { cancel() }).
			Return(campusBlock(t), nil).Once()
		journal.On("RecordLookup",
			mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
			mock.MatchedBy(func(l models.Lookup) bool { return l.Outcome == models.OutcomeSuccess }),
		).Return(nil).Once()

		ts := service.NewTractService(logger, provider, resolver, journal, m)
		resolution, err := ts.Resolve(ctx, hydePark)

		require.NoError(t, err)
		require.Error(t, ctx.Err())
		assert.Equal(t, models.Tract(430300), resolution.Block.Tract)
	})

	t.Run("journal failure does not change the result", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		resolver := mocks.NewResolver(t)
		journal := mocks.NewInterface(t)
		m := metrics.NewMetrics(prometheus.NewRegistry())

		provider.On("Geocode", mock.Anything, hydePark).Return(&campus, nil).Once()
		resolver.On("Resolve", mock.Anything, campus).Return(campusBlock(t), nil).Once()
		journal.On("RecordLookup", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		ts := service.NewTractService(logger, provider, resolver, journal, m)
		resolution, err := ts.Resolve(t.Context(), hydePark)

		require.NoError(t, err)
		assert.Equal(t, models.Tract(430300), resolution.Block.Tract)
	})
}

const googleStub = `<?xml version="1.0" encoding="UTF-8"?>
<GeocodeResponse>
 <status>OK</status>
 <result>
  <formatted_address>5801 S Ellis Ave, Chicago, IL 60637, USA</formatted_address>
  <geometry>
   <location>
    <lat>41.7943</lat>
    <lng>-87.5907</lng>
   </location>
  </geometry>
 </result>
</GeocodeResponse>`

const blockStub = `<?xml version="1.0" encoding="UTF-8"?>
<Response xmlns="http://data.fcc.gov/api" status="OK" executionTime="3">
  <Block FIPS="170314303001013"/>
  <County FIPS="17031" name="Cook"/>
  <State FIPS="17" code="IL" name="Illinois"/>
</Response>`

func newStubPipeline(t *testing.T, geocoder, blocks http.HandlerFunc) *service.TractService {
	t.Helper()

	geoSrv := httptest.NewServer(geocoder)
	t.Cleanup(geoSrv.Close)
	blockSrv := httptest.NewServer(blocks)
	t.Cleanup(blockSrv.Close)

	logger := slog.Default()
	m := metrics.NewMetrics(prometheus.NewRegistry())

	provider := geocoding.NewGoogleXMLProvider(
		xmlapi.New("google", time.Second, logger, xmlapi.WithMetrics(m)), geoSrv.URL, "test-api-key", logger)
	resolver := census.NewBlockResolver(
		xmlapi.New("census", time.Second, logger, xmlapi.WithMetrics(m)), blockSrv.URL, "", logger)

	return service.NewTractService(logger, provider, resolver, nil, m)
}

func TestTractService_RoundTrip(t *testing.T) {
	var blockCalls atomic.Int32

	ts := newStubPipeline(t,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5801 S Ellis Ave,Chicago,IL", r.URL.Query().Get("address"))
			assert.Equal(t, "test-api-key", r.URL.Query().Get("key"))
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(googleStub))
		},
		func(w http.ResponseWriter, r *http.Request) {
			blockCalls.Add(1)
			assert.Equal(t, "41.7943", r.URL.Query().Get("latitude"))
			assert.Equal(t, "-87.5907", r.URL.Query().Get("longitude"))
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(blockStub))
		},
	)

	resolution, err := ts.Resolve(t.Context(), hydePark)

	require.NoError(t, err)
	assert.Equal(t, models.Tract(430300), resolution.Block.Tract)
	assert.Equal(t, "17031", resolution.Block.CountyFIPS)
	assert.Equal(t, "Cook", resolution.Block.CountyName)
	assert.InDelta(t, 41.7943, resolution.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, -87.5907, resolution.Coordinates.Longitude, 1e-9)
	assert.Equal(t, int32(1), blockCalls.Load())
}

func TestTractService_RoundTripNoResult(t *testing.T) {
	var blockCalls atomic.Int32

	ts := newStubPipeline(t,
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<GeocodeResponse><status>ZERO_RESULTS</status></GeocodeResponse>`))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			blockCalls.Add(1)
			_, _ = w.Write([]byte(blockStub))
		},
	)

	resolution, err := ts.Resolve(t.Context(), hydePark)

	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, resolution)
	assert.Zero(t, blockCalls.Load())
}

func TestTractService_RoundTripEmptyBody(t *testing.T) {
	ts := newStubPipeline(t,
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(googleStub))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	)

	_, err := ts.Resolve(t.Context(), hydePark)

	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestTractService_RoundTripCanceled(t *testing.T) {
	ts := newStubPipeline(t,
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(googleStub))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(blockStub))
		},
	)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := ts.Resolve(ctx, hydePark)

	require.ErrorIs(t, err, models.ErrTransport)
}
