// Package census resolves coordinates to the census block, and therefore the
// census tract, that contains them.
package census

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/tract/internal/models"
)

// BlockBaseURL is the FCC Census Block API endpoint.
const BlockBaseURL = "https://geo.fcc.gov/api/census/block/find"

const serviceName = "census"

// Resolver resolves a coordinate to the census block containing it.
type Resolver interface {
	Resolve(ctx context.Context, coords models.Coordinates) (*models.Block, error)
}

// XMLFetcher fetches an XML document and decodes it into v.
type XMLFetcher interface {
	Get(ctx context.Context, reqURL string, v any) error
}

// BlockResolver looks up census blocks through the FCC Census Block API.
type BlockResolver struct {
	fetcher XMLFetcher
	baseURL string
	apiKey  string // optional, sent only when set
	log     *slog.Logger
}

// NewBlockResolver creates a resolver. An empty baseURL selects BlockBaseURL.
func NewBlockResolver(fetcher XMLFetcher, baseURL, apiKey string, log *slog.Logger) *BlockResolver {
	if baseURL == "" {
		baseURL = BlockBaseURL
	}

	return &BlockResolver{
		fetcher: fetcher,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

// Resolve finds the block containing coords and derives its tract. Only the
// containing block is requested (showall=false).
//
// A response without a block element, a block element without a FIPS attribute,
// or an unusable block FIPS is models.ErrMalformedResponse. A block element with
// an empty FIPS means the point lies outside every census block and is
// models.ErrNotFound.
func (br *BlockResolver) Resolve(ctx context.Context, coords models.Coordinates) (*models.Block, error) {
	br.log.DebugContext(ctx, "Resolving census block", "lat", coords.Latitude, "lng", coords.Longitude)

	reqURL, err := url.Parse(br.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("format", "xml")
	params.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("showall", "false")
	if br.apiKey != "" {
		params.Set("key", br.apiKey)
	}
	reqURL.RawQuery = params.Encode()

	var resp blockResponse
	if err = br.fetcher.Get(ctx, reqURL.String(), &resp); err != nil {
		return nil, fmt.Errorf("failed to resolve census block: %w", err)
	}

	if resp.Status != "" && !strings.EqualFold(resp.Status, "OK") {
		return nil, &models.ServiceError{Service: serviceName, Status: resp.Status, Message: resp.Message}
	}

	if resp.Block == nil || !resp.Block.HasFIPS {
		return nil, fmt.Errorf("%w: no block found", models.ErrMalformedResponse)
	}
	if resp.Block.FIPS == "" {
		br.log.WarnContext(ctx, "No census block for coordinates", "lat", coords.Latitude, "lng", coords.Longitude)
		return nil, fmt.Errorf("census block for %v,%v: %w", coords.Latitude, coords.Longitude, models.ErrNotFound)
	}

	block, err := models.NewBlock(resp.Block.FIPS)
	if err != nil {
		return nil, err
	}

	if resp.County != nil {
		if resp.County.FIPS != "" {
			block.CountyFIPS = resp.County.FIPS
		}
		block.CountyName = resp.County.Name
	}
	if resp.State != nil {
		if resp.State.FIPS != "" {
			block.StateFIPS = resp.State.FIPS
		}
		block.StateCode = resp.State.Code
		block.StateName = resp.State.Name
	}

	br.log.DebugContext(ctx, "Census block found", "fips", block.FIPS, "tract", block.Tract.String())

	return block, nil
}

// geoUnit is one of the Block, County or State elements of a block response.
type geoUnit struct {
	FIPS    string
	HasFIPS bool // false when the element carries no FIPS attribute at all
	Code    string
	Name    string
}

// blockResponse is the typed view of a census block response. Element and
// attribute names are matched case-insensitively: the service emits
// <Block FIPS="..."> while older consumers expect <block fips="...">.
type blockResponse struct {
	Status  string
	Message string
	Block   *geoUnit
	County  *geoUnit
	State   *geoUnit
}

func (r *blockResponse) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	r.Status, _ = attrValue(start, "status")
	r.inspect(start)

	depth := 1
	var inMessage bool
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		switch elem := tok.(type) {
		case xml.StartElement:
			depth++
			inMessage = strings.EqualFold(elem.Name.Local, "message")
			r.inspect(elem)
		case xml.CharData:
			if inMessage && r.Message == "" {
				r.Message = strings.TrimSpace(string(elem))
			}
		case xml.EndElement:
			depth--
			inMessage = false
		}
	}

	return nil
}

// inspect records the first Block, County and State element it sees.
func (r *blockResponse) inspect(elem xml.StartElement) {
	unit := func() *geoUnit {
		fips, hasFIPS := attrValue(elem, "fips")
		code, _ := attrValue(elem, "code")
		name, _ := attrValue(elem, "name")

		return &geoUnit{
			FIPS:    strings.TrimSpace(fips),
			HasFIPS: hasFIPS,
			Code:    code,
			Name:    name,
		}
	}

	switch strings.ToLower(elem.Name.Local) {
	case "block":
		if r.Block == nil {
			r.Block = unit()
		}
	case "county":
		if r.County == nil {
			r.County = unit()
		}
	case "state":
		if r.State == nil {
			r.State = unit()
		}
	}
}

// attrValue looks up an attribute by case-insensitive local name and reports whether it was present.
func attrValue(elem xml.StartElement, name string) (string, bool) {
	for _, attr := range elem.Attr {
		if strings.EqualFold(attr.Name.Local, name) {
			return attr.Value, true
		}
	}

	return "", false
}
