// Package affiliate queries the Shopee Affiliate GraphQL API.
package affiliate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const (
	DefaultEndpoint = "https://open-api.affiliate.shopee.vn/graphql"
	DefaultLimit    = 20
	requestTimeout  = 20 * time.Second
)

// Offer is one productOfferV2 node normalized at the boundary.
type Offer struct {
	ItemID      string `json:"itemId"`
	ShopID      string `json:"shopId"`
	ProductName string `json:"productName"`
	ImageURL    string `json:"imageUrl"`
	ProductLink string `json:"productLink"`
	OfferLink   string `json:"offerLink"`
	PriceMin    string `json:"priceMin,omitempty"`
	PriceMax    string `json:"priceMax,omitempty"`
}

// Filter narrows a productOfferV2 search. Both fields are sent when set.
type Filter struct {
	ShopID  string
	Keyword string
	Limit   int
}

// Client signs and sends GraphQL requests.
type Client struct {
	appID      string
	secret     string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// NewClient creates a new Client. An empty endpoint uses DefaultEndpoint.
func NewClient(appID, secret, endpoint string, logger zerolog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		appID:      appID,
		secret:     secret,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
		logger:     logger.With().Str("component", "affiliate").Logger(),
	}
}

// Configured reports whether credentials were supplied.
func (c *Client) Configured() bool {
	return c.appID != "" && c.secret != ""
}

// Sign returns hex(sha256(appID + timestamp + payload + secret)).
func Sign(appID string, timestamp int64, payload, secret string) string {
	sum := sha256.Sum256([]byte(appID + strconv.FormatInt(timestamp, 10) + payload + secret))
	return hex.EncodeToString(sum[:])
}

// AuthorizationHeader builds the SHA256 credential header for payload.
func AuthorizationHeader(appID string, timestamp int64, payload, secret string) string {
	return fmt.Sprintf("SHA256 Credential=%s, Timestamp=%d, Signature=%s",
		appID, timestamp, Sign(appID, timestamp, payload, secret))
}

// FindByShop searches the shop's offers and returns the one whose item id
// matches exactly. A nil offer with a nil error means no candidate matched.
func (c *Client) FindByShop(ctx context.Context, shopID, itemID string) (*Offer, error) {
	if shopID == "" {
		return nil, nil
	}
	offers, err := c.Search(ctx, Filter{ShopID: shopID})
	if err != nil {
		return nil, err
	}
	return MatchItem(offers, itemID), nil
}

// FindByKeyword searches by keyword and applies the same exact match.
func (c *Client) FindByKeyword(ctx context.Context, keyword, itemID string) (*Offer, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, nil
	}
	offers, err := c.Search(ctx, Filter{Keyword: keyword})
	if err != nil {
		return nil, err
	}
	return MatchItem(offers, itemID), nil
}

// Search runs one productOfferV2 query.
func (c *Client) Search(ctx context.Context, filter Filter) ([]Offer, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("affiliate credentials missing: %w", domain.ErrNotConfigured)
	}

	payload, err := json.Marshal(map[string]string{"query": BuildQuery(filter)})
	if err != nil {
		return nil, fmt.Errorf("encode graphql payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create affiliate request: %w", err)
	}
	ts := c.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", AuthorizationHeader(c.appID, ts, string(payload), c.secret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("affiliate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read affiliate response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, URL: c.endpoint, Body: truncate(string(body), 200)}
	}

	var gql struct {
		Data struct {
			ProductOfferV2 *struct {
				Nodes []rawOffer `json:"nodes"`
			} `json:"productOfferV2"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &gql); err != nil {
		return nil, fmt.Errorf("decode affiliate response: %w", domain.ErrMalformedPayload)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql error: %s", strings.Join(msgs, "; "))
	}
	if gql.Data.ProductOfferV2 == nil {
		return nil, fmt.Errorf("productOfferV2 missing: %w", domain.ErrMalformedPayload)
	}

	offers := make([]Offer, 0, len(gql.Data.ProductOfferV2.Nodes))
	for _, n := range gql.Data.ProductOfferV2.Nodes {
		offers = append(offers, n.normalize())
	}
	c.logger.Debug().Str("shop_id", filter.ShopID).Str("keyword", filter.Keyword).Int("offers", len(offers)).Msg("affiliate search")
	return offers, nil
}

// BuildQuery renders the productOfferV2 query for filter.
func BuildQuery(filter Filter) string {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var args []string
	if numeric.MatchString(filter.ShopID) {
		args = append(args, "shopId: "+filter.ShopID)
	}
	if filter.Keyword != "" {
		args = append(args, "keyword: "+strconv.Quote(filter.Keyword))
	}
	args = append(args, "limit: "+strconv.Itoa(limit), "page: 1")

	return fmt.Sprintf(`{ productOfferV2(%s) { nodes { itemId shopId productName imageUrl productLink offerLink priceMin priceMax } } }`,
		strings.Join(args, ", "))
}

var (
	digitRun = regexp.MustCompile(`\d+`)
	numeric  = regexp.MustCompile(`^\d+$`)
)

// MatchItem returns the offer for itemID: either its itemId equals itemID or
// one of the digit runs in its productLink does. Substring hits inside a longer
// number never count.
func MatchItem(offers []Offer, itemID string) *Offer {
	if itemID == "" {
		return nil
	}
	for i := range offers {
		if offers[i].ItemID == itemID {
			return &offers[i]
		}
		for _, run := range digitRun.FindAllString(offers[i].ProductLink, -1) {
			if run == itemID {
				return &offers[i]
			}
		}
	}
	return nil
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		*f = flexString(unquoted)
		return nil
	}
	*f = flexString(s)
	return nil
}

type rawOffer struct {
	ItemID      flexString `json:"itemId"`
	ShopID      flexString `json:"shopId"`
	ProductName string     `json:"productName"`
	ImageURL    string     `json:"imageUrl"`
	ProductLink string     `json:"productLink"`
	OfferLink   string     `json:"offerLink"`
	PriceMin    flexString `json:"priceMin"`
	PriceMax    flexString `json:"priceMax"`
}

func (r rawOffer) normalize() Offer {
	return Offer{
		ItemID:      string(r.ItemID),
		ShopID:      string(r.ShopID),
		ProductName: r.ProductName,
		ImageURL:    r.ImageURL,
		ProductLink: r.ProductLink,
		OfferLink:   r.OfferLink,
		PriceMin:    string(r.PriceMin),
		PriceMax:    string(r.PriceMax),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
