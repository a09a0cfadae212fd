package shopee

import (
	"context"
	"fmt"

	"videominer/internal/adapters/searchlink"
	"videominer/internal/core/domain"
)

// Adapter mines the product's own videos through the internal API. Links
// without shop and item ids fall back to a Shopee search link.
type Adapter struct {
	client *Client
}

// NewAdapter creates a new Adapter.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Source() domain.Source { return domain.SourceShopee }

// Mine returns one record per video attached to the product.
func (a *Adapter) Mine(ctx context.Context, identity domain.ProductIdentity) ([]domain.VideoRecord, error) {
	if !identity.HasIDs() {
		rec, err := searchlink.Record(domain.SourceShopee, identity)
		if err != nil {
			return nil, err
		}
		return []domain.VideoRecord{rec}, nil
	}

	item, err := a.client.GetItem(ctx, identity.ShopID, identity.ItemID)
	if err != nil {
		return nil, err
	}

	title := item.Name
	if title == "" {
		title = identity.Name
	}
	records := make([]domain.VideoRecord, 0, len(item.Videos))
	for _, v := range item.Videos {
		rec := domain.NewVideoRecord(domain.SourceShopee, v.URL, title)
		rec.ThumbnailURL = v.ThumbnailURL
		rec.Duration = FormatDuration(v.Duration)
		rec.SourceURL = identity.CanonicalURL
		records = append(records, rec)
	}
	return records, nil
}

// FormatDuration renders seconds as m:ss. Zero or negative yields "".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
