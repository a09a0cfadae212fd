package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"videominer/internal/adapters/scraper"
	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

func shopeeMiner(primary ports.Adapter, deps ExtractorDeps) *ChainAdapter {
	return NewExtractors(deps, zerolog.Nop()).ShopeeMiningAdapter(primary)
}

func TestMineShopeeFallsBackToPageWhenAPIBlocked(t *testing.T) {
	api := &fakeAdapter{source: domain.SourceShopee, err: errors.New("all internal api attempts failed: unexpected status code 403")}
	adapter := shopeeMiner(api, ExtractorDeps{
		Scraper: &fakeScraper{video: &scraper.PageVideo{VideoURL: "https://cvf.shopee.vn/mug.mp4", Title: "Mug video"}},
	})
	o := NewOrchestrator(fakeIdentity{identity: mug}, []ports.Adapter{adapter}, nil, 0, zerolog.Nop())

	result := o.Mine(context.Background(), productURL, domain.NewSourceSet(domain.SourceShopee))
	if !result.Success {
		t.Fatal("Success = false")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none once the page step found a video", result.Errors)
	}
	if len(result.Videos) != 1 {
		t.Fatalf("Videos = %v", result.Videos)
	}
	got := result.Videos[0]
	if got.VideoURL != "https://cvf.shopee.vn/mug.mp4" || got.Source != domain.SourceShopee || got.SourceURL != productURL {
		t.Errorf("record = %+v", got)
	}
	if got.ID != domain.RecordID(got.VideoURL) {
		t.Errorf("ID = %q", got.ID)
	}
}

func TestMineShopeePrimaryWins(t *testing.T) {
	api := &fakeAdapter{source: domain.SourceShopee, records: []domain.VideoRecord{
		record(domain.SourceShopee, "https://cvf.shopee.vn/a.mp4"),
		record(domain.SourceShopee, "https://cvf.shopee.vn/b.mp4"),
	}}
	renderer := &fakeRenderer{}
	adapter := shopeeMiner(api, ExtractorDeps{
		Scraper:  &fakeScraper{video: &scraper.PageVideo{VideoURL: "https://cvf.shopee.vn/page.mp4"}},
		Renderer: renderer,
	})

	records, err := adapter.Mine(context.Background(), mug)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if len(records) != 2 || records[0].VideoURL != "https://cvf.shopee.vn/a.mp4" {
		t.Errorf("records = %v", records)
	}
	if renderer.calls != 0 {
		t.Errorf("renderer called %d times", renderer.calls)
	}
}

func TestMineShopeeExhausted(t *testing.T) {
	api := &fakeAdapter{source: domain.SourceShopee, err: errors.New("403 forbidden")}
	adapter := shopeeMiner(api, ExtractorDeps{
		Scraper:  &fakeScraper{},
		Resolver: &fakeResolver{err: errors.New("unsupported url")},
	})

	_, err := adapter.Mine(context.Background(), mug)
	if !errors.Is(err, domain.ErrNothingFound) {
		t.Fatalf("err = %v, want ErrNothingFound", err)
	}
	for _, want := range []string{"internal_api: 403 forbidden", "yt_dlp: unsupported url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err %q does not mention %q", err, want)
		}
	}
}

func TestMineShopeeSkipsPageStepsWithoutIDs(t *testing.T) {
	api := &fakeAdapter{source: domain.SourceShopee}
	adapter := shopeeMiner(api, ExtractorDeps{
		Scraper: &fakeScraper{video: &scraper.PageVideo{VideoURL: "https://other.example/v.mp4"}},
	})

	records, err := adapter.Mine(context.Background(), domain.ProductIdentity{
		CanonicalURL: "https://other.example/product/mug",
		Name:         "Mug",
		Keywords:     []string{"mug"},
	})
	if !errors.Is(err, domain.ErrNothingFound) {
		t.Errorf("err = %v, want ErrNothingFound", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none from a foreign page", records)
	}
}
