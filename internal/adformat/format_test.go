package adformat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ad-scout/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testCtx() Context {
	return Context{Keyword: "curso", Country: "CL", Source: model.DataSourceApify, Now: fixedNow}
}

func TestFormat_FullRecord(t *testing.T) {
	raw := []byte(`{
		"page_id": "12345",
		"page_name": "Academia Digital",
		"ad_archive_id": "998877",
		"ad_id": "A-1",
		"ad_snapshot_url": "https://www.facebook.com/ads/library/?id=998877",
		"ads_count": 14,
		"start_date": 1745712000,
		"publisher_platform": ["Facebook", "Instagram"],
		"snapshot": {
			"body": {"text": "Curso online. Escríbenos al +56 912 345 678"},
			"cards": [{"original_image_url": "https://img/1.jpg", "video_hd_url": "https://vid/hd.mp4", "video_sd_url": "https://vid/sd.mp4"}]
		}
	}`)

	rec := Format(raw, testCtx())

	assert.Equal(t, "Academia Digital", rec.PageName)
	assert.Equal(t, "12345", rec.PageID)
	assert.Equal(t, "https://facebook.com/12345", rec.PageURL)
	assert.Equal(t, "A-1", rec.AdID)
	assert.Equal(t, "998877", rec.LibraryID)
	assert.Equal(t, "https://www.facebook.com/ads/library/?id=998877", rec.AdsLibraryURL)
	assert.Equal(t, "Curso online. Escríbenos al +56 912 345 678", rec.AdText)
	assert.Equal(t, "https://img/1.jpg", rec.ImageURL)
	assert.Equal(t, "https://vid/hd.mp4", rec.VideoURL)
	assert.Equal(t, 14, rec.AdsCount)
	assert.Equal(t, 35, rec.DaysRunning)
	require.NotNil(t, rec.StartDate)
	assert.Equal(t, []string{"Facebook", "Instagram"}, rec.Platforms)
	assert.Equal(t, "Chile", rec.Country)
	assert.Equal(t, "CL", rec.CountryCode)
	assert.Equal(t, "curso", rec.SearchKeyword)
	assert.Equal(t, []string{"apify | curso"}, rec.MatchedKeywords)
	assert.True(t, rec.HasContactSignal)
	assert.Equal(t, "+56912345678", rec.ContactPhone)
	assert.Equal(t, model.DataSourceApify, rec.DataSource)
	assert.JSONEq(t, string(raw), string(rec.RawSourceData))
}

func TestFormat_Defaults(t *testing.T) {
	rec := Format([]byte(`{}`), testCtx())

	assert.Equal(t, model.NoPageNamePlaceholder, rec.PageName)
	assert.Equal(t, model.NoTextPlaceholder, rec.AdText)
	assert.False(t, rec.HasText())
	assert.Empty(t, rec.PageURL)
	assert.Empty(t, rec.ImageURL)
	assert.Empty(t, rec.VideoURL)
	assert.Equal(t, 1, rec.AdsCount)
	assert.Equal(t, 0, rec.DaysRunning)
	assert.Nil(t, rec.StartDate)
	assert.Equal(t, []string{"Facebook"}, rec.Platforms)
	assert.False(t, rec.HasContactSignal)
}

func TestFormat_InvalidJSONNeverFails(t *testing.T) {
	raw := []byte(`not json at all`)
	rec := Format(raw, testCtx())

	assert.Equal(t, model.NoPageNamePlaceholder, rec.PageName)
	assert.Equal(t, model.NoTextPlaceholder, rec.AdText)
	assert.Equal(t, 1, rec.AdsCount)

	var s string
	require.NoError(t, json.Unmarshal(rec.RawSourceData, &s))
	assert.Equal(t, "not json at all", s)
}

func TestFormat_TextFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "snapshot body string", raw: `{"snapshot":{"body":"  hola  "}}`, want: "hola"},
		{name: "snapshot body text", raw: `{"snapshot":{"body":{"text":"desde objeto"}}}`, want: "desde objeto"},
		{name: "snapshot body markup", raw: `{"snapshot":{"body":{"markup":{"__html":"<p>html</p>"}}}}`, want: "<p>html</p>"},
		{name: "object without text", raw: `{"snapshot":{"body":{"foo":"bar"}}}`, want: `{"foo":"bar"}`},
		{name: "empty body skipped", raw: `{"snapshot":{"body":"","description":"desc"}}`, want: "desc"},
		{name: "top-level text", raw: `{"text":"arriba"}`, want: "arriba"},
		{name: "top-level description", raw: `{"description":"descripcion"}`, want: "descripcion"},
		{name: "nothing", raw: `{"other":1}`, want: model.NoTextPlaceholder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Format([]byte(tc.raw), testCtx())
			assert.Equal(t, tc.want, rec.AdText)
		})
	}
}

func TestFormat_MediaFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantImage string
		wantVideo string
	}{
		{
			name:      "direct image",
			raw:       `{"snapshot":{"image_url":"https://i/direct.jpg"}}`,
			wantImage: "https://i/direct.jpg",
		},
		{
			name:      "images array string",
			raw:       `{"snapshot":{"images":["https://i/0.jpg","https://i/1.jpg"]}}`,
			wantImage: "https://i/0.jpg",
		},
		{
			name:      "images array object",
			raw:       `{"snapshot":{"images":[{"original_image_url":"https://i/o.jpg"}]}}`,
			wantImage: "https://i/o.jpg",
		},
		{
			name:      "card sd only",
			raw:       `{"snapshot":{"cards":[{"video_sd_url":"https://v/sd.mp4"}]}}`,
			wantVideo: "https://v/sd.mp4",
		},
		{
			name:      "videos array",
			raw:       `{"snapshot":{"videos":[{"video_sd_url":"https://v/a.mp4"}]}}`,
			wantVideo: "https://v/a.mp4",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Format([]byte(tc.raw), testCtx())
			assert.Equal(t, tc.wantImage, rec.ImageURL)
			assert.Equal(t, tc.wantVideo, rec.VideoURL)
		})
	}
}

func TestFormat_AdsCountFallbacks(t *testing.T) {
	assert.Equal(t, 7, Format([]byte(`{"collation_count":7}`), testCtx()).AdsCount)
	assert.Equal(t, 3, Format([]byte(`{"total_active_ads":"3"}`), testCtx()).AdsCount)
	assert.Equal(t, 1, Format([]byte(`{"ads_count":0}`), testCtx()).AdsCount)
	assert.Equal(t, 1, Format([]byte(`{"ads_count":-4}`), testCtx()).AdsCount)
}

func TestFormat_DaysRunning(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "unix seconds", raw: `{"start_date": 1746057600}`, want: 31},
		{name: "unix millis", raw: `{"start_date": 1746057600000}`, want: 31},
		{name: "date only", raw: `{"start_date": "2025-05-01"}`, want: 31},
		{name: "rfc3339", raw: `{"ad_delivery_start_time": "2025-05-01T12:00:00Z"}`, want: 31},
		{name: "offset", raw: `{"start_date": "2025-05-01T12:00:00+0000"}`, want: 31},
		{name: "future clamps to zero", raw: `{"start_date": "2025-07-01"}`, want: 0},
		{name: "garbage", raw: `{"start_date": "ayer"}`, want: 0},
		{name: "missing", raw: `{}`, want: 0},
		{name: "nan string", raw: `{"ad_delivery_start_time": "NaN"}`, want: 0},
		{name: "infinity string", raw: `{"ad_delivery_start_time": "Infinity"}`, want: 0},
		{name: "inf string", raw: `{"ad_delivery_start_time": "inf"}`, want: 0},
		{name: "huge number", raw: `{"ad_delivery_start_time": 1e30}`, want: 0},
		{name: "huge numeric string", raw: `{"start_date": "99999999999999999999999"}`, want: 0},
		{name: "numeric string seconds", raw: `{"start_date": "1746057600"}`, want: 31},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format([]byte(tc.raw), testCtx()).DaysRunning)
		})
	}
}

func TestFormat_OutOfRangeStartDate(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Infinity"`, `"inf"`, `1e30`, `-1e30`} {
		rec := Format([]byte(`{"ad_delivery_start_time":`+raw+`}`), testCtx())
		assert.Nil(t, rec.StartDate, raw)
		assert.Zero(t, rec.DaysRunning, raw)
	}
}

func TestFormat_ContactFromPageName(t *testing.T) {
	rec := Format([]byte(`{"page_name":"Tienda WhatsApp"}`), testCtx())
	assert.True(t, rec.HasContactSignal)
	assert.Empty(t, rec.ContactPhone)
}

func TestFormat_PlaceholderTextIgnoredForContact(t *testing.T) {
	rec := Format([]byte(`{"page_name":"Tienda"}`), testCtx())
	assert.False(t, rec.HasContactSignal)
}

func TestFormat_Idempotent(t *testing.T) {
	raw := []byte(`{"page_name":"X","snapshot":{"body":"Escríbeme por WhatsApp"},"start_date":"2025-01-01"}`)
	a := Format(raw, testCtx())
	b := Format(raw, testCtx())
	assert.Equal(t, a, b)
}

func TestFormat_PageURLPreferred(t *testing.T) {
	rec := Format([]byte(`{"page_id":"1","page_url":"https://facebook.com/academia"}`), testCtx())
	assert.Equal(t, "https://facebook.com/academia", rec.PageURL)
}

func TestDaysRunning(t *testing.T) {
	assert.Equal(t, 0, DaysRunning(nil, fixedNow))
	start := fixedNow.Add(-36 * time.Hour)
	assert.Equal(t, 1, DaysRunning(&start, fixedNow))
	start = fixedNow.Add(time.Hour)
	assert.Equal(t, 0, DaysRunning(&start, fixedNow))
}
