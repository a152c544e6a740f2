// Package adformat turns heterogeneous ad-library scraper records into
// canonical model.AdRecord values.
package adformat

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/contact"
	"github.com/sells-group/ad-scout/internal/model"
)

// Context carries the search pair that produced a record.
type Context struct {
	Keyword string
	Country string
	Source  model.DataSource
	// Now anchors the days-running computation. Zero means time.Now().
	Now time.Time
}

var (
	textPaths = []string{
		"snapshot.body", "snapshot.ad_creative_body", "snapshot.text", "snapshot.description",
		"body", "ad_creative_body", "ad_creative_bodies.0", "text", "description",
	}
	nestedTextPaths = []string{"text", "body", "markup.__html"}

	imagePaths = []string{
		"snapshot.image_url", "snapshot.original_image_url", "snapshot.resized_image_url", "image_url",
	}
	cardImagePaths = []string{"original_image_url", "image_url", "resized_image_url"}
	imageItemPaths = []string{"url", "src", "original_image_url", "resized_image_url"}

	videoPaths     = []string{"snapshot.video_url", "snapshot.video_hd_url", "snapshot.video_sd_url"}
	videoItemPaths = []string{"video_hd_url", "video_sd_url", "url"}

	startDatePaths = []string{"ad_delivery_start_time", "start_date", "startDate", "ad_creation_time"}
	endDatePaths   = []string{"ad_delivery_stop_time", "end_date", "endDate"}
)

// Format normalizes one raw record. It never fails: missing or malformed
// fields fall back to defaults. Output depends only on raw and c.
func Format(raw []byte, c Context) model.AdRecord {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	doc := Parse(raw)
	if !doc.Valid() {
		zap.L().Debug("adformat: record is not a JSON object", zap.Int("bytes", len(raw)))
	}

	pageID := doc.String("page_id", "pageID", "pageId", "snapshot.page_id")
	pageName := doc.String("page_name", "pageName", "snapshot.page_name")
	if pageName == "" {
		pageName = model.NoPageNamePlaceholder
	}

	adText := extractText(doc)
	start := parseDate(doc.First(startDatePaths...))
	end := parseDate(doc.First(endDatePaths...))

	rec := model.AdRecord{
		PageName:      pageName,
		PageID:        pageID,
		PageURL:       pageURL(doc, pageID),
		AdID:          doc.String("ad_id", "id", "adArchiveID"),
		LibraryID:     doc.String("ad_archive_id", "library_id", "adArchiveID"),
		AdText:        adText,
		ImageURL:      extractImageURL(doc),
		VideoURL:      extractVideoURL(doc),
		AdsCount:      doc.PositiveInt("ads_count", "collation_count", "total_active_ads"),
		DaysRunning:   DaysRunning(start, now),
		StartDate:     start,
		EndDate:       end,
		Country:       model.CountryName(c.Country),
		CountryCode:   c.Country,
		Platforms:     doc.Strings("platforms", "publisher_platform", "publisherPlatform"),
		SearchKeyword: c.Keyword,
		DataSource:    c.Source,
		RawSourceData: rawCopy(raw),
	}
	if rec.AdsCount < 1 {
		rec.AdsCount = 1
	}
	if len(rec.Platforms) == 0 {
		rec.Platforms = []string{"Facebook"}
	}
	rec.AdsLibraryURL = doc.String("ad_snapshot_url", "ad_library_url", "url")
	if rec.AdsLibraryURL == "" && rec.LibraryID != "" {
		rec.AdsLibraryURL = "https://www.facebook.com/ads/library/?id=" + rec.LibraryID
	}
	if c.Keyword != "" {
		rec.MatchedKeywords = []string{fmt.Sprintf("%s | %s", sourceLabel(c.Source), c.Keyword)}
	}

	text := ""
	if rec.HasText() {
		text = rec.AdText
	}
	sig := contact.Detect(text, rec.PageName)
	rec.HasContactSignal = sig.Present
	rec.ContactPhone = sig.Phone

	return rec
}

func sourceLabel(s model.DataSource) string {
	if s == "" {
		return string(model.DataSourceApify)
	}
	return string(s)
}

func pageURL(doc Doc, pageID string) string {
	if u := doc.String("page_url", "pageUrl", "snapshot.page_profile_uri"); u != "" {
		return u
	}
	if pageID != "" {
		return "https://facebook.com/" + pageID
	}
	return ""
}

func extractText(doc Doc) string {
	r := doc.First(textPaths...)
	if !r.Exists() {
		return model.NoTextPlaceholder
	}
	if r.IsObject() {
		if nested := first(r, nestedTextPaths...); nested.Exists() && !nested.IsObject() && !nested.IsArray() {
			return strings.TrimSpace(nested.String())
		}
		return r.Raw
	}
	if r.IsArray() {
		return r.Raw
	}
	return strings.TrimSpace(r.String())
}

func extractImageURL(doc Doc) string {
	if u := doc.String(imagePaths...); u != "" {
		return u
	}
	for _, card := range doc.Get("snapshot.cards").Array() {
		if u := first(card, cardImagePaths...); u.Exists() {
			return strings.TrimSpace(u.String())
		}
	}
	img := doc.Get("snapshot.images.0")
	switch {
	case img.Type == gjson.String:
		return strings.TrimSpace(img.Str)
	case img.IsObject():
		if u := first(img, imageItemPaths...); u.Exists() {
			return strings.TrimSpace(u.String())
		}
	}
	return ""
}

func extractVideoURL(doc Doc) string {
	for _, card := range doc.Get("snapshot.cards").Array() {
		if u := first(card, "video_hd_url"); u.Exists() {
			return strings.TrimSpace(u.String())
		}
		if u := first(card, "video_sd_url"); u.Exists() {
			return strings.TrimSpace(u.String())
		}
	}
	if u := doc.String(videoPaths...); u != "" {
		return u
	}
	for _, v := range doc.Get("snapshot.videos").Array() {
		if u := first(v, videoItemPaths...); u.Exists() {
			return strings.TrimSpace(u.String())
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts a Unix timestamp (seconds or milliseconds) or an ISO-like
// date string. Unparseable input yields nil.
// Numeric start dates are Unix seconds, or milliseconds above 1e12.
var numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

const maxUnixSecs = 1e11

func parseDate(r gjson.Result) *time.Time {
	if !r.Exists() {
		return nil
	}
	var raw string
	switch r.Type {
	case gjson.Number:
		raw = r.Raw
	case gjson.String:
		raw = strings.TrimSpace(r.Str)
	default:
		zap.L().Debug("adformat: unsupported start date type", zap.String("raw", r.Raw))
		return nil
	}

	if r.Type == gjson.Number || numericRe.MatchString(raw) {
		n, err := strconv.ParseFloat(raw, 64)
		if err == nil && n > 1e12 {
			n /= 1000
		}
		if err != nil || math.IsNaN(n) || math.Abs(n) > maxUnixSecs {
			zap.L().Debug("adformat: timestamp out of range", zap.String("raw", raw))
			return nil
		}
		t := time.Unix(int64(n), 0).UTC()
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	zap.L().Debug("adformat: unparseable date", zap.String("raw", raw))
	return nil
}

// DaysRunning returns whole days elapsed between start and now, never negative.
func DaysRunning(start *time.Time, now time.Time) int {
	if start == nil {
		return 0
	}
	days := int(now.Sub(*start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func rawCopy(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		return quoted
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
