package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ad-scout/internal/model"
)

func rec(country, text, page, phone string) model.AdRecord {
	return model.AdRecord{CountryCode: country, AdText: text, PageName: page, ContactPhone: phone}
}

func TestCheck_Scenarios(t *testing.T) {
	academia := rec("CL", "compra tu curso de marketing", "Academia X", "")

	d := Filter{}.Check(academia, "CL", "curso de marketing")
	assert.True(t, d.Relevant)
	assert.Equal(t, ReasonMatched, d.Reason)
	assert.Equal(t, []string{"curso", "marketing"}, d.MatchedWords)

	d = Filter{}.Check(academia, "PE", "curso")
	assert.False(t, d.Relevant)
	assert.Equal(t, ReasonCountryMismatch, d.Reason)

	mx := rec("CL", "compra tu curso de marketing", "Academia X", "+521234567890")
	d = Filter{}.Check(mx, "CL", "curso")
	assert.False(t, d.Relevant)
	assert.Equal(t, ReasonPhoneCountry, d.Reason)
}

func TestCheck_Gates(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.AdRecord
		country string
		keyword string
		want    Reason
	}{
		{
			name:    "country is case sensitive",
			rec:     rec("cl", "curso", "X", ""),
			country: "CL", keyword: "curso",
			want: ReasonCountryMismatch,
		},
		{
			name:    "matching phone country passes",
			rec:     rec("CL", "curso", "X", "+56 912 345 678"),
			country: "CL", keyword: "curso",
			want: ReasonMatched,
		},
		{
			name:    "unknown prefix does not reject",
			rec:     rec("CL", "curso", "X", "+44 20 7946 0958"),
			country: "CL", keyword: "curso",
			want: ReasonMatched,
		},
		{
			name:    "local phone is not resolved",
			rec:     rec("CL", "curso", "X", "521234567890"),
			country: "CL", keyword: "curso",
			want: ReasonMatched,
		},
		{
			name:    "only stop words",
			rec:     rec("CL", "de la", "X", ""),
			country: "CL", keyword: "de la y",
			want: ReasonEmptyKeyword,
		},
		{
			name:    "plural variation",
			rec:     rec("CL", "Nuevos cursos disponibles", "X", ""),
			country: "CL", keyword: "curso",
			want: ReasonMatched,
		},
		{
			name:    "singular variation",
			rec:     rec("CL", "Un curso gratis", "X", ""),
			country: "CL", keyword: "cursos",
			want: ReasonMatched,
		},
		{
			name:    "accent insensitive",
			rec:     rec("CL", "Aprende PROGRAMACIÓN", "X", ""),
			country: "CL", keyword: "programacion",
			want: ReasonMatched,
		},
		{
			name:    "page name counts",
			rec:     rec("CL", model.NoTextPlaceholder, "Marketing Pro", ""),
			country: "CL", keyword: "marketing",
			want: ReasonMatched,
		},
		{
			name:    "placeholder text is not searched",
			rec:     rec("CL", model.NoTextPlaceholder, "Tienda", ""),
			country: "CL", keyword: "texto disponible",
			want: ReasonNoKeywordMatch,
		},
		{
			name:    "no token matches",
			rec:     rec("CL", "zapatillas deportivas", "Tienda", ""),
			country: "CL", keyword: "curso marketing",
			want: ReasonNoKeywordMatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Filter{}.Check(tc.rec, tc.country, tc.keyword)
			assert.Equal(t, tc.want, d.Reason)
			assert.Equal(t, tc.want == ReasonMatched, d.Relevant)
		})
	}
}

func TestIsRelevant_EmptyTokensNeverMatch(t *testing.T) {
	keywords := []string{"", "   ", ",;:|", "a", "de la", "y o a"}
	records := []model.AdRecord{
		rec("CL", "de la a y o", "a", ""),
		rec("CL", model.NoTextPlaceholder, model.NoPageNamePlaceholder, ""),
		rec("CL", "", "", ""),
	}
	for _, kw := range keywords {
		for _, r := range records {
			assert.False(t, IsRelevant(r, "CL", kw), "keyword %q", kw)
		}
	}
}
