package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuery_LimitAndOffset(t *testing.T) {
	options := DefaultOptions()

	tests := []struct {
		name       string
		raw        string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 20, 0},
		{"allowed limit", "limit=50", 50, 0},
		{"limit not in allow list", "limit=30", 20, 0},
		{"limit not a number", "limit=abc", 20, 0},
		{"limit with decimals", "limit=100.0", 100, 0},
		{"limit infinite", "limit=Inf", 20, 0},
		{"explicit offset", "limit=20&offset=40", 20, 40},
		{"negative offset clamps", "offset=-5", 20, 0},
		{"nan offset ignored", "offset=NaN", 20, 0},
		{"offset wins over page", "offset=10&page=3", 20, 10},
		{"page derives offset", "limit=50&page=3", 50, 100},
		{"page one", "page=1", 20, 0},
		{"page zero", "page=0", 20, 0},
		{"negative page", "page=-2", 20, 0},
		{"garbage offset falls back to page", "offset=x&page=2", 20, 20},
		{"huge offset capped", "offset=1e300", 20, maxOffset},
		{"exponent notation", "limit=5e1&offset=2.5e1", 50, 25},
		{"fraction truncated", "offset=39.99", 20, 39},
		{"whitespace", "limit=%2050%20&offset=%205", 50, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)

			query := options.ParseQuery(values)

			require.Equal(t, tt.wantLimit, query.Limit)
			require.Equal(t, tt.wantOffset, query.Offset)
		})
	}
}

func TestParseQuery_Filters(t *testing.T) {
	options := DefaultOptions()

	t.Run("text is trimmed", func(t *testing.T) {
		query := options.ParseQuery(url.Values{"q": {"  frog  "}})
		require.Equal(t, "frog", query.Text)
	})

	t.Run("blank text means no filter", func(t *testing.T) {
		query := options.ParseQuery(url.Values{"q": {"   "}})
		require.Empty(t, query.Text)
	})

	t.Run("categories csv", func(t *testing.T) {
		query := options.ParseQuery(url.Values{"categories": {" Specimens, ,Dissecting Kits,Specimens "}})
		require.Equal(t, []string{"Specimens", "Dissecting Kits"}, query.Categories)
	})

	t.Run("repeated categories params", func(t *testing.T) {
		query := options.ParseQuery(url.Values{"categories": {"A", "B,A"}})
		require.Equal(t, []string{"A", "B"}, query.Categories)
	})

	t.Run("unknown price buckets ignored", func(t *testing.T) {
		query := options.ParseQuery(url.Values{"priceBuckets": {"bogus,under-50,,250-plus,under-50"}})
		require.Equal(t, []string{"under-50", "250-plus"}, query.BucketKeys())
	})

	t.Run("only unknown buckets equals no filter", func(t *testing.T) {
		withBogus := options.ParseQuery(url.Values{"priceBuckets": {"bogus"}})
		without := options.ParseQuery(url.Values{})
		require.Equal(t, without, withBogus)
	})
}

func TestQuery_Values(t *testing.T) {
	options := DefaultOptions()
	query := options.ParseQuery(url.Values{
		"limit":        {"50"},
		"page":         {"2"},
		"q":            {"frog"},
		"categories":   {"Specimens,Kits"},
		"priceBuckets": {"50-99,bogus"},
	})

	values := query.Values()

	require.Equal(t, "50", values.Get("limit"))
	require.Equal(t, "50", values.Get("offset"))
	require.Equal(t, "frog", values.Get("q"))
	require.Equal(t, "Specimens,Kits", values.Get("categories"))
	require.Equal(t, "50-99", values.Get("priceBuckets"))
	require.Empty(t, values.Get("page"))
}

func TestQuery_Values_OmitsEmptyFilters(t *testing.T) {
	values := Query{Limit: 20}.Values()

	require.Equal(t, "20", values.Get("limit"))
	require.Equal(t, "0", values.Get("offset"))
	require.NotContains(t, values, "q")
	require.NotContains(t, values, "categories")
	require.NotContains(t, values, "priceBuckets")
}

func TestContainsPattern(t *testing.T) {
	require.Equal(t, "%frog%", ContainsPattern("frog"))
	require.Equal(t, `%100\% agar%`, ContainsPattern("100% agar"))
	require.Equal(t, `%\_%`, ContainsPattern("_"))
	require.Equal(t, `%C:\\kits%`, ContainsPattern(`C:\kits`))
}
