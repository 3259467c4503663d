package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"protocol relative", "//cdn.shop.in/img/1.jpg", "https://cdn.shop.in/img/1.jpg"},
		{"bare domain", "www.firstcry.com/toys", "https://www.firstcry.com/toys"},
		{"uppercase host", "HTTPS://WWW.Ajio.com/Kids", "https://www.ajio.com/Kids"},
		{"default https port", "https://shop.in:443/a", "https://shop.in/a"},
		{"default http port", "http://shop.in:80/a", "http://shop.in/a"},
		{"fragment stripped", "https://shop.in/a#reviews", "https://shop.in/a"},
		{"bare origin gains root path", "https://shop.in", "https://shop.in/"},
		{"mailto left untouched", "mailto:team@shop.in", "mailto:team@shop.in"},
		{"tel left untouched", "tel:+911234567890", "tel:+911234567890"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := Normalize("   ")
		require.Error(t, err)
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"//cdn.shop.in/img/1.jpg",
		"www.firstcry.com/toys?age=4",
		"HTTP://Shop.IN:80/a#x",
		"https://assets-jiocdn.ajio.com/p/1.webp",
		"https://shop.in",
		"mailto:team@shop.in",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		require.Equal(t, once, twice, "normalize must be idempotent for %q", in)
	}
}

func TestRepairImageURL(t *testing.T) {
	t.Parallel()

	t.Run("amazon thumbnail tokens stripped", func(t *testing.T) {
		in := "https://m.media-amazon.com/images/I/41abc._AC_SY200_.jpg"
		require.Equal(t, "https://m.media-amazon.com/images/I/41abc.jpg", RepairImageURL(in))
	})

	t.Run("ajio broken subdomain rewritten", func(t *testing.T) {
		in := "https://assets.ajio.com/medias/sys_master/p1.jpg"
		require.Equal(t, "https://assets-jiocdn.ajio.com/medias/sys_master/p1.jpg", RepairImageURL(in))
	})

	t.Run("unknown host untouched", func(t *testing.T) {
		in := "https://images.shop.in/p._x_.jpg"
		require.Equal(t, in, RepairImageURL(in))
	})

	t.Run("idempotent", func(t *testing.T) {
		in := "https://m.media-amazon.com/images/I/41abc._AC_SY200_.jpg"
		once := RepairImageURL(in)
		require.Equal(t, once, RepairImageURL(once))
	})
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	require.True(t, SameHost("https://www.ajio.com/kids", "https://WWW.AJIO.COM/sale"))
	require.False(t, SameHost("https://www.ajio.com/kids", "https://www.myntra.com/kids"))
	require.False(t, SameHost("not a url ::", "https://www.ajio.com"))
	require.False(t, SameHost("/relative/only", "/relative/only"))
	require.False(t, SameHost("https://shop.in/", "mailto:team@shop.in"))
}

func TestIsSentinel(t *testing.T) {
	t.Parallel()

	require.True(t, IsSentinel("https://example.com/product/1"))
	require.True(t, IsSentinel("https://cdn.shop.in/dummy-product.jpg"))
	require.True(t, IsSentinel("https://img.placeholder.io/300"))
	require.False(t, IsSentinel("https://m.media-amazon.com/images/I/41abc.jpg"))
}

func TestHasImageExtension(t *testing.T) {
	t.Parallel()

	require.True(t, HasImageExtension("https://cdn.shop.in/p.webp"))
	require.True(t, HasImageExtension("https://cdn.shop.in/p.JPG?w=600"))
	require.False(t, HasImageExtension("https://cdn.shop.in/p"))
	require.False(t, HasImageExtension("https://cdn.shop.in/p.svg"))
}
