package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostOf(t *testing.T) {
	assert.Equal(t, "alibaba.com", HostOf("https://www.alibaba.com/product-detail/x_1.html"))
	assert.Equal(t, "m.indiamart.com", HostOf("https://M.IndiaMART.com/proddetail/1.html"))
	assert.Equal(t, "", HostOf("::bad"))
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("alibaba.com", "alibaba.com"))
	assert.True(t, HostMatches("sale.alibaba.com", "alibaba.com"))
	assert.False(t, HostMatches("notalibaba.com", "alibaba.com"))
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.made-in-china.com/products/abc.html"

	assert.Equal(t, "https://img.example.com/a.jpg", AbsoluteURL(base, "//img.example.com/a.jpg"))
	assert.Equal(t, "https://www.made-in-china.com/img/b.png", AbsoluteURL(base, "/img/b.png"))
	assert.Equal(t, "https://cdn.example.com/c.webp", AbsoluteURL(base, "https://cdn.example.com/c.webp"))
	assert.Equal(t, "", AbsoluteURL(base, "data:image/gif;base64,R0lGOD"))
	assert.Equal(t, "", AbsoluteURL(base, "  "))
	assert.Equal(t, "", AbsoluteURL("", "relative.jpg"))
}

func TestDetectBlock(t *testing.T) {
	assert.False(t, DetectBlock(""))
	assert.False(t, DetectBlock("<html><body>Regular page</body></html>"))
	assert.True(t, DetectBlock(`<script src="/_____tmd_____/punish?x=1"></script>`))
	assert.True(t, DetectBlock("<p>Sorry, we have detected unusual traffic from your network.</p>"))
	assert.False(t, DetectBlock(`<meta property="og:title" content="Slide to verify holder"><p>slide to verify</p>`))
}
