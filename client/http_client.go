package client

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// defaultHTTPClient keeps cookies between the page fetch and the media
// requests: the CDN rejects playAddr requests without the page's session cookies.
func defaultHTTPClient(proxyURL string) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if proxy := parseProxyURL(proxyURL); proxy != nil {
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			transport := base.Clone()
			transport.Proxy = http.ProxyURL(proxy)
			rt = transport
		}
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &http.Client{Transport: rt, Jar: jar}
}

func parseProxyURL(raw string) *url.URL {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	return parsed
}
