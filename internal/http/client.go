package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/drivemanager/drivectl/internal/config"
)

// NewClient returns the client used for API calls: proxy-aware, with HTTP/2
// configured on plain transports.
//
// HTTP/2 is turned off when a proxy is active (proxies often mishandle
// multiplexed streams) or when DISABLE_HTTP2=true.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport; leave it as HTTP/1.1
		return client, nil
	}

	if os.Getenv("DISABLE_HTTP2") == "true" || tr.Proxy != nil {
		disableHTTP2(tr)
		return client, nil
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		disableHTTP2(tr)
	}
	return client, nil
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}
