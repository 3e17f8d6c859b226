package kkdai

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

const httpTimeout = 15 * time.Second

func newYouTubeClient(proxyStr string) *youtube.Client {
	transport := proxyTransport(proxyStr)
	if transport == nil {
		return &youtube.Client{HTTPClient: &http.Client{Timeout: httpTimeout}}
	}
	return &youtube.Client{
		HTTPClient: &http.Client{
			Timeout:   httpTimeout,
			Transport: transport,
		},
	}
}

// proxyTransport returns nil when no usable proxy is configured.
func proxyTransport(proxyStr string) *http.Transport {
	if proxyStr == "" {
		return nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("[kkdai] invalid proxy format, going direct")
		return nil
	}

	switch proxyURL.Scheme {
	case "http", "https":
		log.Info().Str("proxy", proxyURL.Host).Msg("[kkdai] using HTTP proxy")
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}

	case "socks5":
		log.Info().Str("proxy", proxyURL.Host).Msg("[kkdai] using SOCKS5 proxy")
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("[kkdai] SOCKS5 dialer error, going direct")
			return nil
		}
		return &http.Transport{DialContext: dialContext(dialer)}

	case "socks4", "socks4a":
		// go-socks4 registers these schemes with x/net/proxy on import.
		log.Info().Str("proxy", proxyURL.Host).Msg("[kkdai] using SOCKS4 proxy")
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{Timeout: 10 * time.Second})
		if err != nil {
			log.Warn().Err(err).Msg("[kkdai] SOCKS4 dialer error, going direct")
			return nil
		}
		return &http.Transport{DialContext: dialContext(dialer)}

	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("[kkdai] unsupported proxy scheme, going direct")
		return nil
	}
}

func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
