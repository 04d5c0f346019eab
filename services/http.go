package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dickeyy/bundle-dashboard/config"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

// NewHTTPClient builds the client used for every outbound fetch, routed
// through the configured proxy if any.
func NewHTTPClient(cfg config.ProxyConfig, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}

	switch cfg.Type {
	case "":
	case "socks5":
		if cfg.Address == "" {
			return nil, fmt.Errorf("socks5 proxy address is not set")
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.Address, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
		}
		ctxDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		client.Transport = &http.Transport{DialContext: ctxDialer.DialContext}
		log.Info().Str("proxy", cfg.Address).Msg("using SOCKS5 proxy")
	case "http":
		u, err := url.Parse(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy address: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		log.Info().Str("proxy", u.Redacted()).Msg("using HTTP proxy")
	default:
		return nil, fmt.Errorf("invalid proxy type: %s", cfg.Type)
	}
	return client, nil
}

// HTTPSource GETs the dataset from a web server. Path is resolved against
// BaseURL.
type HTTPSource struct {
	BaseURL string
	Path    string
	Client  *http.Client
}

func (s *HTTPSource) URL() (string, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", err
	}
	path := s.Path
	if path == "" {
		path = config.DatasetPath
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (s *HTTPSource) Load(ctx context.Context) ([]types.MeasurementRecord, error) {
	target, err := s.URL()
	if err != nil {
		return nil, &types.NetworkError{Err: err}
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &types.NetworkError{Err: err}
	}

	log.Debug().Str("url", target).Msg("fetching bundle data")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &types.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}
	return decodeDataset(resp.Body)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// decodeDataset parses a JSON array of measurement records. A JSON null is an
// empty dataset. Anything after the array makes the body invalid.
func decodeDataset(r io.Reader) ([]types.MeasurementRecord, error) {
	var records []types.MeasurementRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, &types.ParseError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after the dataset")
		}
		return nil, &types.ParseError{Err: err}
	}
	return records, nil
}
