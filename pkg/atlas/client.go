// Package atlas provides a client for the RIPE Atlas v2 API: measurement
// metadata, bulk result downloads, and the probe status archive.
package atlas

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/fetcher"
)

// Client defines the Atlas API operations the pipeline depends on.
type Client interface {
	// MeasurementInfo fetches measurement metadata, including its time range.
	MeasurementInfo(ctx context.Context, measurementID int) (*MeasurementInfo, error)
	// DownloadResults downloads all results of a measurement as NDJSON into path.
	DownloadResults(ctx context.Context, measurementID int, start, stop int64, path string) error
	// DownloadProbeArchive downloads probe status history as NDJSON into path.
	// The archive is terminated by a {"count": N} footer record.
	DownloadProbeArchive(ctx context.Context, probeIDs []int, start, stop int64, path string) error
}

// MeasurementInfo is the subset of measurement metadata the pipeline uses.
type MeasurementInfo struct {
	ID          int    `json:"id"`
	StartTime   int64  `json:"start_time"`
	StopTime    int64  `json:"stop_time"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type httpClient struct {
	baseURL string
	fetcher *fetcher.HTTPFetcher
}

// Option configures the Atlas client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(base string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// NewClient creates an Atlas API client over the given fetcher.
func NewClient(f *fetcher.HTTPFetcher, opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://atlas.ripe.net/api/v2",
		fetcher: f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) MeasurementInfo(ctx context.Context, measurementID int) (*MeasurementInfo, error) {
	u := fmt.Sprintf("%s/measurements/%d/", c.baseURL, measurementID)

	body, err := c.fetcher.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "atlas: measurement info %d", measurementID)
	}
	defer body.Close() //nolint:errcheck

	info, err := fetcher.DecodeJSONObject[MeasurementInfo](body)
	if err != nil {
		return nil, eris.Wrapf(err, "atlas: measurement info %d", measurementID)
	}
	return info, nil
}

func (c *httpClient) DownloadResults(ctx context.Context, measurementID int, start, stop int64, path string) error {
	u := fmt.Sprintf("%s/measurements/%d/results/?start=%d&stop=%d&format=txt",
		c.baseURL, measurementID, start, stop)

	n, err := c.fetcher.DownloadToFile(ctx, u, path)
	if err != nil {
		return eris.Wrapf(err, "atlas: download results %d", measurementID)
	}

	zap.L().Info("downloaded measurement results",
		zap.Int("measurement_id", measurementID),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return nil
}

func (c *httpClient) DownloadProbeArchive(ctx context.Context, probeIDs []int, start, stop int64, path string) error {
	ids := make([]string, len(probeIDs))
	for i, id := range probeIDs {
		ids[i] = strconv.Itoa(id)
	}

	params := url.Values{}
	params.Set("probe", strings.Join(ids, ","))
	params.Set("date__gte", isoDate(start))
	params.Set("date__lte", isoDate(stop))
	params.Set("format", "txt")
	u := fmt.Sprintf("%s/probes/archive/?%s", c.baseURL, params.Encode())

	n, err := c.fetcher.DownloadToFile(ctx, u, path)
	if err != nil {
		return eris.Wrap(err, "atlas: download probe archive")
	}

	zap.L().Info("downloaded probe archive",
		zap.Int("probes", len(probeIDs)),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return nil
}

// isoDate formats a unix timestamp as the date-only form the archive
// endpoint filters on.
func isoDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}
