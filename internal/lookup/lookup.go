// Package lookup resolves a plate to vehicle details using an external
// vehicle information page.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"

	"platerate/internal/utils"
)

// ErrNotFound means the service has no record for the plate.
var ErrNotFound = errors.New("vehicle not found")

// VehicleRecord is what the lookup knows about a plate. An empty Plate
// means the lookup answered but found nothing usable.
type VehicleRecord struct {
	Plate string
	Make  string
	Model string
	Year  int
}

// Lookup resolves plates.
type Lookup interface {
	Lookup(ctx context.Context, plate string) (VehicleRecord, error)
}

// HTTPLookup scrapes the vehicle page at BaseURL/<plate>.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
	cache   *utils.TTLCache[VehicleRecord]
	logger  *slog.Logger
}

// NewHTTPLookup creates a lookup with a per-plate result cache.
func NewHTTPLookup(baseURL string, cacheTTL time.Duration, logger *slog.Logger) (*HTTPLookup, error) {
	cache, err := utils.NewTTLCache[VehicleRecord](1000, cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &HTTPLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		logger:  logger,
	}, nil
}

// Lookup fetches vehicle details for an already normalized plate.
func (l *HTTPLookup) Lookup(ctx context.Context, plate string) (VehicleRecord, error) {
	if rec, ok := l.cache.Get(plate); ok {
		l.logger.Debug("Lookup cache hit", "plate", plate)
		return rec, nil
	}

	var rec VehicleRecord
	err := retry.Do(
		func() error {
			var fetchErr error
			rec, fetchErr = l.fetch(ctx, plate)
			if errors.Is(fetchErr, ErrNotFound) {
				return retry.Unrecoverable(fetchErr)
			}
			return fetchErr
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(250*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			l.logger.Info("Retrying vehicle lookup after error", "plate", plate, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return VehicleRecord{}, err
	}

	if rec.Plate != "" {
		l.cache.Set(plate, rec)
	}
	l.logger.Info("Vehicle lookup completed", "plate", plate, "make", rec.Make, "model", rec.Model)
	return rec, nil
}

func (l *HTTPLookup) fetch(ctx context.Context, plate string) (VehicleRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+url.PathEscape(plate), nil)
	if err != nil {
		return VehicleRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return VehicleRecord{}, fmt.Errorf("fetch vehicle page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return VehicleRecord{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return VehicleRecord{}, fmt.Errorf("vehicle page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return VehicleRecord{}, fmt.Errorf("parse vehicle page: %w", err)
	}
	return parseVehicle(doc), nil
}

// parseVehicle reads the <dl class="vehicle"> term/definition pairs.
func parseVehicle(doc *goquery.Document) VehicleRecord {
	fields := make(map[string]string)
	doc.Find("dl.vehicle dt").Each(func(i int, s *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(s.Text()))
		fields[key] = strings.TrimSpace(s.NextFiltered("dd").Text())
	})

	year, _ := strconv.Atoi(fields["year"])
	return VehicleRecord{
		Plate: utils.NormalizePlate(fields["plate"]),
		Make:  fields["make"],
		Model: fields["model"],
		Year:  year,
	}
}
