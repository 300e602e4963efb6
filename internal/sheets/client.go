// Package sheets reads the media-tracker spreadsheet and aggregates it into
// period statistics.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

const reportsTab = "Reports"

// fetcher returns the cell values of each range, in request order.
type fetcher interface {
	BatchGet(ctx context.Context, ranges []string) ([][][]interface{}, error)
}

type apiFetcher struct {
	svc           *gsheets.Service
	spreadsheetID string
}

func (f apiFetcher) BatchGet(ctx context.Context, ranges []string) ([][][]interface{}, error) {
	resp, err := f.svc.Spreadsheets.Values.BatchGet(f.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([][][]interface{}, len(ranges))
	for i, vr := range resp.ValueRanges {
		if i < len(out) {
			out[i] = vr.Values
		}
	}
	return out, nil
}

// Client is a read-only view of the spreadsheet.
type Client struct {
	fetch fetcher
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

// NewClient connects to the Sheets API. An empty credentialsFile uses
// application default credentials.
func NewClient(ctx context.Context, spreadsheetID, credentialsFile string, loc *time.Location, log *zap.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(apiFetcher{svc: svc, spreadsheetID: spreadsheetID}, loc, log), nil
}

func newClient(f fetcher, loc *time.Location, log *zap.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{fetch: f, loc: loc, log: log, now: time.Now}
}

type snapshot struct {
	items   []domain.Item
	reports []domain.ReportRecord
}

// load reads every category tab and the report log in a single request.
func (c *Client) load(ctx context.Context) (snapshot, error) {
	cats := domain.ItemCategories()
	ranges := make([]string, 0, len(cats)+1)
	for _, ci := range cats {
		ranges = append(ranges, ci.Sheet+"!A2:E")
	}
	ranges = append(ranges, reportsTab+"!A2:D")

	started := time.Now()
	values, err := c.fetch.BatchGet(ctx, ranges)
	if err != nil {
		return snapshot{}, fmt.Errorf("read spreadsheet: %w: %v", domain.ErrCollaboratorUnavailable, err)
	}
	c.log.Debug("spreadsheet read", zap.Int("ranges", len(ranges)), zap.Duration("took", time.Since(started)))

	var snap snapshot
	for i, ci := range cats {
		if i < len(values) {
			snap.items = append(snap.items, ParseItems(ci.Key, values[i], c.loc)...)
		}
	}
	if n := len(cats); n < len(values) {
		snap.reports = ParseReports(values[n], c.loc)
	}
	return snap, nil
}

// WeeklyStats covers the most recent Sunday 00:00 up to now.
func (c *Client) WeeklyStats(ctx context.Context) (domain.PeriodStats, error) {
	now := c.now()
	return c.StatsForDateRange(ctx, domain.WeekStart(now, c.loc), now)
}

// MonthlyStats covers the first of this month up to now.
func (c *Client) MonthlyStats(ctx context.Context) (domain.PeriodStats, error) {
	now := c.now()
	return c.StatsForDateRange(ctx, domain.MonthStart(now, c.loc), now)
}

// StatsForDateRange aggregates [start, end).
func (c *Client) StatsForDateRange(ctx context.Context, start, end time.Time) (domain.PeriodStats, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return domain.NewPeriodStats(start, end), err
	}
	return Aggregate(snap.items, snap.reports, start, end), nil
}

// RecentReports returns up to n report rows, newest first.
func (c *Client) RecentReports(ctx context.Context, n int) ([]domain.ReportRecord, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return Newest(snap.reports, n), nil
}

// AbandonedItems lists in-progress items untouched for olderThan.
func (c *Client) AbandonedItems(ctx context.Context, olderThan time.Duration) ([]domain.Item, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return Abandoned(snap.items, c.now(), olderThan), nil
}

// Unavailable stands in when no spreadsheet is configured. Every call fails
// with domain.ErrCollaboratorUnavailable so reports degrade instead of crashing.
type Unavailable struct{}

func (Unavailable) err() error {
	return fmt.Errorf("spreadsheet not configured: %w", domain.ErrCollaboratorUnavailable)
}

func (u Unavailable) WeeklyStats(context.Context) (domain.PeriodStats, error) {
	return domain.NewPeriodStats(time.Time{}, time.Time{}), u.err()
}

func (u Unavailable) MonthlyStats(context.Context) (domain.PeriodStats, error) {
	return domain.NewPeriodStats(time.Time{}, time.Time{}), u.err()
}

func (u Unavailable) StatsForDateRange(_ context.Context, start, end time.Time) (domain.PeriodStats, error) {
	return domain.NewPeriodStats(start, end), u.err()
}

func (u Unavailable) RecentReports(context.Context, int) ([]domain.ReportRecord, error) {
	return nil, u.err()
}

func (u Unavailable) AbandonedItems(context.Context, time.Duration) ([]domain.Item, error) {
	return nil, u.err()
}
