package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/notify"
)

// RecentActivityLimit is the number of activity entries in a summary.
const RecentActivityLimit = 10

// CatalogReader is the catalog subset needed by the dashboard.
type CatalogReader interface {
	Stats(ctx context.Context) (catalog.Stats, error)
	LowStockProducts(ctx context.Context) ([]catalog.Product, error)
	LowStockThreshold() int
}

// ActivityReader is the audit subset needed by the dashboard.
type ActivityReader interface {
	RecentActivity(ctx context.Context, limit int) ([]audit.ActivityEntry, error)
}

// NotificationFeed lists recently published notifications. Optional.
type NotificationFeed interface {
	Recent(ctx context.Context, limit int) ([]notify.Notification, error)
}

// Summary is the landing screen payload.
type Summary struct {
	Stats             catalog.Stats         `json:"stats"`
	LowStockThreshold int                   `json:"lowStockThreshold"`
	LowStock          []catalog.Product     `json:"lowStock"`
	RecentActivity    []audit.ActivityEntry `json:"recentActivity"`
	Notifications     []notify.Notification `json:"notifications"`
	GeneratedAt       time.Time             `json:"generatedAt"`
}

// Service assembles dashboard summaries.
type Service struct {
	catalog  CatalogReader
	activity ActivityReader
	feed     NotificationFeed
	now      func() time.Time
	group    singleflight.Group
}

// NewService builds Service. feed may be nil.
func NewService(catalog CatalogReader, activity ActivityReader, feed NotificationFeed) *Service {
	return &Service{
		catalog:  catalog,
		activity: activity,
		feed:     feed,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summary loads stats, low-stock products, recent activity and notifications
// concurrently. Overlapping calls share one load.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	ch := s.group.DoChan("summary", func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) load(ctx context.Context) (Summary, error) {
	out := Summary{LowStockThreshold: s.catalog.LowStockThreshold(), GeneratedAt: s.now()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.catalog.Stats(ctx)
		if err != nil {
			return err
		}
		out.Stats = stats
		return nil
	})

	g.Go(func() error {
		low, err := s.catalog.LowStockProducts(ctx)
		if err != nil {
			return err
		}
		out.LowStock = low
		return nil
	})

	g.Go(func() error {
		entries, err := s.activity.RecentActivity(ctx, RecentActivityLimit)
		if err != nil {
			return err
		}
		out.RecentActivity = entries
		return nil
	})

	if s.feed != nil {
		g.Go(func() error {
			items, err := s.feed.Recent(ctx, RecentActivityLimit)
			if err != nil {
				return err
			}
			out.Notifications = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("dashboard: summary: %w", err)
	}
	if out.Notifications == nil {
		out.Notifications = []notify.Notification{}
	}
	return out, nil
}
