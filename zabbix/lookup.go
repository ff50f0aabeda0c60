package zabbix

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Lookups holds the three name-to-id tables the sync resolves against.
type Lookups struct {
	Proxies   map[string]string
	Groups    map[string]string
	Templates map[string]string
}

// FetchLookups loads proxies, groups and templates concurrently. All three
// are required before planning; any failure aborts the run.
func FetchLookups(ctx context.Context, c *Client) (Lookups, error) {
	var lookups Lookups

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		proxies, err := c.ProxyIDs(ctx)
		lookups.Proxies = proxies
		return err
	})
	g.Go(func() error {
		groups, err := c.GroupIDs(ctx)
		lookups.Groups = groups
		return err
	})
	g.Go(func() error {
		templates, err := c.TemplateIDs(ctx)
		lookups.Templates = templates
		return err
	})

	if err := g.Wait(); err != nil {
		return Lookups{}, err
	}
	return lookups, nil
}
