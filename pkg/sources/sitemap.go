package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/enhancely/enhancely-go/internal/domain"
)

// maxChildSitemaps caps how many sitemaps of an index are followed.
const maxChildSitemaps = 50

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// sitemapFetcher implements Fetcher for XML sitemaps and sitemap indexes.
type sitemapFetcher struct {
	client HTTPClient
}

func NewSitemapFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &sitemapFetcher{client: client}
}

func (f *sitemapFetcher) ID() string { return TypeSitemap }

func (f *sitemapFetcher) Fetch(ctx context.Context, src Source) ([]domain.Page, error) {
	if !strings.EqualFold(src.Type, TypeSitemap) {
		return nil, fmt.Errorf("sitemap fetcher received incompatible source type %q", src.Type)
	}
	if strings.TrimSpace(src.SourceURL) == "" {
		return nil, fmt.Errorf("source %q source_url is empty", src.ID)
	}

	headers := Headers(src)

	raw, err := fetchDocument(ctx, f.client, src.SourceURL, src.ID, headers)
	if err != nil {
		return nil, err
	}

	locs, children, err := parseSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}

	if len(children) > maxChildSitemaps {
		children = children[:maxChildSitemaps]
	}
	for _, child := range children {
		body, err := fetchDocument(ctx, f.client, child, src.ID, headers)
		if err != nil {
			return nil, err
		}
		childLocs, _, err := parseSitemap(body)
		if err != nil {
			return nil, fmt.Errorf("decode child sitemap %s: %w", child, err)
		}
		locs = append(locs, childLocs...)
	}

	pages := buildPages(src.ID, locs)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s sitemap returned no records", src.ID)
	}
	return pages, nil
}

// parseSitemap returns page locations of a <urlset> or child sitemap locations of a <sitemapindex>.
func parseSitemap(data []byte) (pages []string, children []string, err error) {
	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, nil, err
	}

	switch root.XMLName.Local {
	case "urlset":
		var set urlSet
		if err := xml.Unmarshal(data, &set); err != nil {
			return nil, nil, err
		}
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				pages = append(pages, loc)
			}
		}
		return pages, nil, nil
	case "sitemapindex":
		var idx sitemapIndex
		if err := xml.Unmarshal(data, &idx); err != nil {
			return nil, nil, err
		}
		for _, s := range idx.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return nil, children, nil
	default:
		return nil, nil, fmt.Errorf("unexpected sitemap root element %q", root.XMLName.Local)
	}
}
