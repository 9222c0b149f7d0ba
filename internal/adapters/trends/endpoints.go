package trends

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"trendsetl/internal/core/trend"
	perr "trendsetl/internal/platform/errors"
	ptime "trendsetl/internal/platform/time"
)

// InterestOverTime runs explore then the multiline widget and returns the wide frame.
// An upstream answer with no time points is an empty frame, not an error.
func (c *Client) InterestOverTime(ctx context.Context, q trend.Query) (trend.Frame, error) {
	if len(q.Keywords) == 0 {
		return trend.Frame{}, perr.InvalidArgf("trends query without keywords")
	}
	if q.Timeframe == "" {
		q.Timeframe = trend.DefaultTimeframe
	}
	c.warm(ctx)

	w, err := c.explore(ctx, q)
	if err != nil {
		return trend.Frame{}, err
	}
	points, err := c.multiline(ctx, w)
	if err != nil {
		return trend.Frame{}, err
	}
	return toFrame(q.Keywords, points)
}

// explore returns the TIMESERIES widget for q
func (c *Client) explore(ctx context.Context, q trend.Query) (widget, error) {
	items := make([]comparisonItem, len(q.Keywords))
	for i, kw := range q.Keywords {
		items[i] = comparisonItem{Keyword: kw, Time: q.Timeframe, Geo: q.Geo}
	}
	req, err := json.Marshal(exploreRequest{ComparisonItem: items, Category: q.Category, Property: q.Property})
	if err != nil {
		return widget{}, perr.Wrap(err, perr.ErrorCodeUnknown, "encode explore request")
	}

	b, err := c.get(ctx, explorePath, url.Values{"req": {string(req)}}, explorePrefix)
	if err != nil {
		return widget{}, err
	}
	var out exploreResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return widget{}, perr.Wrap(err, perr.ErrorCodeUpstream, "decode explore response")
	}
	for _, w := range out.Widgets {
		if w.ID == timeseriesID {
			if w.Token == "" || len(w.Request) == 0 {
				return widget{}, perr.Upstreamf("explore widget %s without token", timeseriesID)
			}
			return w, nil
		}
	}
	return widget{}, perr.Upstreamf("explore response has no %s widget", timeseriesID)
}

func (c *Client) multiline(ctx context.Context, w widget) ([]timelinePoint, error) {
	b, err := c.get(ctx, multilinePath, url.Values{"req": {string(w.Request)}, "token": {w.Token}}, multilinePrefix)
	if err != nil {
		return nil, err
	}
	var out multilineResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUpstream, "decode multiline response")
	}
	return out.Default.TimelineData, nil
}

// toFrame aligns timeline values with keywords; missing trailing values stay nil
func toFrame(keywords []string, points []timelinePoint) (trend.Frame, error) {
	f := trend.Frame{Keywords: append([]string(nil), keywords...)}
	if len(points) == 0 {
		return f, nil
	}
	f.Rows = make([]trend.FrameRow, 0, len(points))
	for _, p := range points {
		sec, err := strconv.ParseInt(p.Time, 10, 64)
		if err != nil {
			return trend.Frame{}, perr.Wrapf(err, perr.ErrorCodeUpstream, "timeline time %q", p.Time)
		}
		vals := make([]*int, len(keywords))
		for i := range vals {
			if i < len(p.Value) {
				v := p.Value[i]
				vals[i] = &v
			}
		}
		f.Rows = append(f.Rows, trend.FrameRow{Time: ptime.FromUnix(sec), Values: vals, Partial: p.IsPartial})
	}
	return f, nil
}
