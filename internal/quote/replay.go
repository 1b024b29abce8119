package quote

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"KabuScope/internal/model"
	"KabuScope/internal/resample"
)

// ReplayFetcher implements Fetcher from per-symbol CSV files on disk,
// for offline development and deterministic runs. Each file holds daily
// bars as Date,Open,High,Low,Close,Volume; coarser intervals are derived
// by resampling, so a single file serves every granularity.
type ReplayFetcher struct {
	Dir string
}

// NewReplayFetcher creates a fetcher reading <dir>/<symbol>.csv files.
func NewReplayFetcher(dir string) *ReplayFetcher {
	return &ReplayFetcher{Dir: dir}
}

func (f *ReplayFetcher) Name() string { return "replay" }

func (f *ReplayFetcher) FetchBars(_ context.Context, symbol string, period model.Period, interval model.Interval) (model.Series, error) {
	path := filepath.Join(f.Dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		return model.Series{}, &model.FetchError{Symbol: symbol, Err: fmt.Errorf("open replay file: %w", err)}
	}
	defer file.Close()

	bars, err := readBarsCSV(file)
	if err != nil {
		return model.Series{}, &model.FetchError{Symbol: symbol, Err: err}
	}

	daily := model.NewSeries(symbol, model.IntervalDaily, bars)
	daily = trimToPeriod(daily, period)
	out, err := resample.Resample(daily, interval)
	if err != nil {
		return model.Series{}, err
	}
	return out, nil
}

func readBarsCSV(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read replay header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("replay file missing column %q", col)
		}
	}

	var bars []model.Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read replay row: %w", err)
		}
		get := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		ts, err := parseDate(get("date"))
		if err != nil {
			continue // skip malformed rows, mirrors null-bar skipping
		}
		o, err1 := strconv.ParseFloat(get("open"), 64)
		h, err2 := strconv.ParseFloat(get("high"), 64)
		l, err3 := strconv.ParseFloat(get("low"), 64)
		c, err4 := strconv.ParseFloat(get("close"), 64)
		v, err5 := strconv.ParseInt(get("volume"), 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		bars = append(bars, model.Bar{Time: ts, Open: o, High: h, Low: l, Close: c, Volume: v})
	}
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func trimToPeriod(s model.Series, period model.Period) model.Series {
	var lookback time.Duration
	switch period {
	case model.Period1Day:
		lookback = 24 * time.Hour
	case model.Period5Day:
		lookback = 5 * 24 * time.Hour
	case model.Period1Month:
		lookback = 31 * 24 * time.Hour
	case model.Period3Month:
		lookback = 92 * 24 * time.Hour
	case model.Period6Month:
		lookback = 183 * 24 * time.Hour
	case model.Period1Year:
		lookback = 366 * 24 * time.Hour
	case model.Period2Year:
		lookback = 2 * 366 * 24 * time.Hour
	case model.Period5Year:
		lookback = 5 * 366 * 24 * time.Hour
	case model.Period10Year:
		lookback = 10 * 366 * 24 * time.Hour
	default:
		return s // ytd/max/unknown: keep everything
	}
	if len(s.Bars) == 0 {
		return s
	}
	cutoff := s.Bars[len(s.Bars)-1].Time.Add(-lookback)
	i := 0
	for i < len(s.Bars) && s.Bars[i].Time.Before(cutoff) {
		i++
	}
	s.Bars = s.Bars[i:]
	return s
}
