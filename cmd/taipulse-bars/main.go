// One-shot tool: gather the TWSE daily snapshot into the bar store, or
// import bars from a CSV export.
//
// Usage:
//
//	taipulse-bars [-config path] [-date YYYY-MM-DD] [-csv file]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"taipulse/internal/config"
	"taipulse/internal/domain"
	"taipulse/internal/marketdata"
	"taipulse/internal/store"
	"taipulse/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	csvPath := flag.String("csv", "", "import bars from this CSV file instead of fetching TWSE")
	dateStr := flag.String("date", "", "trade date override (YYYY-MM-DD) for rows without one")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewTextLogger(os.Stdout, cfg.Logging.Level)
	util.SetDefault(logger)

	// Bars are stamped at UTC midnight of the trade date; the Taipei calendar
	// only decides which date that is.
	calendar := util.NewTradingCalendar()
	now := time.Now().In(calendar.Location())
	day := now
	if !calendar.IsTradingDay(now) {
		day = calendar.PrevTradingDay(now)
	}
	fallbackDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if *dateStr != "" {
		d, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			log.Fatalf("parsing -date: %v", err)
		}
		fallbackDate = d
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var batch []domain.Bar
	if *csvPath != "" {
		batch, err = readBarsCSV(*csvPath, fallbackDate)
		if err != nil {
			log.Fatalf("reading %s: %v", *csvPath, err)
		}
		logger.Info("imported bars from CSV", "file", *csvPath, "bars", len(batch))
	} else {
		client := marketdata.NewClient(logger)
		batch, err = client.DailyAll(ctx, fallbackDate)
		if err != nil {
			log.Fatalf("fetching daily bars: %v", err)
		}

		if quote, err := client.LatestIndex(ctx, now); err != nil {
			logger.Warn("weighted index unavailable", "error", err)
		} else {
			fmt.Printf("TAIEX %.2f (%+.2f, %+.2f%%) on %s\n",
				quote.Index, quote.Change, quote.ChangePct, quote.Date)
		}
	}

	if len(batch) == 0 {
		logger.Info("no bars to store")
		return
	}
	if err := bars.WriteBars(ctx, batch); err != nil {
		log.Fatalf("writing bars: %v", err)
	}
	logger.Info("bars stored", "bars", len(batch), "data_dir", cfg.Storage.DataDir)
}

// readBarsCSV parses a daily bar CSV. The header row names the columns
// (security_id, date, open, high, low, close, volume, turnover in any
// order); rows with an unparsable price are skipped, rows without a date use
// the fallback.
func readBarsCSV(path string, fallbackDate time.Time) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	idCol, ok := cols["security_id"]
	if !ok {
		idCol, ok = cols["stock_id"]
	}
	if !ok {
		return nil, fmt.Errorf("header %v missing security_id", header)
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var bars []domain.Bar
	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id := strings.TrimSpace(record[idCol])
		if id == "" {
			skipped++
			continue
		}

		open, err1 := strconv.ParseFloat(field(record, "open"), 64)
		high, err2 := strconv.ParseFloat(field(record, "high"), 64)
		low, err3 := strconv.ParseFloat(field(record, "low"), 64)
		closing, err4 := strconv.ParseFloat(field(record, "close"), 64)
		volume, err5 := strconv.ParseFloat(field(record, "volume"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			skipped++
			continue
		}

		ts := fallbackDate
		if d, err := time.Parse("2006-01-02", field(record, "date")); err == nil {
			ts = d
		}

		bar := domain.Bar{
			SecurityID: id,
			Timestamp:  ts,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closing,
			Volume:     int64(volume),
		}
		if turnover, err := strconv.ParseFloat(field(record, "turnover"), 64); err == nil {
			bar.Turnover = turnover
		}
		bars = append(bars, bar)
	}

	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d unparsable rows\n", skipped)
	}
	return bars, nil
}
