// Command hydrocond conditions one site's sensor records from the
// observation store and writes the model-ready table as CSV.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/streamside/hydrocond/internal/database"
	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/pipeline"
	"github.com/streamside/hydrocond/internal/pressure"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

func main() {
	region := flag.String("region", "", "site region code, e.g. NC")
	site := flag.String("site", "", "site code, e.g. Eno")
	from := flag.String("from", "", "span start, RFC3339 UTC")
	to := flag.String("to", "", "span end, RFC3339 UTC")
	intervalStr := flag.String("interval", "", "target interval, e.g. \"15 min\" (default: auto)")
	fillgaps := flag.String("fillgaps", "interpolation", "gap fill method")
	maxHours := flag.Float64("maxhours", 3, "longest gap to impute, hours")
	rmFlagged := flag.String("rm-flagged", "", "comma-separated flags to remove, or none")
	estimatePAR := flag.Bool("estimate-par", false, "model light when no sensor exists")
	retrievePressure := flag.Bool("retrieve-pressure", false, "force air pressure retrieval")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	godotenv.Load()
	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *region == "" || *site == "" || *from == "" || *to == "" {
		log.Fatal("-region, -site, -from and -to are required")
	}
	start, err := time.Parse(time.RFC3339, *from)
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	end, err := time.Parse(time.RFC3339, *to)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}

	dsn := os.Getenv("HYDROCOND_DB_DSN")
	if dsn == "" {
		log.Fatal("HYDROCOND_DB_DSN is not set")
	}

	ctx := context.Background()

	client := database.NewClient(dsn, log.GetSugaredLogger())
	if err := client.Connect(); err != nil {
		log.Fatalf("connecting to observation store: %v", err)
	}
	siteMeta, err := client.GetSite(ctx, *region, *site)
	if err != nil {
		log.Fatalf("%v", err)
	}
	obs, err := client.GetObservations(ctx, *region, *site, start, end)
	if err != nil {
		log.Fatalf("%v", err)
	}

	opts := config.DefaultOptions()
	opts.Interval = *intervalStr
	opts.FillGaps = *fillgaps
	opts.MaxHours = *maxHours
	opts.EstimatePAR = *estimatePAR
	opts.RetrievePressure = *retrievePressure
	if *rmFlagged != "" && *rmFlagged != "none" {
		opts.RemoveFlags = splitComma(*rmFlagged)
	}

	primary, secondary := buildRetrievers()
	p := pipeline.New(opts, siteMeta, primary, secondary)

	out, diag, err := p.Run(ctx, obs)
	if err != nil {
		log.Fatalf("conditioning failed: %v", err)
	}
	for _, w := range diag.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if err := writeCSV(os.Stdout, out.SolarTime, out.Columns); err != nil {
		log.Fatalf("writing output: %v", err)
	}
}

func buildRetrievers() (pressure.Retriever, pressure.Retriever) {
	var primary, secondary pressure.Retriever
	if url := os.Getenv("HYDROCOND_PRESSURE_URL"); url != "" {
		primary = pressure.NewHTTPRetriever("primary", url)
		if cachePath := os.Getenv("HYDROCOND_PRESSURE_CACHE"); cachePath != "" {
			cached, err := pressure.NewCache(cachePath, primary)
			if err != nil {
				log.Warnf("pressure cache unavailable: %v", err)
			} else {
				primary = cached
			}
		}
	}
	if url := os.Getenv("HYDROCOND_PRESSURE_FALLBACK_URL"); url != "" {
		secondary = pressure.NewHTTPRetriever("fallback", url)
	}
	return primary, secondary
}

func splitComma(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// writeCSV emits solar_time plus the output columns in a stable order.
func writeCSV(f *os.File, solarTime []time.Time, columns map[string][]float64) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	order := []string{"DO_obs", "DO_sat", "depth", "temp_water", "light", "discharge"}
	header := []string{"solar_time"}
	for _, c := range order {
		if _, ok := columns[c]; ok {
			header = append(header, c)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, ts := range solarTime {
		row := []string{ts.Format("2006-01-02 15:04:05")}
		for _, c := range header[1:] {
			v := columns[c][i]
			if types.IsMissing(v) {
				row = append(row, "NA")
			} else {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
