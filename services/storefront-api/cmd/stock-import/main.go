// Command stock-import loads credentials into the stock table, one unit per
// non-empty input line.
//
//	stock-import -type facebook -file accounts.txt
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"credential-storefront/services/storefront-api/internal/backend"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/repo"
	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/logger"
)

func main() {
	typ := flag.String("type", "", "product type: facebook, proxy, tiktok or email")
	file := flag.String("file", "-", "input file, - for stdin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("stock-import", cfg.Common.LogLevel)

	t := inventory.ProductType(*typ)
	if !t.Valid() {
		log.Fatal().Str("type", *typ).Msg("unknown product type")
	}
	if err := cfg.RequirePostgres(); err != nil {
		log.Fatal().Err(err).Msg("stock import needs postgres")
	}

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal().Err(err).Msg("open input failed")
		}
		defer f.Close()
		in = f
	}
	contents, err := readUnits(in)
	if err != nil {
		log.Fatal().Err(err).Msg("read input failed")
	}
	if len(contents) == 0 {
		log.Warn().Msg("nothing to import")
		return
	}

	db, err := backend.Probe(context.Background(), cfg.Postgres.DSN, cfg.Postgres.ProbeTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("pg connect failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ids, err := (&repo.StockPG{DB: db}).Add(ctx, t, contents)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	log.Info().Str("type", string(t)).Int("units", len(ids)).Msg("stock imported")
}

func readUnits(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
