// Command probe captures raw upstream payloads for inspection. It is a
// development aid: point it at a department or item and it dumps the
// pretty-printed response, optionally saving it to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/pretty"
	"github.com/wingsum93/dropit-fetcher/internal/ratelimit"
	"github.com/wingsum93/dropit-fetcher/internal/source/freshop"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "dropit-probe",
	})
	logger.SetDefaultLogger(appLogger)

	deptID := flag.Int("dept", 0, "Dump the first listing page of this department")
	itemID := flag.Int64("item", 0, "Dump the detail payload of this item")
	save := flag.Bool("save", false, "Also store a fetched item payload as a snapshot row")
	snapshot := flag.Int64("snapshot", 0, "Print the stored snapshot of this product")
	outDir := flag.String("out", os.Getenv("TEMP_FOLDER"), "Directory to save payloads into")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	if *snapshot > 0 {
		printSnapshot(ctx, cfg, appLogger, *snapshot)
		return
	}

	transport, err := ratelimit.NewTransport(ratelimit.DefaultConfig(), http.DefaultTransport)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build transport")
	}
	client := freshop.NewClient(&cfg.Grocery, transport, appLogger)

	var (
		raw  []byte
		name string
	)
	switch {
	case *itemID > 0:
		raw, err = client.Raw(ctx, fmt.Sprintf("/products/%d", *itemID), nil)
		name = fmt.Sprintf("item_%d.json", *itemID)
	case *deptID > 0:
		raw, err = client.Raw(ctx, "/products", map[string]string{
			"department_id": strconv.Itoa(*deptID),
			"store_id":      cfg.Grocery.StoreID,
			"token":         cfg.Grocery.Token,
			"render_id":     cfg.Grocery.RenderID,
			"limit":         strconv.Itoa(cfg.Grocery.PageSize),
		})
		name = fmt.Sprintf("department_%d.json", *deptID)
	default:
		raw, err = client.Raw(ctx, "/departments", map[string]string{
			"store_id": cfg.Grocery.StoreID,
			"token":    cfg.Grocery.Token,
		})
		name = "departments.json"
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Probe request failed")
	}

	formatted, err := pretty.JSON(raw)
	if err != nil {
		appLogger.WithError(err).Fatal("Payload is not valid JSON")
	}
	fmt.Println(formatted)

	if *outDir != "" {
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
			appLogger.WithError(err).Fatal("Failed to save payload")
		}
		appLogger.WithField("path", path).Info("Payload saved")
	}

	if *save && *itemID > 0 {
		saveSnapshot(ctx, cfg, appLogger, *itemID, raw)
	}
}

func saveSnapshot(ctx context.Context, cfg *config.Config, log *logger.Logger, productID int64, raw []byte) {
	store, err := storage.New(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer store.Close()

	snap := &domain.ProductSnapshot{
		SnapshotKey: fmt.Sprintf("product:%d", productID),
		Payload:     domain.JSONPayload(raw),
	}
	if err := store.UpsertSnapshot(ctx, snap); err != nil {
		log.WithError(err).Fatal("Failed to store snapshot")
	}
	log.WithField("snapshot_key", snap.SnapshotKey).Info("Snapshot stored")
}

func printSnapshot(ctx context.Context, cfg *config.Config, log *logger.Logger, productID int64) {
	store, err := storage.New(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer store.Close()

	snap, err := store.FindSnapshotByKey(ctx, fmt.Sprintf("product:%d", productID))
	if err != nil {
		log.WithError(err).Fatal("Snapshot not found")
	}

	formatted, err := pretty.JSON([]byte(snap.Payload))
	if err != nil {
		log.WithError(err).Fatal("Stored payload is not valid JSON")
	}
	fmt.Println(formatted)
}
