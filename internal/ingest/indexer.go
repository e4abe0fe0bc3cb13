package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/catalog"
	"github.com/fyrsmithlabs/catalogd/internal/embeddings"
	"github.com/fyrsmithlabs/catalogd/internal/objectstore"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

// Payload defaults for fields the upload left empty. Suggestions always
// render something, so the gaps are filled at index time.
const (
	DefaultDescription = "No description"
	DefaultBrand       = "Unknown"
	DefaultCategory    = "Uncategorized"
)

// ImageResolver resolves a source image URL into a hosted thumbnail URL.
type ImageResolver interface {
	Resolve(ctx context.Context, sourceURL, id string) (string, error)
}

// Config holds indexing pipeline settings.
type Config struct {
	BatchSize    int
	ImageTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 16
	}
	if c.ImageTimeout == 0 {
		c.ImageTimeout = 5 * time.Second
	}
}

// Indexer runs the upload pipeline: decode, map, validate, resolve images,
// embed and upsert, reporting progress through the job store.
type Indexer struct {
	config   Config
	store    vectorstore.Store
	embedder embeddings.Provider
	images   ImageResolver
	reports  objectstore.Uploader
	jobs     *Jobs
	logger   *zap.Logger
	metrics  *Metrics
}

// NewIndexer creates an Indexer.
func NewIndexer(cfg Config, store vectorstore.Store, embedder embeddings.Provider, images ImageResolver, reports objectstore.Uploader, jobs *Jobs, logger *zap.Logger) *Indexer {
	cfg.applyDefaults()
	return &Indexer{
		config:   cfg,
		store:    store,
		embedder: embedder,
		images:   images,
		reports:  reports,
		jobs:     jobs,
		logger:   logger,
		metrics:  NewMetrics(logger),
	}
}

// rowError is one skipped row in the error report. record carries the raw
// mapped row so operators can fix the feed without re-opening the file.
type rowError struct {
	line   int
	title  string
	reason string
	record string
}

// Run processes one uploaded catalog file for a tenant. Terminal job state
// is always written, so callers only need to log the returned error.
func (ix *Indexer) Run(ctx context.Context, jobID, clientID, collection string, file io.Reader) error {
	start := time.Now()
	logger := ix.logger.With(zap.String("job_id", jobID), zap.String("client_id", clientID))

	ix.jobs.Update(ctx, jobID, "decoding", 5, "decoding csv")
	headers, rows, err := catalog.DecodeCSV(file)
	if err != nil {
		ix.jobs.Fail(ctx, jobID, err.Error())
		ix.metrics.RecordJob(ctx, StatusFailed, time.Since(start), 0, 0)
		return fmt.Errorf("decoding upload: %w", err)
	}

	mapping, err := catalog.MapColumns(headers)
	if err != nil {
		ix.jobs.Fail(ctx, jobID, err.Error())
		ix.metrics.RecordJob(ctx, StatusFailed, time.Since(start), 0, 0)
		return fmt.Errorf("mapping columns: %w", err)
	}

	ix.jobs.Update(ctx, jobID, "preparing", 10, fmt.Sprintf("%d rows, schema mapped", len(rows)))

	if err := ix.store.EnsureCollection(ctx, collection, uint64(ix.embedder.Dimension())); err != nil {
		ix.jobs.Fail(ctx, jobID, "vector index unavailable")
		ix.metrics.RecordJob(ctx, StatusFailed, time.Since(start), 0, 0)
		return fmt.Errorf("ensuring collection: %w", err)
	}
	if err := ix.store.EnsurePayloadIndexes(ctx, collection, vectorstore.ProductIndexes); err != nil {
		logger.Warn("payload indexes incomplete", zap.Error(err))
	}

	var (
		indexed int
		errs    []rowError
	)

	for off := 0; off < len(rows); off += ix.config.BatchSize {
		if ix.jobs.CancelRequested(ctx, jobID) {
			ix.jobs.MarkCancelled(ctx, jobID, indexed)
			ix.metrics.RecordJob(ctx, StatusCancelled, time.Since(start), indexed, 0)
			logger.Info("upload cancelled", zap.Int("indexed", indexed))
			return nil
		}

		end := off + ix.config.BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, batchErrs := ix.indexBatch(ctx, clientID, collection, rows[off:end], mapping, off)
		indexed += n
		errs = append(errs, batchErrs...)

		progress := 10 + 85*end/len(rows)
		ix.jobs.Update(ctx, jobID, "indexing", progress,
			fmt.Sprintf("batch %d-%d: %d indexed, %d skipped", off+1, end, n, len(batchErrs)))
	}

	reportURL := ""
	if len(errs) > 0 {
		reportURL, err = ix.writeReport(ctx, jobID, errs)
		if err != nil {
			logger.Warn("writing skip report failed", zap.Error(err))
		}
	}

	ix.jobs.Finish(ctx, jobID, indexed, len(errs), reportURL)
	ix.metrics.RecordJob(ctx, StatusDone, time.Since(start), indexed, len(errs))
	logger.Info("upload indexed", zap.Int("indexed", indexed), zap.Int("skipped", len(errs)))
	return nil
}

// indexBatch validates, enriches, embeds and upserts one slice of rows.
// offset is the index of the first row in the full file, used for report
// line numbers.
func (ix *Indexer) indexBatch(ctx context.Context, clientID, collection string, rows []catalog.Row, mapping map[string]string, offset int) (int, []rowError) {
	var (
		errs     []rowError
		products []catalog.Product
		lines    []int
		raws     []string
	)

	for i, row := range rows {
		line := offset + i + 2 // 1-based plus header row
		mapped := catalog.RenameColumns(row, mapping)
		raw := rawRecord(mapped)
		p := catalog.FromRow(mapped)

		ok, reason := catalog.Validate(p)
		if !ok {
			errs = append(errs, rowError{line: line, title: p.Title, reason: reason, record: raw})
			continue
		}
		products = append(products, p)
		lines = append(lines, line)
		raws = append(raws, raw)
	}

	if len(products) == 0 {
		return 0, errs
	}

	points := make([]vectorstore.Point, 0, len(products))
	texts := make([]string, 0, len(products))
	kept := make([]int, 0, len(products))
	keptRaws := make([]string, 0, len(products))

	for i, p := range products {
		pointID := PointID(clientID, p.URL)

		imgCtx, cancel := context.WithTimeout(ctx, ix.config.ImageTimeout)
		hosted, err := ix.images.Resolve(imgCtx, p.Images[0], pointID)
		cancel()
		if err != nil {
			errs = append(errs, rowError{line: lines[i], title: p.Title, reason: "image could not be resolved: " + err.Error(), record: raws[i]})
			continue
		}

		price := catalog.ParsePrice(p.RawPrice)
		points = append(points, vectorstore.Point{
			ID: pointID,
			Payload: map[string]any{
				"uuid":         pointID,
				"client_id":    clientID,
				"title":        p.Title,
				"description":  orDefault(p.Description, DefaultDescription),
				"brand":        orDefault(p.Brand, DefaultBrand),
				"category":     orDefault(p.Category, DefaultCategory),
				"image":        hosted,
				"url":          p.URL,
				"price":        price,
				"priceText":    catalog.PriceText(price),
				"uses":         p.Uses,
				"side_effects": p.SideEffects,
				"composition":  p.Composition,
			},
		})
		texts = append(texts, p.SearchText())
		kept = append(kept, lines[i])
		keptRaws = append(keptRaws, raws[i])
	}

	if len(points) == 0 {
		return 0, errs
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) != len(points) {
		for i := range points {
			errs = append(errs, rowError{line: kept[i], title: str(points[i].Payload["title"]), reason: "embedding failed", record: keptRaws[i]})
		}
		return 0, errs
	}
	for i := range points {
		points[i].Vector = vectors[i]
	}

	if err := ix.store.Upsert(ctx, collection, points); err != nil {
		for i := range points {
			errs = append(errs, rowError{line: kept[i], title: str(points[i].Payload["title"]), reason: "index write failed", record: keptRaws[i]})
		}
		return 0, errs
	}

	return len(points), errs
}

// writeReport publishes the skipped rows as a CSV in object storage.
func (ix *Indexer) writeReport(ctx context.Context, jobID string, errs []rowError) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"line", "title", "reason", "record"})
	for _, e := range errs {
		_ = w.Write([]string{strconv.Itoa(e.line), e.title, e.reason, e.record})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return ix.reports.Upload(ctx, "reports/"+jobID+".csv", buf.Bytes(), "text/csv")
}

// PointID derives the deterministic point id for a product, so re-uploads
// of the same catalog overwrite instead of duplicating.
func PointID(clientID, productURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(clientID+"\n"+productURL)).String()
}

// rawRecord serializes a mapped row for the error report.
func rawRecord(row catalog.Row) string {
	raw, err := json.Marshal(row)
	if err != nil {
		return ""
	}
	return string(raw)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
