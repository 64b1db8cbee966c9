// Package source resolves a dataset location to a raw transaction table.
//
// Supported locations are local CSV/TSV files, "-" for standard input,
// s3://bucket/key objects, sqlite://path databases and postgres:// DSNs.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/TobiSchelling/BasketMiner/internal/database"
	"github.com/TobiSchelling/BasketMiner/internal/logging"
	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// Kind classifies a dataset location.
type Kind string

const (
	KindFile     Kind = "file"
	KindStdin    Kind = "stdin"
	KindS3       Kind = "s3"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Location is a parsed dataset location.
type Location struct {
	Kind Kind
	Raw  string
	// Path is the file path, SQLite path or object key.
	Path   string
	Bucket string
}

// Parse classifies a location string.
func Parse(raw string) (Location, error) {
	loc := Location{Raw: raw}
	switch {
	case raw == "":
		return loc, fmt.Errorf("empty dataset location")
	case raw == "-":
		loc.Kind = KindStdin
	case strings.HasPrefix(raw, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return loc, fmt.Errorf("s3 location must be s3://bucket/key, got %q", raw)
		}
		loc.Kind, loc.Bucket, loc.Path = KindS3, bucket, key
	case strings.HasPrefix(raw, "sqlite://"):
		loc.Kind, loc.Path = KindSQLite, strings.TrimPrefix(raw, "sqlite://")
		if loc.Path == "" {
			return loc, fmt.Errorf("sqlite location needs a path, got %q", raw)
		}
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		loc.Kind, loc.Path = KindPostgres, raw
	default:
		loc.Kind, loc.Path = KindFile, raw
	}
	return loc, nil
}

// Name is a short display name for the dataset.
func (l Location) Name() string {
	switch l.Kind {
	case KindStdin:
		return "stdin"
	case KindPostgres:
		return "postgres"
	case KindS3:
		return l.Raw
	}
	return filepath.Base(l.Path)
}

// S3Options configures object storage access.
type S3Options struct {
	Region       string
	Endpoint     string
	Profile      string
	UsePathStyle bool
	// Credentials overrides the default credential chain when set.
	Credentials aws.CredentialsProvider
	HTTPClient  *http.Client
}

// Options configures a Reader.
type Options struct {
	// Delimiter separates columns in CSV input; 0 means comma. Files named
	// *.tsv always use tabs.
	Delimiter rune
	// Query selects the transaction rows from SQL datasets.
	Query string
	S3    S3Options
}

// Reader loads datasets.
type Reader struct {
	logger *zap.Logger
	opts   Options
	stdin  io.Reader
}

// NewReader creates a reader. A nil logger discards output.
func NewReader(logger *zap.Logger, opts Options) *Reader {
	logger = logging.OrNop(logger)
	if opts.Query == "" {
		opts.Query = "SELECT * FROM transactions"
	}
	return &Reader{logger: logger, opts: opts, stdin: os.Stdin}
}

// WithStdin replaces the stream read for "-".
func (r *Reader) WithStdin(in io.Reader) *Reader {
	r.stdin = in
	return r
}

// Read loads the table at raw.
func (r *Reader) Read(ctx context.Context, raw string) (transaction.Table, error) {
	loc, err := Parse(raw)
	if err != nil {
		return transaction.Table{}, err
	}
	r.logger.Debug("Reading dataset", zap.String("kind", string(loc.Kind)), zap.String("location", loc.Name()))

	switch loc.Kind {
	case KindStdin:
		return transaction.ReadCSV(r.stdin, transaction.DelimiterFor("", r.opts.Delimiter))
	case KindFile:
		return r.readFile(loc.Path)
	case KindS3:
		return r.readS3(ctx, loc)
	case KindSQLite:
		return r.readSQL(ctx, database.DriverSQLite, loc.Path)
	case KindPostgres:
		return r.readSQL(ctx, database.DriverPostgres, loc.Path)
	}
	return transaction.Table{}, fmt.Errorf("unsupported dataset location %q", raw)
}

func (r *Reader) readFile(path string) (transaction.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return transaction.Table{}, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return transaction.ReadCSV(f, transaction.DelimiterFor(path, r.opts.Delimiter))
}

func (r *Reader) readSQL(ctx context.Context, driver, dsn string) (transaction.Table, error) {
	db, err := database.OpenReader(ctx, driver, dsn)
	if err != nil {
		return transaction.Table{}, err
	}
	defer db.Close()
	return db.ReadTable(ctx, r.opts.Query)
}

// IsDataFile reports whether path names a CSV or TSV file.
func IsDataFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}
