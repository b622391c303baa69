package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"seppe/internal/importer"
	"seppe/internal/log"
	ports "seppe/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var ErrNoSheets = errors.New("spreadsheet has no sheets")

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	// SheetName overrides the first-sheet lookup when set.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// ClientOptions are appended after the credential options.
	ClientOptions []goption.ClientOption
}

// Client reads the delivery tracking spreadsheet through the Sheets API.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.GridSource = (*Client)(nil)

// New creates a read-only Sheets client from service account credentials.
// Inline JSON wins over a file path. With neither set, the
// GOOGLE_APPLICATION_CREDENTIALS file is used.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	clientOpts, err := credentialOptions(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)

	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetName:     strings.TrimSpace(opts.SheetName),
		logger:        logger,
	}, nil
}

func credentialOptions(ctx context.Context, opts Options, logger *log.Logger) ([]goption.ClientOption, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	case len(opts.ClientOptions) > 0:
		// Caller supplies its own auth (tests, emulators).
		return nil, nil
	default:
		return nil, errors.New("missing service account credentials (set SEPPE_GOOGLE_CREDENTIALS_JSON, SEPPE_GOOGLE_CREDENTIALS_FILE or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, nil
}

// FetchGrid returns the formatted values of the configured sheet, or of the
// first sheet when none is configured.
func (c *Client) FetchGrid(ctx context.Context) (importer.Grid, error) {
	if c.svc == nil {
		return importer.Grid{}, errors.New("sheets service not initialized")
	}

	title := c.sheetName
	if title == "" {
		var err error
		title, err = c.firstSheetTitle(ctx)
		if err != nil {
			return importer.Grid{}, err
		}
	}

	rng := quoteSheet(title)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return importer.Grid{}, fmt.Errorf("read %s: %w", rng, err)
	}

	grid := toGrid(title, resp.Values)
	c.logger.InfoContext(ctx, "Fetched spreadsheet grid",
		log.FieldSheet, title,
		"rows", len(grid.Rows))
	return grid, nil
}

func (c *Client) firstSheetTitle(ctx context.Context) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", ErrNoSheets
	}
	return ss.Sheets[0].Properties.Title, nil
}

// quoteSheet turns a sheet title into an A1 range covering the whole sheet.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
