package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"creativeflow/internal/services"
)

const defaultTimeout = 30 * time.Second

// Table is the row-level view of a spreadsheet used by the pipeline.
type Table interface {
	ReadRows(ctx context.Context, spreadsheetID, tab string) ([][]string, error)
	AppendRows(ctx context.Context, spreadsheetID, tab string, rows [][]string) error
	ListTabs(ctx context.Context, spreadsheetID string) ([]string, error)
	EnsureTab(ctx context.Context, spreadsheetID, tab string) error
}

// Config describes how to reach the Sheets API.
type Config struct {
	CredentialsFile string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	BaseURL         string
	Timeout         time.Duration
}

func (c Config) hasRefreshToken() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Client implements Table on top of the generated Sheets service.
type Client struct {
	svc     *sheetsapi.Service
	timeout time.Duration
}

// New authenticates and builds a Sheets client. httpClient may be nil; when
// set it is used as the transport and no credentials are attached.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (*Client, error) {
	opts, err := clientOptions(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sheets", "new service", "", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{svc: svc, timeout: timeout}, nil
}

func clientOptions(ctx context.Context, cfg Config, httpClient *http.Client) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithEndpoint(base))
	}
	if httpClient != nil {
		return append(opts, option.WithHTTPClient(httpClient)), nil
	}

	switch {
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sheets", "read credentials", cfg.CredentialsFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sheets", "parse credentials", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.hasRefreshToken():
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheetsapi.SpreadsheetsScope},
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
		opts = append(opts, option.WithTokenSource(conf.TokenSource(ctx, token)))
	case strings.TrimSpace(cfg.BaseURL) != "":
		opts = append(opts, option.WithoutAuthentication())
	default:
		return nil, services.Wrap(services.ErrConfiguration, "sheets", "credentials",
			"set sheets.credentials_file or sheets.client_id/client_secret/refresh_token", nil)
	}
	return opts, nil
}

// ReadRows returns every populated row of tab as formatted strings.
func (c *Client) ReadRows(ctx context.Context, spreadsheetID, tab string) ([][]string, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, QuoteTab(tab)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("read rows", tab, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRows appends rows after the last populated row of tab.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, tab string, rows [][]string) error {
	if err := requireID(spreadsheetID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, QuoteTab(tab)+"!A1", &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify("append rows", tab, err)
	}
	return nil
}

// ListTabs returns the sheet titles of a spreadsheet in display order.
func (c *Client) ListTabs(ctx context.Context, spreadsheetID string) ([]string, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("list tabs", "", err)
	}
	tabs := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet == nil || sheet.Properties == nil {
			continue
		}
		tabs = append(tabs, sheet.Properties.Title)
	}
	return tabs, nil
}

// EnsureTab adds a sheet titled tab unless one already exists.
func (c *Client) EnsureTab(ctx context.Context, spreadsheetID, tab string) error {
	tabs, err := c.ListTabs(ctx, spreadsheetID)
	if err != nil {
		return err
	}
	tab = strings.TrimSpace(tab)
	for _, existing := range tabs {
		if strings.EqualFold(existing, tab) {
			return nil
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("add tab", tab, err)
	}
	return nil
}

// QuoteTab renders a tab title as an A1 sheet reference.
func QuoteTab(tab string) string {
	return "'" + strings.ReplaceAll(strings.TrimSpace(tab), "'", "''") + "'"
}

func requireID(spreadsheetID string) error {
	if strings.TrimSpace(spreadsheetID) == "" {
		return services.Wrap(services.ErrValidation, "sheets", "", "spreadsheet id required", nil)
	}
	return nil
}

func classify(operation, tab string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "sheets", operation, tab, err)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "unable to parse range"):
			return services.Wrap(services.ErrNotFound, "sheets", operation, "tab "+tab+" does not exist", err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "sheets", operation, tab, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "sheets", operation, tab, err)
	}
	return services.Wrap(services.ErrExternalTool, "sheets", operation, tab, err)
}
