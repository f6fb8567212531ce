package testsupport

import (
	"context"
	"strings"
	"sync"

	"creativeflow/internal/services"
)

// FakeTable is an in-memory sheets.Table keyed by spreadsheet and tab.
type FakeTable struct {
	mu     sync.Mutex
	sheets map[string]map[string][][]string
	order  map[string][]string

	ReadErr   error
	AppendErr error
	ListErr   error
	Appends   int
}

// NewFakeTable returns an empty table.
func NewFakeTable() *FakeTable {
	return &FakeTable{
		sheets: make(map[string]map[string][][]string),
		order:  make(map[string][]string),
	}
}

// SetRows replaces the contents of a tab, creating the spreadsheet and tab
// as needed. Pass nil rows to create an empty tab.
func (f *FakeTable) SetRows(spreadsheetID, tab string, rows [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(spreadsheetID, tab)
	f.sheets[spreadsheetID][tab] = copyRows(rows)
}

// Rows returns a copy of a tab's contents.
func (f *FakeTable) Rows(spreadsheetID, tab string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRows(f.sheets[spreadsheetID][tab])
}

func (f *FakeTable) ReadRows(_ context.Context, spreadsheetID, tab string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	_, rows, ok := f.lookup(spreadsheetID, tab)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "sheets", "read rows", tab, nil)
	}
	return copyRows(rows), nil
}

func (f *FakeTable) AppendRows(_ context.Context, spreadsheetID, tab string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	name, existing, ok := f.lookup(spreadsheetID, tab)
	if !ok {
		return services.Wrap(services.ErrNotFound, "sheets", "append rows", tab, nil)
	}
	f.sheets[spreadsheetID][name] = append(existing, copyRows(rows)...)
	f.Appends++
	return nil
}

func (f *FakeTable) ListTabs(_ context.Context, spreadsheetID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if _, ok := f.sheets[spreadsheetID]; !ok {
		return nil, services.Wrap(services.ErrNotFound, "sheets", "list tabs", spreadsheetID, nil)
	}
	return append([]string(nil), f.order[spreadsheetID]...), nil
}

func (f *FakeTable) EnsureTab(_ context.Context, spreadsheetID, tab string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	if _, ok := f.sheets[spreadsheetID]; !ok {
		return services.Wrap(services.ErrNotFound, "sheets", "add tab", spreadsheetID, nil)
	}
	if _, _, ok := f.lookup(spreadsheetID, tab); !ok {
		f.ensure(spreadsheetID, tab)
	}
	return nil
}

func (f *FakeTable) ensure(spreadsheetID, tab string) {
	if _, ok := f.sheets[spreadsheetID]; !ok {
		f.sheets[spreadsheetID] = make(map[string][][]string)
	}
	if _, ok := f.sheets[spreadsheetID][tab]; !ok {
		f.sheets[spreadsheetID][tab] = nil
		f.order[spreadsheetID] = append(f.order[spreadsheetID], tab)
	}
}

func (f *FakeTable) lookup(spreadsheetID, tab string) (string, [][]string, bool) {
	tabs, ok := f.sheets[spreadsheetID]
	if !ok {
		return "", nil, false
	}
	for _, name := range f.order[spreadsheetID] {
		if strings.EqualFold(name, tab) {
			return name, tabs[name], true
		}
	}
	return "", nil, false
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
