// Package importer loads the one-time bootstrap contact list from a
// delimited text source.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"contacts_backend/platform/config"
)

// fieldSeparator splits each line into name and phone.
const fieldSeparator = ";"

// Record is one parsed line of the import file. Name may be empty; the
// store applies the sentinel default at contact creation.
type Record struct {
	Name  string
	Phone string
}

// Source fetches and parses the delimited import file. When a URL is
// configured it is fetched over HTTP; otherwise the local file path is read.
type Source struct {
	url    string
	file   string
	client *http.Client
}

// New creates an import source from configuration.
func New(cfg config.ImportConfig) *Source {
	return &Source{
		url:    cfg.GetImportURL(),
		file:   cfg.GetImportFile(),
		client: &http.Client{Timeout: cfg.GetImportTimeout()},
	}
}

// Load retrieves and parses the import source.
func (s *Source) Load(ctx context.Context) ([]Record, error) {
	if s.url != "" {
		return s.fetch(ctx)
	}
	return s.read()
}

func (s *Source) fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch import source: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("import source returned %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}

func (s *Source) read() ([]Record, error) {
	f, err := os.Open(s.file)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}

// Parse reads one record per line, splitting on the field separator into
// name and phone. Fields are trimmed and blank lines are skipped.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, phone, _ := strings.Cut(line, fieldSeparator)
		records = append(records, Record{
			Name:  strings.TrimSpace(name),
			Phone: strings.TrimSpace(phone),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read import source: %w", err)
	}

	return records, nil
}
