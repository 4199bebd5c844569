// Package changefeed turns remote change notifications into change.Event values.
package changefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/tallerhub/tallerhub/internal/domain/change"
)

// Default JMESPath expressions for the payload emitted by tallerhub_notify_change.
const (
	DefaultTenantExpr = "tenant_id"
	DefaultTableExpr  = "table"
)

// ErrMalformedPayload is returned for payloads missing a tenant id or table.
var ErrMalformedPayload = errors.New("malformed change payload")

type searcher interface {
	Search(data any) (any, error)
}

// Decoder extracts the tenant id and table from a JSON payload with JMESPath.
type Decoder struct {
	tenant searcher
	table  searcher
}

// NewDecoder compiles the expressions; empty strings select the defaults.
func NewDecoder(tenantExpr, tableExpr string) (*Decoder, error) {
	if strings.TrimSpace(tenantExpr) == "" {
		tenantExpr = DefaultTenantExpr
	}
	if strings.TrimSpace(tableExpr) == "" {
		tableExpr = DefaultTableExpr
	}
	tenant, err := jmespath.Compile(tenantExpr)
	if err != nil {
		return nil, fmt.Errorf("compile tenant expression %q: %w", tenantExpr, err)
	}
	table, err := jmespath.Compile(tableExpr)
	if err != nil {
		return nil, fmt.Errorf("compile table expression %q: %w", tableExpr, err)
	}
	return &Decoder{tenant: tenant, table: table}, nil
}

// Decode parses payload and returns the event it describes.
func (d *Decoder) Decode(payload []byte) (change.Event, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return change.Event{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	tenant, err := searchString(d.tenant, doc)
	if err != nil {
		return change.Event{}, fmt.Errorf("tenant id: %w", err)
	}
	table, err := searchString(d.table, doc)
	if err != nil {
		return change.Event{}, fmt.Errorf("table: %w", err)
	}
	return change.Event{Table: table, TenantID: tenant}, nil
}

func searchString(expr searcher, doc any) (string, error) {
	v, err := expr.Search(doc)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ErrMalformedPayload
	}
	return s, nil
}
