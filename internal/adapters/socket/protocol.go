// Package socket implements a JSON-over-Unix-socket protocol for the botica daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/botica/internal/ports"
)

// SocketPath returns the Unix socket path for a given data directory.
// Format: /tmp/botica-{first12hex}.sock
func SocketPath(dataDir string) string {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/botica-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodFind     = "find"
	MethodCatalog  = "catalog"
	MethodHistory  = "history"
	MethodTruncate = "truncate"
	MethodHealth   = "health"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// FindParams is the params for a find request. Keywords are merged with the
// ones derived from the query.
type FindParams struct {
	Query    string   `json:"query"`
	Keywords []string `json:"keywords,omitempty"`
}

// FindResult is the result of a find request.
type FindResult struct {
	Query    string          `json:"query"`
	Keywords []string        `json:"keywords"`
	Source   string          `json:"source"`
	Degraded bool            `json:"degraded,omitempty"`
	Products []ports.Product `json:"products"`
	Count    int             `json:"count"`
	Elapsed  string          `json:"elapsed"`
}

// CatalogParams filters a catalog listing. Empty params list every row.
type CatalogParams struct {
	Name     string `json:"name,omitempty"`     // substring of the normalized name
	Category string `json:"category,omitempty"` // substring of the normalized category
	Code     string `json:"code,omitempty"`     // exact code
}

// CatalogResult is the result of a catalog request.
type CatalogResult struct {
	Products []ports.Product `json:"products"`
	Count    int             `json:"count"`
}

// HistoryResult is the result of a history request, oldest first.
type HistoryResult struct {
	Records []ports.HistoryRecord `json:"records"`
	Count   int                   `json:"count"`
}

// TruncateParams is the params for a truncate request.
type TruncateParams struct {
	Keep int `json:"keep"`
}

// TruncateResult reports how many history records were removed.
type TruncateResult struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status     string `json:"status"`
	Catalog    string `json:"catalog"`
	Products   int    `json:"products"`
	Vocabulary int    `json:"vocabulary"`
	Classifier string `json:"classifier"`
	Policy     string `json:"policy"`
	Uptime     string `json:"uptime,omitempty"`
}

// decodeInto re-marshals a generic JSON value (params or result) into out.
func decodeInto(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// elapsed formats a duration the way results report it.
func elapsed(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
