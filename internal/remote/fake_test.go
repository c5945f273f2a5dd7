package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePostgREST is an in-memory stand-in for the PostgREST endpoints the store uses.
type fakePostgREST struct {
	tables   map[string][]map[string]any
	failNext int // Connections to drop before answering
	requests int
	mu       sync.Mutex
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{tables: map[string][]map[string]any{
		tableRules:        nil,
		tableUploads:      nil,
		tableTransactions: nil,
	}}
}

func newTestStore(t *testing.T) (*SupabaseStore, *fakePostgREST) {
	t.Helper()
	fake := newFakePostgREST()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewSupabaseStore(server.URL, "test-key")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store.retry.InitialDelay = time.Millisecond
	store.retry.MaxDelay = 5 * time.Millisecond
	return store, fake
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if f.failNext > 0 {
		f.failNext--
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
				return
			}
		}
	}

	if r.Header.Get("apikey") != "test-key" {
		writeError(w, http.StatusUnauthorized, "PGRST301", "missing api key")
		return
	}

	table := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	rows, ok := f.tables[table]
	if !ok {
		writeError(w, http.StatusNotFound, "42P01", fmt.Sprintf("relation %q does not exist", table))
		return
	}

	query := r.URL.Query()
	representation := strings.Contains(r.Header.Get("Prefer"), "return=representation")

	switch r.Method {
	case http.MethodGet:
		matched := filterRows(rows, query)
		sortRows(matched, query.Get("order"))
		if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit < len(matched) {
			matched = matched[:limit]
		}
		writeJSON(w, http.StatusOK, matched)

	case http.MethodPost:
		incoming, err := decodeRows(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		for _, row := range incoming {
			if findRow(rows, "id", row["id"]) >= 0 {
				writeError(w, http.StatusConflict, uniqueViolation, "duplicate key value violates unique constraint")
				return
			}
			if table == tableTransactions && findRow(f.tables[tableUploads], "id", row["file_id"]) < 0 {
				writeError(w, http.StatusConflict, "23503", "insert violates foreign key constraint")
				return
			}
		}
		f.tables[table] = append(rows, incoming...)
		f.respond(w, http.StatusCreated, representation, incoming)

	case http.MethodPatch:
		incoming, err := decodeRows(r.Body)
		if err != nil || len(incoming) != 1 {
			writeError(w, http.StatusBadRequest, "PGRST102", "expected one object")
			return
		}
		matched := filterRows(rows, query)
		for _, row := range matched {
			for k, v := range incoming[0] {
				row[k] = v
			}
		}
		f.respond(w, http.StatusOK, representation, matched)

	case http.MethodDelete:
		matched := filterRows(rows, query)
		var kept []map[string]any
		for _, row := range rows {
			if !containsRow(matched, row) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		if table == tableUploads {
			f.cascade(matched)
		}
		f.respond(w, http.StatusOK, representation, matched)

	default:
		writeError(w, http.StatusMethodNotAllowed, "PGRST000", r.Method)
	}
}

func (f *fakePostgREST) respond(w http.ResponseWriter, status int, representation bool, rows []map[string]any) {
	if !representation {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, status, rows)
}

func (f *fakePostgREST) cascade(uploads []map[string]any) {
	var kept []map[string]any
	for _, txn := range f.tables[tableTransactions] {
		if findRow(uploads, "id", txn["file_id"]) < 0 {
			kept = append(kept, txn)
		}
	}
	f.tables[tableTransactions] = kept
}

func (f *fakePostgREST) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *fakePostgREST) dropTable(table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tables, table)
}

func filterRows(rows []map[string]any, query map[string][]string) []map[string]any {
	var out []map[string]any
	for _, row := range rows {
		if rowMatches(row, query) {
			out = append(out, row)
		}
	}
	return out
}

func rowMatches(row map[string]any, query map[string][]string) bool {
	for key, values := range query {
		switch key {
		case "select", "order", "limit", "offset", "columns":
			continue
		}
		for _, v := range values {
			op, operand, _ := strings.Cut(v, ".")
			actual := fmt.Sprint(row[key])
			switch op {
			case "eq":
				if actual != operand {
					return false
				}
			case "neq":
				if actual == operand {
					return false
				}
			}
		}
	}
	return true
}

func sortRows(rows []map[string]any, order string) {
	if order == "" {
		return
	}
	var keys []string
	var desc []bool
	for _, part := range strings.Split(order, ",") {
		fields := strings.Split(part, ".")
		keys = append(keys, fields[0])
		desc = append(desc, len(fields) > 1 && fields[1] == "desc")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, key := range keys {
			c := compareValues(rows[i][key], rows[j][key])
			if c == 0 {
				continue
			}
			if desc[k] {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func decodeRows(body io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		err := json.Unmarshal(data, &rows)
		return rows, err
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func findRow(rows []map[string]any, key string, value any) int {
	for i, row := range rows {
		if fmt.Sprint(row[key]) == fmt.Sprint(value) {
			return i
		}
	}
	return -1
}

func containsRow(rows []map[string]any, row map[string]any) bool {
	for _, r := range rows {
		if fmt.Sprint(r["id"]) == fmt.Sprint(row["id"]) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message, "details": "", "hint": ""})
}
