package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const defaultInspectPrefix = "user:"

type InspectRow struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Index     string `json:"index"`
	EntityID  string `json:"entityId"`
	Detail    string `json:"detail"`
}

type RowMapper func(key string, valueSize int64) InspectRow
type StatsProvider func() map[string]any

type InspectPage struct {
	Prefix string         `json:"prefix"`
	Items  []InspectRow   `json:"items"`
	Stats  map[string]any `json:"stats"`
}

// InspectHandler lists the store keys under ?prefix= together with live
// process stats. Values are never returned, only their size.
func InspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.HandlerFunc {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultInspectPrefix
		}
		page := InspectPage{Prefix: prefix, Items: []InspectRow{}, Stats: map[string]any{}}
		if statsProvider != nil {
			page.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				page.Items = append(page.Items, mapper(string(item.Key()), item.ValueSize()))
			}
			return nil
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// DefaultMapper understands keys shaped as namespace:index:entity.
func DefaultMapper(key string, valueSize int64) InspectRow {
	row := InspectRow{
		Key:       key,
		Namespace: "default",
		Index:     "-",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.FormatInt(valueSize, 10) + " bytes",
	}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) == 3 {
		row.Namespace = parts[0]
		row.Index = parts[1]
		row.EntityID = parts[2]
	}
	return row
}
