package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"chat-gateway/domain"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one key rendered on the debug page.
type InspectRow struct {
	Key       string
	Room      string
	Sender    string
	Timestamp string
	Lang      string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves a read-only HTML view over the store, for poking
// at keys while the gateway runs. Never expose this port publicly.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = MessageMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// MessageMapper decodes message rows; anything else falls back to raw size.
func MessageMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:    key,
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	var msg domain.Message
	if err := json.Unmarshal(val, &msg); err != nil || msg.SenderID == "" {
		return row
	}

	row.Room = string(msg.Room)
	row.Sender = msg.SenderName
	row.Timestamp = msg.CreatedAt.Format("15:04:05")
	row.Lang = msg.Lang
	row.Detail = msg.Text
	if row.Detail == "" && msg.MediaRef != "" {
		row.Detail = "[media] " + msg.MediaType
	}
	return row
}
