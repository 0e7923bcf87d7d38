// Inspect dumps the gateway's stores from the command line: message and
// membership keys as a table, or a full-text query against the search index.
package main

import (
	"chat-gateway/domain"
	"chat-gateway/repositories"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	blugePath := flag.String("bluge", "./data/bluge", "Path to search index")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, member:, roommember:)")
	search := flag.String("search", "", "Full-text query instead of a key scan")
	room := flag.String("room", "general", "Room scope for -search")
	flag.Parse()

	if *search != "" {
		if err := runSearch(*blugePath, *room, *search); err != nil {
			log.Fatal(err)
		}
		return
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if err := dumpPrefix(db, *prefix); err != nil {
		log.Fatal(err)
	}
}

func dumpPrefix(db *badger.DB, prefix string) error {
	table := newTable([]string{"Key", "Room", "Sender", "Time", "Lang", "Read", "Detail"})

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil || msg.SenderID == "" {
					// Les clés d'appartenance n'ont pas de valeur décodable
					table.Append([]string{key, "", "", "", "", "", fmt.Sprintf("%d bytes", len(v))})
					return nil
				}

				detail := msg.Text
				if detail == "" && msg.MediaRef != "" {
					detail = "[media] " + msg.MediaType
				}
				table.Append([]string{
					key,
					string(msg.Room),
					msg.SenderName,
					msg.CreatedAt.Format("15:04:05"),
					msg.Lang,
					fmt.Sprintf("%t", msg.Read),
					detail,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func runSearch(blugePath, room, query string) error {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(blugePath))
	if err != nil {
		return fmt.Errorf("index opening failed: %w", err)
	}
	defer writer.Close()

	repo := repositories.NewSearchRepository(writer, slog.Default())
	hits, err := repo.Search(context.Background(), domain.RoomID(room), query, 50)
	if err != nil {
		return err
	}

	table := newTable([]string{"ID", "Sender", "Time", "Text"})
	for _, hit := range hits {
		table.Append([]string{
			hit.ID.String()[:8],
			hit.SenderName,
			hit.CreatedAt.Format("15:04:05"),
			hit.Text,
		})
	}
	table.Render()
	return nil
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// Si corruption détectée, essaie un open en write pour truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
