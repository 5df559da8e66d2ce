// Command novastore is an interactive shell over a single in-process
// storage engine instance: it exists to poke at tables, rows, and pages
// directly, the way a developer debugging the engine itself would.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tuannm99/novastore/engine"
	"github.com/tuannm99/novastore/internal/config"
	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/storage"
)

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".novastore_history"
	}
	return filepath.Join(home, ".novastore_history")
}

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to a YAML engine config (defaults built in if omitted)")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		oneShotCmd = flag.String("c", "", "run one command and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	eng := engine.New(cfg)

	if strings.TrimSpace(*oneShotCmd) != "" {
		if err := runLine(eng, *oneShotCmd); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "novastore> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     *histPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Println("novastore shell — type \\help for commands")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "\\q" || line == "quit" || line == "exit" {
			return
		}
		if line == "\\help" {
			printHelp()
			continue
		}

		if err := runLine(eng, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  create <table> <schema-json>     create a table
  drop <table>                     drop a table
  tables                           list table names
  schema <table>                   print a table's schema
  insert <table> <values-json>     insert a row, prints its row id
  get <table> <row-id>             read a row (row id: page:slot)
  delete <table> <row-id>          delete a row
  scan <table>                     print every live row
  config                           print the engine configuration
  flush                            flush every dirty page
  flushpage <page-id>              flush a single page
  snapshot bufferpool|disk         print snapshot byte length
  snapshot page <page-id>
  snapshot table <table>
  \q | quit | exit                 quit
  \help                            this text
`)
}

// runLine splits a command line into its verb and the rest, and
// dispatches. Arguments that are themselves JSON (schema/values) are
// passed through as the untouched remainder of the line.
func runLine(eng *engine.StorageEngine, line string) error {
	verb, rest := splitFirst(line)

	switch verb {
	case "create":
		table, schemaJSON := splitFirst(rest)
		schema, err := engine.ParseSchema([]byte(schemaJSON))
		if err != nil {
			return err
		}
		return eng.CreateTable(table, schema)

	case "drop":
		ok, err := eng.DropTable(strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("table not found")
		}
		return nil

	case "tables":
		for _, name := range eng.ListTables() {
			fmt.Println(name)
		}
		return nil

	case "schema":
		schema, err := eng.TableSchema(strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		doc, err := engine.SchemaToJSON(schema)
		if err != nil {
			return err
		}
		fmt.Println(string(doc))
		return nil

	case "insert":
		table, valuesJSON := splitFirst(rest)
		schema, err := eng.TableSchema(table)
		if err != nil {
			return err
		}
		values, err := engine.ParseValues([]byte(valuesJSON), schema)
		if err != nil {
			return err
		}
		id, err := eng.Insert(table, values)
		if err != nil {
			return err
		}
		fmt.Println(engine.FormatRowID(id))
		return nil

	case "get":
		table, rowIDStr := splitFirst(rest)
		id, err := engine.ParseRowID(strings.TrimSpace(rowIDStr))
		if err != nil {
			return err
		}
		values, err := eng.Get(table, id)
		if err != nil {
			return err
		}
		doc, err := engine.ValuesToJSON(values)
		if err != nil {
			return err
		}
		fmt.Println(string(doc))
		return nil

	case "delete":
		table, rowIDStr := splitFirst(rest)
		id, err := engine.ParseRowID(strings.TrimSpace(rowIDStr))
		if err != nil {
			return err
		}
		ok, err := eng.Delete(table, id)
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil

	case "scan":
		table := strings.TrimSpace(rest)
		return eng.Scan(table, func(id storage.RowID, values []record.Value) error {
			doc, err := engine.ValuesToJSON(values)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", engine.FormatRowID(id), doc)
			return nil
		})

	case "config":
		doc, err := eng.Config()
		if err != nil {
			return err
		}
		fmt.Println(string(doc))
		return nil

	case "flush":
		eng.FlushAll()
		return nil

	case "flushpage":
		id, err := parsePageID(rest)
		if err != nil {
			return err
		}
		if !eng.FlushPage(id) {
			return fmt.Errorf("page not pooled")
		}
		return nil

	case "snapshot":
		return runSnapshot(eng, rest)

	default:
		return fmt.Errorf("unknown command %q (try \\help)", verb)
	}
}

func runSnapshot(eng *engine.StorageEngine, rest string) error {
	kind, arg := splitFirst(rest)
	switch kind {
	case "bufferpool":
		fmt.Printf("%d bytes\n", len(eng.SnapshotBufferPool()))
		return nil
	case "disk":
		fmt.Printf("%d bytes\n", len(eng.SnapshotDisk()))
		return nil
	case "page":
		id, err := parsePageID(arg)
		if err != nil {
			return err
		}
		buf, err := eng.SnapshotPage(id)
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes\n", len(buf))
		return nil
	case "table":
		buf, err := eng.SnapshotTable(strings.TrimSpace(arg))
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes\n", len(buf))
		return nil
	default:
		return fmt.Errorf("unknown snapshot kind %q", kind)
	}
}

func parsePageID(s string) (storage.PageID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid page id %q: %w", s, err)
	}
	return storage.PageID(n), nil
}

// splitFirst splits line on its first run of whitespace, returning the
// first token and the (untrimmed-on-the-right) remainder.
func splitFirst(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}
