package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KevoDB/blockstore/pkg/blockstore"
	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem(".free"),
	readline.PcItem(".check"),
	readline.PcItem(".layout"),
	readline.PcItem("INSERT"),
	readline.PcItem("GET"),
	readline.PcItem("REMOVE"),
	readline.PcItem("PUSH"),
	readline.PcItem("PULL"),
	readline.PcItem("VERIFY"),
)

const helpText = `
blockstore - A fixed-block in-memory keyed store.

Commands:
  .help                   - Show this help message
  .exit                   - Exit the program
  .stats                  - Show operation counters and arena usage
  .free                   - Show free block offsets in reuse order
  .check                  - Validate arena, free list and index
  .layout key             - Show the block layout of a key

  INSERT key value        - Store value under key (value may contain spaces)
  GET key                 - Retrieve the value of key
  REMOVE key              - Remove key and free its blocks
  PUSH key file           - Stream the contents of file into key
  PULL key file           - Stream the value of key into file
  VERIFY key              - Check the value of key against its checksum
`

// shell executes one command line at a time against a store.
type shell struct {
	store  *blockstore.Locked
	tel    telemetry.Telemetry
	logger log.Logger
	out    io.Writer
}

// splitCommand returns the command word, the key and whatever follows the
// single space after the key, untrimmed.
func splitCommand(line string) (cmd, key, rest string) {
	line = strings.TrimLeft(line, " \t")
	cmd, line, _ = strings.Cut(line, " ")
	key, rest, _ = strings.Cut(strings.TrimLeft(line, " "), " ")
	return strings.TrimSpace(cmd), key, rest
}

// execute runs one line and reports whether the shell should keep going.
func (sh *shell) execute(ctx context.Context, line string) bool {
	cmd, key, rest := splitCommand(line)
	if cmd == "" {
		return true
	}

	if strings.HasPrefix(cmd, ".") {
		cmd = strings.ToLower(cmd)
	} else {
		cmd = strings.ToUpper(cmd)
	}

	ctx, span := sh.tel.StartSpan(ctx, "blockstore.shell.command",
		attribute.String(telemetry.AttrComponent, telemetry.ComponentShell),
		attribute.String(telemetry.AttrOperationName, cmd),
	)
	defer span.End()

	start := time.Now()
	err := sh.dispatch(cmd, key, rest)
	telemetry.RecordDuration(ctx, sh.tel, "blockstore.shell.command.duration", start,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentShell),
		attribute.String(telemetry.AttrOperationName, cmd),
	)

	if errors.Is(err, errExit) {
		return false
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fmt.Fprintf(sh.out, "Error: %s\n", err)
	}
	return true
}

var (
	errExit       = errors.New("exit")
	errMissingKey = errors.New("missing key argument")
)

func (sh *shell) dispatch(cmd, key, rest string) error {
	switch cmd {
	case ".help":
		fmt.Fprint(sh.out, helpText)

	case ".exit":
		fmt.Fprintln(sh.out, "Goodbye!")
		return errExit

	case ".stats":
		sh.printStats()

	case ".free":
		free := sh.store.FreeBlocks()
		fmt.Fprintf(sh.out, "%d free blocks: %v\n", len(free), free)

	case ".check":
		if err := sh.store.Check(); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "OK")

	case ".layout":
		if key == "" {
			return errMissingKey
		}
		entry, ok := sh.store.Lookup(key)
		if !ok {
			fmt.Fprintln(sh.out, "Key not found")
			return nil
		}
		fmt.Fprintf(sh.out, "length=%d blocks=%v checksum=%016x\n", entry.Length, entry.Blocks, entry.Checksum)

	case "INSERT":
		if key == "" {
			return errMissingKey
		}
		sh.store.Insert(key, []byte(rest))
		fmt.Fprintln(sh.out, "Value stored")

	case "GET":
		if key == "" {
			return errMissingKey
		}
		value, ok := sh.store.Get(key)
		if !ok {
			fmt.Fprintln(sh.out, "Key not found")
			return nil
		}
		fmt.Fprintf(sh.out, "%s\n", value)

	case "REMOVE":
		if key == "" {
			return errMissingKey
		}
		if !sh.store.Remove(key) {
			fmt.Fprintln(sh.out, "Key not found")
			return nil
		}
		fmt.Fprintln(sh.out, "Key removed")

	case "PUSH":
		if key == "" || rest == "" {
			return errors.New("usage: PUSH key file")
		}
		f, err := os.Open(rest)
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := sh.store.Push(key, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Pushed %d bytes\n", n)

	case "PULL":
		if key == "" || rest == "" {
			return errors.New("usage: PULL key file")
		}
		n, err := sh.pullToFile(key, rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Pulled %d bytes\n", n)

	case "VERIFY":
		if key == "" {
			return errMissingKey
		}
		if err := sh.store.Verify(key); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "OK")

	default:
		fmt.Fprintf(sh.out, "Unknown command: %s\n", cmd)
	}

	return nil
}

func (sh *shell) printStats() {
	stats := sh.store.Stats()

	getUint64 := func(key string) uint64 {
		if v, ok := stats[key].(uint64); ok {
			return v
		}
		return 0
	}

	fmt.Fprintln(sh.out, "Operations:")
	fmt.Fprintf(sh.out, "  Inserts: %d\n", getUint64("insert_ops"))
	fmt.Fprintf(sh.out, "  Gets: %d (Hits: %d, Misses: %d)\n",
		getUint64("get_ops"), getUint64("get_hits"), getUint64("get_misses"))
	fmt.Fprintf(sh.out, "  Removes: %d\n", getUint64("remove_ops"))
	fmt.Fprintf(sh.out, "  Pushes: %d, Pulls: %d\n", getUint64("push_ops"), getUint64("pull_ops"))

	if latency, ok := stats["insert_latency"].(map[string]interface{}); ok {
		if avgNs, ok := latency["avg_ns"].(uint64); ok {
			fmt.Fprintf(sh.out, "  Insert avg: %.3f ms\n", float64(avgNs)/1e6)
		}
	}

	fmt.Fprintln(sh.out, "Blocks:")
	fmt.Fprintf(sh.out, "  Reused: %d, Appended: %d\n", getUint64("blocks_reused"), getUint64("blocks_appended"))
	fmt.Fprintf(sh.out, "  Live: %d, Free: %d, Orphaned: %d\n",
		getUint64("arena_live_blocks"), getUint64("arena_free_blocks"), getUint64("arena_orphaned_blocks"))

	fmt.Fprintln(sh.out, "Arena:")
	fmt.Fprintf(sh.out, "  Size: %d bytes\n", getUint64("arena_bytes"))
	fmt.Fprintf(sh.out, "  Keys: %d\n", getUint64("arena_live_keys"))
	fmt.Fprintf(sh.out, "  Bytes written: %d, read: %d\n", getUint64("total_bytes_written"), getUint64("total_bytes_read"))

	if errs, ok := stats["errors"].(map[string]uint64); ok && len(errs) > 0 {
		fmt.Fprintln(sh.out, "Errors:")
		for name, count := range errs {
			fmt.Fprintf(sh.out, "  %s: %d\n", name, count)
		}
	}
}

// run reads commands until .exit, EOF or an interrupt on an empty line.
// pullToFile streams key into a temporary file next to path and renames it
// over path only once the whole value has been written.
func (sh *shell) pullToFile(key, path string) (int64, error) {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return 0, err
	}

	n, err := sh.store.Pull(key, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return 0, err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to rename %s: %w", tempPath, err)
	}
	return n, nil
}

func (sh *shell) run(ctx context.Context, rl *readline.Instance) {
	fmt.Fprintln(sh.out, "Enter .help for usage hints.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.out, "Goodbye!")
				return
			}
			sh.logger.Error("Error reading input: %v", err)
			return
		}

		if !sh.execute(ctx, line) {
			return
		}
	}
}
