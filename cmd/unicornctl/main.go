// Command unicornctl is an interactive REPL for exercising a keymap file
// against the composition engine: flag parsing, a version banner, and a
// driver fed from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"

	"github.com/vic0103520/unicorn/pkg/engine"
	"github.com/vic0103520/unicorn/pkg/keymap"
	"github.com/vic0103520/unicorn/pkg/shell"
)

var version = build.NewVersion(0, 1, 0)

var (
	keymapPath = flag.String("keymap", "", "Path to the keymap JSON file")
	watch      = flag.Bool("watch", false, "Hot-reload the keymap file on change")
	printVer   = flag.Bool("version", false, "Print the version and exit")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: unicornctl -keymap <path> [options]

unicornctl is a REPL for exercising a unicorn keymap file against the
composition engine.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if *printVer {
		fmt.Printf("unicornctl %v\n", version)
		return
	}
	if *keymapPath == "" {
		flag.Usage()
		logw.Exitf(ctx, "Missing required -keymap flag")
	}

	e, err := engine.NewFromPath(*keymapPath)
	if err != nil {
		logw.Exitf(ctx, "Failed to load keymap %v: %v", *keymapPath, err)
	}
	logw.Infof(ctx, "unicornctl %v: loaded keymap %v", version, *keymapPath)

	var reload <-chan *keymap.Keymap
	if *watch {
		reload, err = keymap.Watch(ctx, *keymapPath)
		if err != nil {
			logw.Exitf(ctx, "Failed to watch %v: %v", *keymapPath, err)
		}
	}

	in := make(chan string, 1)
	driver, out := shell.NewDriverWithReload(ctx, e, in, reload)
	go printOutput(out)

	runREPL(ctx, in)
	close(in)
	<-driver.Closed()
}

// printOutput writes each rendered shell line to stdout, tagged the way
// COMPOSE/CANDIDATES/COMMIT/PASSTHROUGH tag visible.
func printOutput(out <-chan string) {
	for line := range out {
		fmt.Println(line)
	}
}

// runREPL reads lines via chzyer/readline, with a history file under the
// user's cache dir, and forwards every non-empty line to in. It returns
// on ^D (io.EOF); ^C (readline.ErrInterrupt) just re-prompts.
func runREPL(ctx context.Context, in chan<- string) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "unicorn> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logw.Exitf(ctx, "Failed to start REPL: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return
			}
			logw.Warningf(ctx, "REPL read error: %v", err)
			return
		}
		if line == "" {
			continue
		}
		in <- line
	}
}

func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".unicornctl_history"
	}
	return dir + "/unicornctl_history"
}
