package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/progress"
	"github.com/DreamCats/lexrag/internal/prompt"
)

// handleChat implements the chat subcommand
func handleChat(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)

	var topK int
	var modeName, question string
	var showSources bool
	var ff filterFlags

	fs.IntVar(&topK, "k", cfg.Search.DefaultTopK, "Number of documents to ground each answer on")
	fs.StringVar(&modeName, "mode", cfg.Chat.DefaultMode, "Answer mode: general, lawyer, argument, research, simple")
	fs.StringVar(&question, "q", "", "Ask a single question and exit")
	fs.BoolVar(&showSources, "sources", false, "Print the retrieved sources after each answer")
	ff.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag chat [options]

DESCRIPTION:
    Ask questions about the indexed acts. Each answer is grounded on the
    most similar chunks and shaped by the selected mode.

    Commands inside the interactive session:
      /mode [name]   show or switch the answer mode
      /sources       show the sources of the last answer
      /clear         forget the conversation
      /quit          leave

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    lexrag chat
    lexrag chat -mode simple -q "Can my landlord evict me without notice?"
    lexrag chat -mode research -year-from 1947 -year-to 1971
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if topK < 1 || topK > cfg.Search.MaxTopK {
		log.Fatalf("-k must be between 1 and %d", cfg.Search.MaxTopK)
	}
	f, err := ff.build()
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}
	mode, ok := prompt.LookupMode(modeName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown mode %q, using %s\n", modeName, mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := internal.NewRuntime(ctx, cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()
	mustRestore(rt)

	session := chat.NewSession(mode)
	repl := &chatREPL{
		ctx:         ctx,
		rt:          rt,
		session:     session,
		filter:      f,
		topK:        topK,
		showSources: showSources,
	}

	if question != "" {
		repl.ask(question)
		return
	}
	repl.run()
}

type chatREPL struct {
	ctx         context.Context
	rt          *internal.Runtime
	session     *chat.Session
	filter      *filter.Filter
	topK        int
	showSources bool
}

func (r *chatREPL) run() {
	fmt.Printf("⚖️  lexrag %s · mode: %s · filters: %s\n", internal.Version, r.session.Mode().Title(), r.filter)
	fmt.Println("Type your question, /mode to switch modes, /quit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(line) {
				return
			}
			continue
		}
		r.ask(line)
		if r.ctx.Err() != nil {
			return
		}
	}
}

// command runs a slash command and reports whether the session continues
func (r *chatREPL) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit", "/q":
		return false
	case "/clear":
		r.session.Clear()
		fmt.Println("Conversation cleared.")
	case "/sources":
		printSources(r.session.LastSources(), "")
	case "/mode":
		if arg == "" {
			printModes(r.session.Mode())
			return true
		}
		mode, ok := prompt.LookupMode(arg)
		if !ok {
			fmt.Printf("Unknown mode %q.\n", arg)
			printModes(r.session.Mode())
			return true
		}
		r.session.SetMode(mode)
		fmt.Printf("Mode: %s (%s)\n", mode.Title(), mode.Description())
	default:
		fmt.Println("Commands: /mode [name], /sources, /clear, /quit")
	}
	return true
}

func (r *chatREPL) ask(question string) {
	stop := progress.StartSpinner(progress.Enabled(), "Researching")
	reply := r.session.Ask(r.ctx, r.rt.Chat, question, r.filter, r.topK)
	stop()

	fmt.Printf("\n%s\n", strings.TrimSpace(reply.Answer))
	if len(reply.Sources) > 0 {
		fmt.Printf("\n📚 %d source(s)", len(reply.Sources))
		if !r.showSources {
			fmt.Print(" · /sources to list them")
		}
		fmt.Println()
	}
	if r.showSources {
		fmt.Println()
		printSources(reply.Sources, "")
	}
}

func printModes(current prompt.Mode) {
	for _, m := range prompt.Modes() {
		marker := " "
		if m == current {
			marker = "*"
		}
		fmt.Printf(" %s %-9s %s\n", marker, m, m.Description())
	}
}
