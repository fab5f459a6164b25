package internal

import (
	"fmt"
	"os"
	"strings"
)

const Version = "0.3.0"

// PrintUsage 向 stderr 输出 lexrag 的用法与可用子命令列表。
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `lexrag - Retrieval-augmented legal assistant

Version: %s

USAGE:
    lexrag [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.lexrag/config/lexrag.yaml)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    index
        Embed legal chunk files and persist the vector index

    search
        Find the statute chunks most similar to a query

    chat
        Ask questions in one of five answer modes (interactive or one-shot)

    stats
        Show corpus statistics for the indexed acts

    topics
        Browse acts by legal category and common title words

    serve
        Run the HTTP API (search, chat, sessions, stats, metrics)

    mcp
        Run MCP stdio server (tools: lexrag_search, lexrag_chat, lexrag_status)

EXAMPLES:
    # Build the index from chunk files
    lexrag index -chunks "data/**/*.json"

    # Search acts in force between 1900 and 1950
    lexrag search "land ownership" -year-from 1900 -year-to 1950 -repealed false

    # One-shot question in lawyer mode
    lexrag chat -mode lawyer -q "What are the grounds for bail?"

    # Interactive chat
    lexrag chat

    # Criminal law acts
    lexrag topics -category criminal

    # HTTP API
    lexrag serve -addr :8080

For detailed help on each command, use:
    lexrag <command> -help
`, Version)
}

// StringList is a flag.Value that collects multiple strings
type StringList []string

// String 返回 StringList 的逗号连接形式。
func (s *StringList) String() string {
	return strings.Join(*s, ",")
}

// Set 将单个字符串追加到 StringList，允许多次 -flag 传入。
// 含逗号的值会被拆分。
func (s *StringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}
