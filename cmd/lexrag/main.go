package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
)

// main 启动 lexrag 命令行工具，解析参数并执行对应子命令。
// 若参数无效或缺少子命令则打印用法并退出。
func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	configPath := ""
	args := os.Args[1:]

	validSubcommands := map[string]bool{
		"index":  true,
		"search": true,
		"chat":   true,
		"stats":  true,
		"topics": true,
		"serve":  true,
		"mcp":    true,
	}

	// Find the subcommand (first non-flag argument that is a valid subcommand)
	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	// Global flags (before subcommand)
	globalFlags := args
	if subcommandIndex >= 0 {
		globalFlags = args[:subcommandIndex]
	}
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch flag {
		case "-config", "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case "-h", "-help", "--help":
			internal.PrintUsage()
			os.Exit(0)
		case "-v", "-version", "--version":
			fmt.Printf("lexrag version %s\n", internal.Version)
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		if config.IsConfigNotFound(err) {
			if notFoundErr, ok := err.(*config.ConfigNotFoundError); ok && subcommand == "index" {
				created, createErr := config.WriteDefaultTemplate(notFoundErr.RequestedPath)
				if createErr != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
					fmt.Fprintf(os.Stderr, "Also failed to create default config at %s: %v\n\n", notFoundErr.RequestedPath, createErr)
					internal.PrintConfigExample()
					os.Exit(1)
				}
				if created {
					fmt.Fprintf(os.Stderr, "Created default config at %s\n", notFoundErr.RequestedPath)
				}
				fmt.Fprintln(os.Stderr, "Please update embedding.api_key in the config file and rerun `lexrag index`.")
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			internal.PrintConfigExample()
			os.Exit(1)
		}
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// chat and mcp own the terminal / stdio; keep their logs in the file only
	echo := subcommand != "chat" && subcommand != "mcp"
	if err := internal.SetupLogging(subcommand, echo); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}

	switch subcommand {
	case "index":
		handleIndex(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "chat":
		handleChat(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	case "topics":
		handleTopics(cfg, subcommandArgs)
	case "serve":
		handleServe(cfg, subcommandArgs)
	case "mcp":
		handleMCP(cfg, subcommandArgs)
	}
}
