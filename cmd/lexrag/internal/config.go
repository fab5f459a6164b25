package internal

import (
	"fmt"
	"os"

	"github.com/DreamCats/lexrag/internal/config"
)

// LoadConfig 从指定路径读取并解析 YAML 配置文件。
// 路径为空时使用默认位置 ~/.lexrag/config/lexrag.yaml。
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample 向 stderr 打印一份完整的 YAML 配置示例。
func PrintConfigExample() {
	configPath, err := config.DefaultPath()
	if err != nil {
		configPath = "~/.lexrag/config/lexrag.yaml"
	}

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "gemini" | "openai"
  provider: gemini
  api_key: ${GOOGLE_API_KEY}
  model: text-embedding-004
  batch_size: 32

# Answer generation (defaults to the embedding provider and key)
generation:
  provider: gemini
  model: gemini-1.5-flash
  temperature: 0.2

# Persisted index and chunk files
index:
  dir: ~/.lexrag/data/vectorstore
  chunks: data/*.json

search:
  default_top_k: 5
  max_top_k: 20
  overfetch_factor: 2

chat:
  history_window: 10
  default_mode: general
  context_chars: 500

server:
  addr: ":8080"
  metrics_path: /metrics

# For OpenAI (or any OpenAI-compatible endpoint), use:
# embedding:
#   provider: openai
#   api_key: ${OPENAI_API_KEY}
#   model: text-embedding-3-small

Usage:
  1. Create the config file (keys may also live in a .env file)
  2. Run: lexrag index -chunks "data/**/*.json"
  3. Ask: lexrag chat -q "What is the punishment for theft?"
`, configPath)
}
