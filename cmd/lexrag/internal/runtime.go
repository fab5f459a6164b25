package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/embedding"
	"github.com/DreamCats/lexrag/internal/generation"
	"github.com/DreamCats/lexrag/internal/index"
	"github.com/DreamCats/lexrag/internal/retrieval"
)

// Runtime 汇集子命令共用的组件：嵌入服务、索引、检索引擎与对话编排器。
type Runtime struct {
	Config    *config.Config
	Embedder  *embedding.Service
	Indexer   *index.Indexer
	Engine    *retrieval.Engine
	Generator generation.Generator
	Chat      *chat.Orchestrator
}

// NewRuntime 按配置创建组件。withGenerator 为 false 时不连接生成模型，
// 适用于 index、search 等无需回答的子命令。
func NewRuntime(ctx context.Context, cfg *config.Config, withGenerator bool, opts ...index.Option) (*Runtime, error) {
	svc, err := embedding.NewService(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}

	opts = append([]index.Option{
		index.WithBatchSize(cfg.Embedding.BatchSize),
		index.WithConcurrency(cfg.Embedding.Concurrency),
	}, opts...)
	ix := index.New(svc, cfg.Index.Dir, opts...)

	rt := &Runtime{
		Config:   cfg,
		Embedder: svc,
		Indexer:  ix,
		Engine:   retrieval.NewEngine(ix, svc, cfg.Search.OverfetchFactor),
	}

	if withGenerator {
		gen, err := generation.New(ctx, &cfg.Generation)
		if err != nil {
			svc.Close()
			return nil, err
		}
		rt.Generator = gen
		rt.Chat = chat.NewOrchestrator(rt.Engine, gen,
			chat.WithHistoryWindow(cfg.Chat.HistoryWindow),
			chat.WithContextChars(cfg.Chat.ContextChars),
		)
	}

	return rt, nil
}

// Close 释放嵌入与生成客户端持有的连接。
func (rt *Runtime) Close() error {
	errs := []error{rt.Embedder.Close()}
	if c, ok := rt.Generator.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Restore 加载已持久化的索引。索引不存在时返回 found=false 且不报错，
// 由调用方决定是提示用户还是以空索引继续。
func (rt *Runtime) Restore() (found bool, err error) {
	snap, found, err := rt.Indexer.Restore()
	if err != nil {
		return false, fmt.Errorf("failed to load index from %s: %w", rt.Indexer.Dir(), err)
	}
	if !found {
		log.Printf("Warning: no index at %s", rt.Indexer.Dir())
		return false, nil
	}
	log.Printf("Loaded %d chunks (%s) from %s", snap.Len(), snap.Model, rt.Indexer.Dir())
	return true, nil
}
