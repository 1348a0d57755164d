package provider

import (
	"sync"

	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

// Factory 建立提供者；缺少金鑰時應回傳 *common.ConfigurationError
type Factory func() (Provider, error)

// Lazy 延遲建立提供者，成功後整個程序共用同一個實例。
// 建立失敗不會被記住，下一次呼叫會重試。
type Lazy struct {
	factory Factory

	mu       sync.Mutex
	provider Provider
}

// NewLazy 創建延遲初始化的提供者握柄
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get 取得提供者，必要時建立
func (l *Lazy) Get() (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		return l.provider, nil
	}
	if l.factory == nil {
		return nil, common.NewConfigurationError("reasoning provider")
	}

	p, err := l.factory()
	if err != nil {
		return nil, err
	}
	l.provider = p

	common.LogInfo("Reasoning provider initialized",
		zap.String("model", p.GetModel()),
		zap.Duration("timeout", p.GetTimeout()),
	)
	return p, nil
}

// Initialized 回報提供者是否已建立
func (l *Lazy) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.provider != nil
}

// Close 關閉已建立的提供者
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider == nil {
		return nil
	}
	err := l.provider.Close()
	l.provider = nil
	return err
}
