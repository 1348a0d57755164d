package provider

import (
	"context"
	"sync"
	"time"
)

// FakeProvider 測試與離線模式用的提供者，回傳固定內容或錯誤
type FakeProvider struct {
	ResponseText string
	Error        error
	Delay        time.Duration

	mu       sync.Mutex
	requests []*Request
}

// NewFake 創建回傳固定內容的提供者
func NewFake(response string) *FakeProvider {
	return &FakeProvider{ResponseText: response}
}

// Generate 回傳設定好的內容，或在 Delay 期間等待 ctx
func (f *FakeProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Error != nil {
		return nil, f.Error
	}
	return &Response{
		Content: f.ResponseText,
		Model:   f.GetModel(),
		Usage: Usage{
			PromptTokens:     2,
			CompletionTokens: 3,
			TotalTokens:      5,
		},
	}, nil
}

// Requests 回傳收到的請求
func (f *FakeProvider) Requests() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// GetModel 實現 Provider
func (f *FakeProvider) GetModel() string { return "fake" }

// GetTimeout 實現 Provider
func (f *FakeProvider) GetTimeout() time.Duration { return time.Second }

// Close 實現 Provider
func (f *FakeProvider) Close() error { return nil }
