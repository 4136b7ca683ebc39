package prompt

import (
	"context"
	"sync"
)

var _ summarizer = &summarizerMock{}

type summarizerMock struct {
	SummarizeFunc func(ctx context.Context, text string) (string, error)

	calls struct {
		Summarize []struct {
			Text string
		}
	}
	lockSummarize sync.RWMutex
}

func (mock *summarizerMock) Summarize(ctx context.Context, text string) (string, error) {
	if mock.SummarizeFunc == nil {
		panic("summarizerMock.SummarizeFunc: method is nil but summarizer.Summarize was just called")
	}
	mock.lockSummarize.Lock()
	mock.calls.Summarize = append(mock.calls.Summarize, struct{ Text string }{text})
	mock.lockSummarize.Unlock()
	return mock.SummarizeFunc(ctx, text)
}

func (mock *summarizerMock) SummarizeCalls() []struct {
	Text string
} {
	mock.lockSummarize.RLock()
	defer mock.lockSummarize.RUnlock()
	return mock.calls.Summarize
}
