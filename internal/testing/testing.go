// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"

	"github.com/xdjs/artist-bio-gen-batch/internal/openai"
)

// MockClient is a test double for the batch manager's remote client.
// Calls are recorded; errors and canned responses are injected per method.
type MockClient struct {
	File      *openai.File
	Batch     *openai.Batch
	Batches   *openai.BatchList
	Content   []byte
	UploadErr error
	CreateErr error
	FetchErr  error
	CancelErr error
	ListErr   error
	DownErr   error

	UploadedName  string
	UploadedBytes []byte
	FetchCalls    int
	FetchSeq      []*openai.Batch // consumed before Batch when non-empty
}

func (m *MockClient) UploadFile(ctx context.Context, filename string, r io.Reader) (*openai.File, error) {
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	m.UploadedName = filename
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.UploadedBytes = data
	return m.File, nil
}

func (m *MockClient) CreateBatch(ctx context.Context, req openai.BatchRequest) (*openai.Batch, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Batch, nil
}

func (m *MockClient) RetrieveBatch(ctx context.Context, batchID string) (*openai.Batch, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.FetchCalls++
	if len(m.FetchSeq) > 0 {
		b := m.FetchSeq[0]
		m.FetchSeq = m.FetchSeq[1:]
		return b, nil
	}
	return m.Batch, nil
}

func (m *MockClient) CancelBatch(ctx context.Context, batchID string) (*openai.Batch, error) {
	if m.CancelErr != nil {
		return nil, m.CancelErr
	}
	return m.Batch, nil
}

func (m *MockClient) ListBatches(ctx context.Context, limit int) (*openai.BatchList, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Batches, nil
}

func (m *MockClient) FileContent(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	if m.DownErr != nil {
		return 0, m.DownErr
	}
	n, err := w.Write(m.Content)
	return int64(n), err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	MaxWrites int
	written   int
	Target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.MaxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.Target.Write(p)
}
