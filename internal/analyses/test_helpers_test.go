package analyses

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compliance-backend/internal/extract"
	"compliance-backend/internal/extract/pdftest"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/obligations"
	"compliance-backend/internal/retry"
	"compliance-backend/internal/segment"
)

const oneObligationJSON = `[{"summary":"Encrypt customer data","department":"IT","risk_score":"High","remediation_steps":"Enable AES-256","xai_rationale":"Data shall be encrypted."}]`

// stubLLM answers every call with the same reply and counts calls.
type stubLLM struct {
	reply   string
	err     error
	noKey   bool
	delay   time.Duration
	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
}

func (s *stubLLM) GenerateObligations(ctx context.Context, input llm.ExtractInput) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.prompts = append(s.prompts, input.ChunkText)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.reply, s.err
}

func (s *stubLLM) HasCredentials() bool { return !s.noKey }

func noWaitPolicy() retry.Policy {
	p := retry.Default()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func newTestService(t *testing.T, client llm.Client, store Store) *Service {
	t.Helper()
	n := 0
	var mu sync.Mutex
	return &Service{
		Store:     store,
		LLM:       client,
		Extractor: obligations.NewExtractor(client, noWaitPolicy()),
		Segmenter: segment.New(segment.DefaultMaxChars, segment.DefaultOverlapChars),
		Pages: func(ctx context.Context, path string) ([]extract.Page, error) {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return []extract.Page{{Number: 1, Text: string(raw)}}, nil
		},
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("upload-%d", n)
		},
	}
}

// writeDoc writes content to a temp file and returns its path.
func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

// writePDF writes a real PDF with one page per text.
func writePDF(t *testing.T, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, pdftest.Build(pages...), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}
