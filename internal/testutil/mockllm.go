// Package testutil provides deterministic test doubles for the model and
// embedder, plus a Postgres container harness for integration tests.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModelName is the provider-qualified name the mock registers under.
const MockModelName = "mock/test-model"

// ScriptedResponse is one canned model turn. When ToolRequests is non-empty
// the response carries tool-request parts in addition to any text. A non-nil
// Err fails the call instead, simulating a provider failure.
type ScriptedResponse struct {
	Text         string
	ToolRequests []*ai.ToolRequest
	Err          error
}

// ModelCall records what one call to the mock model looked like, so tests
// can assert on conversation growth and tool availability per call.
type ModelCall struct {
	Messages     int  // conversation turns in the request
	ToolsOffered int  // tool schemas offered on this call
	HasToolRole  bool // request contains at least one tool-role message
	System       string
}

// MockLLM plays back a fixed script of responses, one per model call, in
// order. Calls past the end of the script return empty text, which surfaces
// as the agent's fallback answer and usually fails the test loudly.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu     sync.Mutex
	script []ScriptedResponse
	next   int
	calls  []ModelCall
}

// NewMockLLM creates a mock model that will play the given script.
func NewMockLLM(script ...ScriptedResponse) *MockLLM {
	return &MockLLM{script: script}
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount reports how many times the model was invoked.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Register registers the mock as a Genkit model under MockModelName.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, MockModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	var resp ScriptedResponse
	if m.next < len(m.script) {
		resp = m.script[m.next]
		m.next++
	}

	call := ModelCall{
		Messages:     len(req.Messages),
		ToolsOffered: len(req.Tools),
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case ai.RoleTool:
			call.HasToolRole = true
		case ai.RoleSystem:
			call.System = msg.Text()
		}
	}
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}

	if cb != nil && resp.Text != "" {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(resp.Text)},
		})
	}

	var parts []*ai.Part
	for _, tr := range resp.ToolRequests {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	if resp.Text != "" || len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(resp.Text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}

// MockEmbedder produces deterministic embedding vectors. By default a vector
// is derived from the content via SHA-256; explicit mappings give tests
// precise control over similarity.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder with the given vector width.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{vectors: make(map[string][]float32), dim: dim}
}

// SetVector pins an explicit vector for one content string.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// Register registers the mock as a Genkit embedder named "mock/test-embedder".
func (e *MockEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(documentText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	if v, ok := e.vectors[content]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()
	return deterministicVector(content, e.dim)
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector generates a normalized vector from content via
// SHA-256. The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
