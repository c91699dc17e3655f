// Package engine wraps a pretrained sentiment classifier: a HuggingFace
// tokenizer plus an ONNX sequence-classification model producing two logits.
//
// The label space is a fixed contract of the pretrained checkpoint
// (distilbert-base-uncased-finetuned-sst-2-english): index 0 is "negative",
// index 1 is "positive". It must never be reordered.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const numLabels = 2

// Config holds everything needed to load the classifier.
type Config struct {
	ModelDir     string // directory containing model.onnx and tokenizer.json
	ModelName    string
	ModelURL     string // optional download source for model.onnx
	TokenizerURL string // optional download source for tokenizer.json
	MaxSeqLen    int    // token positions per sequence, 512 for this model
	PoolSize     int    // ONNX sessions kept for concurrent requests
	OrtLibrary   string // optional path to the onnxruntime shared library
}

// Result is the normalized probability distribution over the two classes.
// The two values always sum to 1 within floating-point tolerance.
type Result struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

// Engine is immutable once loaded and safe for concurrent Predict calls.
// Sessions are pooled on a channel so a forward pass never shares tensors
// with another in-flight request.
type Engine struct {
	tk       *tokenizer.Tokenizer
	sessions chan *session
	cfg      Config
}

type session struct {
	sess          *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	logits        *ort.Tensor[float32]
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime(libPath string) error {
	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// Load constructs the tokenizer, then the classifier sessions. The engine is
// read-only after Load returns.
func Load(cfg Config) (*Engine, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}

	tokenizerPath := filepath.Join(cfg.ModelDir, "tokenizer.json")
	tk, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", tokenizerPath, err)
	}
	// Keep the head of over-long inputs; the tail is dropped.
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: cfg.MaxSeqLen,
		Strategy:  tokenizer.LongestFirst,
	})
	slog.Info("Tokenizer loaded", "path", tokenizerPath, "max_seq_len", cfg.MaxSeqLen)

	if err := initRuntime(cfg.OrtLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	modelPath := filepath.Join(cfg.ModelDir, "model.onnx")
	sessions := make(chan *session, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		s, err := newSession(modelPath, cfg.MaxSeqLen)
		if err != nil {
			return nil, fmt.Errorf("failed to create onnx session %d/%d: %w", i+1, cfg.PoolSize, err)
		}
		sessions <- s
	}
	slog.Info("Model loaded", "path", modelPath, "model_name", cfg.ModelName, "session_pool", cfg.PoolSize)

	return &Engine{
		tk:       tk,
		sessions: sessions,
		cfg:      cfg,
	}, nil
}

func newSession(modelPath string, seqLen int) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, numLabels))
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("allocate logits tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{logits},
		opts,
	)
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	opts.Destroy()

	return &session{
		sess:          sess,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		logits:        logits,
	}, nil
}

// Predict tokenizes text, runs one forward pass and returns the softmax
// distribution over {negative, positive}. It holds no state between calls;
// the same text always yields the same result.
func (e *Engine) Predict(text string) (Result, error) {
	if text == "" {
		return Result{}, fmt.Errorf("empty input text")
	}

	encoding, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return Result{}, fmt.Errorf("tokenization failed: %w", err)
	}

	ids, mask := padInputs(encoding.Ids, encoding.AttentionMask, e.cfg.MaxSeqLen)

	s := <-e.sessions
	defer func() { e.sessions <- s }()

	copy(s.inputIDs.GetData(), ids)
	copy(s.attentionMask.GetData(), mask)

	if err := s.sess.Run(); err != nil {
		return Result{}, fmt.Errorf("forward pass failed: %w", err)
	}

	raw := s.logits.GetData()
	if len(raw) < numLabels {
		return Result{}, fmt.Errorf("unexpected logits length %d", len(raw))
	}
	probs := softmax(raw[:numLabels])

	return Result{Negative: probs[0], Positive: probs[1]}, nil
}

// padInputs widens a token sequence to seqLen positions. Tokens past seqLen
// are dropped (prefix kept); pad positions carry id 0 and mask 0.
func padInputs(ids, mask []int, seqLen int) ([]int64, []int64) {
	outIDs := make([]int64, seqLen)
	outMask := make([]int64, seqLen)
	n := len(ids)
	if n > seqLen {
		n = seqLen
	}
	for i := 0; i < n; i++ {
		outIDs[i] = int64(ids[i])
		if i < len(mask) {
			outMask[i] = int64(mask[i])
		} else {
			outMask[i] = 1
		}
	}
	return outIDs, outMask
}

// softmax converts raw scores into a distribution summing to 1, shifting by
// the max logit for numerical stability.
func softmax(logits []float32) []float64 {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		exp := math.Exp(float64(v - maxVal))
		out[i] = exp
		sum += exp
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
