package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/cloak-ai/cloak/internal/entity"
)

const defaultSeqLen = 256

// Model wraps one ONNX token-classification session. Inference reuses
// preallocated tensors, so calls are serialized with a mutex; the model
// itself is read-only after LoadModel.
type Model struct {
	session   *ort.AdvancedSession
	tokenizer *wordPieceTokenizer
	labels    []string
	seqLen    int
	numLabels int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadModel initializes the ONNX session and tokenizer from a bundle
// directory holding model.onnx (or model.int8.onnx), a label map
// (config.json or label_map.json), and tokenizer assets (vocab.txt).
func LoadModel(bundleDir string, seqLen int) (*Model, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := resolveModelPath(bundleDir)
	if modelPath == "" {
		return nil, fmt.Errorf("no model.onnx found under %s", bundleDir)
	}

	labels, err := loadLabels(bundleDir)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, errors.New("model bundle has no token labels")
	}

	tokenizer, err := loadTokenizer(bundleDir)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(len(labels))))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		seqLen:        seqLen,
		numLabels:     len(labels),
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Available reports whether the session is usable.
func (m *Model) Available() bool {
	return m != nil && m.session != nil && m.tokenizer != nil
}

// Detect runs inference and decodes token labels to candidate spans.
func (m *Model) Detect(ctx context.Context, text string) ([]entity.Span, error) {
	if !m.Available() {
		return nil, errors.New("ner model not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputIDs, attn, offsets := m.tokenizer.encodeWithOffsets(text, m.seqLen)

	m.mu.Lock()
	copy(m.inputIDs.GetData(), inputIDs)
	copy(m.attentionMask.GetData(), attn)
	err := m.session.Run()
	var logits []float32
	if err == nil {
		raw := m.output.GetData()
		logits = make([]float32, len(raw))
		copy(logits, raw)
	}
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	labels, confidences := tokenPredictions(logits, m.labels, len(offsets))
	return spansFromTokenLabels(text, labels, confidences, offsets), nil
}

func resolveModelPath(bundleDir string) string {
	for _, name := range []string{"model.int8.onnx", "model.onnx"} {
		p := filepath.Join(bundleDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadTokenizer(bundleDir string) (*wordPieceTokenizer, error) {
	candidates := []string{
		filepath.Join(bundleDir, "vocab.txt"),
		filepath.Join(bundleDir, "tokenizer", "vocab.txt"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return loadWordPieceTokenizer(path)
		}
	}
	return nil, errors.New("tokenizer assets not found (vocab.txt)")
}

// loadLabels reads the index-ordered token label list from config.json
// (id2label) or label_map.json.
func loadLabels(bundleDir string) ([]string, error) {
	if data, err := os.ReadFile(filepath.Join(bundleDir, "config.json")); err == nil {
		var cfg struct {
			ID2Label map[string]string `json:"id2label"`
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		if labels := labelsFromIDMap(cfg.ID2Label); len(labels) > 0 {
			return labels, nil
		}
	}

	data, err := os.ReadFile(filepath.Join(bundleDir, "label_map.json"))
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	var idMap map[string]string
	if err := json.Unmarshal(data, &idMap); err != nil {
		return nil, err
	}
	return labelsFromIDMap(idMap), nil
}

func labelsFromIDMap(id2label map[string]string) []string {
	if len(id2label) == 0 {
		return nil
	}
	maxID := -1
	parsed := make(map[int]string, len(id2label))
	for k, v := range id2label {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || id < 0 {
			continue
		}
		parsed[id] = v
		if id > maxID {
			maxID = id
		}
	}
	if maxID < 0 {
		return nil
	}
	labels := make([]string, maxID+1)
	for id, lbl := range parsed {
		labels[id] = lbl
	}
	return labels
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime
// shared library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise
// common names and locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
